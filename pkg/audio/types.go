// Package audio holds the PCM utilities shared by the dictation pipeline:
// frame types, format conversion towards the mono 16 kHz layout transcription
// backends expect, Opus decoding for remote-device streams, and RMS level
// metering for UI indicators.
package audio

import "time"

// Frame is one chunk of little-endian int16 PCM flowing through the
// pipeline, captured from the local microphone or decoded from a remote
// device's Opus stream.
type Frame struct {
	// PCM holds interleaved little-endian int16 samples.
	PCM []byte

	// SampleRate in Hz (48000 for Opus decode output, 16000 for STT input).
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks capture time relative to stream start.
	Timestamp time.Duration
}

// Duration returns the play time this frame covers.
func (f Frame) Duration() time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	samples := len(f.PCM) / 2 / f.Channels
	return time.Duration(samples) * time.Second / time.Duration(f.SampleRate)
}

// Int16s decodes little-endian PCM bytes into int16 samples.
func Int16s(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return out
}

// Bytes encodes int16 samples as little-endian PCM bytes.
func Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
