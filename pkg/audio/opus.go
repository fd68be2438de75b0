package audio

import (
	"fmt"

	"layeh.com/gopus"
)

// Remote devices stream 48 kHz mono Opus in 20 ms packets.
const (
	opusSampleRate  = 48000
	opusChannels    = 1
	opusFrameSizeMs = 20
	// opusFrameSize is samples per channel per 20 ms packet.
	opusFrameSize = opusSampleRate * opusFrameSizeMs / 1000 // 960
)

// OpusDecoder decodes the Opus stream of one remote device. Opus decoders
// are stateful across consecutive packets, so each device connection needs
// its own instance. Not safe for concurrent use.
type OpusDecoder struct {
	dec *gopus.Decoder
}

// NewOpusDecoder creates a decoder configured for remote-device audio.
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(opusSampleRate, opusChannels)
	if err != nil {
		return nil, fmt.Errorf("audio: create opus decoder: %w", err)
	}
	return &OpusDecoder{dec: dec}, nil
}

// Decode decodes one Opus packet into a PCM frame at the Opus native rate.
// Convert with [ForTranscription] before handing to a transcription backend.
func (d *OpusDecoder) Decode(packet []byte) (Frame, error) {
	pcm, err := d.dec.Decode(packet, opusFrameSize, false)
	if err != nil {
		return Frame{}, fmt.Errorf("audio: opus decode: %w", err)
	}
	return Frame{
		PCM:        Bytes(pcm),
		SampleRate: opusSampleRate,
		Channels:   opusChannels,
	}, nil
}
