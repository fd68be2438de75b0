// Package stt defines the Transcriber interface for speech-to-text backends.
//
// The dictation engine works in utterances, not streams: the capture layer
// segments speech on silence and hands each completed utterance to a
// Transcriber as one batch request. The transcript, together with the
// session generation captured when the request was issued, flows back into
// the session state machine.
//
// Implementations must be safe for concurrent use; utterances from the same
// session are submitted one at a time, but several sessions may share a
// Transcriber.
package stt

import "context"

// Audio is one segmented utterance of little-endian 16-bit PCM.
type Audio struct {
	// PCM holds the samples. Mono 16 kHz is what every backend here accepts;
	// use audio.ForTranscription to convert beforehand.
	PCM []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels count. Backends may reject anything but 1.
	Channels int

	// Language is a BCP-47 hint (e.g. "pt", "pt-BR"). Empty lets the
	// backend auto-detect, if supported.
	Language string
}

// Result is the transcription of one utterance.
type Result struct {
	// Text is the recognised speech.
	Text string

	// Confidence is the backend's estimate in [0, 1]. Zero means the
	// backend does not report confidence; callers must treat zero as
	// "unknown", not "certain garbage".
	Confidence float64

	// Language is the detected or configured language, when reported.
	Language string
}

// Transcriber is the abstraction over any batch speech-to-text backend.
type Transcriber interface {
	// Transcribe converts one utterance to text. Network, auth, and quota
	// failures come back as errors for the session to map into its error
	// state; an empty Result with nil error means the backend heard nothing.
	Transcribe(ctx context.Context, audio Audio) (Result, error)

	// Name identifies the backend for logs and status reporting.
	Name() string

	// Close releases backend resources (connections, loaded models).
	// Calling Close more than once is safe.
	Close() error
}
