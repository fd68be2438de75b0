// Package remote implements the pairing channel for mobile devices acting as
// remote microphones. A device pairs by redeeming a short-lived token over
// the WebSocket endpoint, then streams either on-device transcripts or raw
// Opus audio; both paths feed the same dictation session the local
// microphone would, with the source arbiter deciding who gets to dictate.
package remote

import (
	"time"

	"github.com/openlaudos/dictate/internal/dictation"
)

// Inbound message types sent by the paired device.
const (
	// TypeStart asks the hub to begin dictation bound to this device.
	TypeStart = "start"

	// TypeStop ends dictation for this device.
	TypeStop = "stop"

	// TypeTranscript carries one utterance transcribed on-device.
	TypeTranscript = "transcript"

	// TypeUtteranceEnd marks the end of a streamed audio utterance; the hub
	// flushes the buffered PCM to the transcription backend.
	TypeUtteranceEnd = "utterance_end"

	// TypeAudioLevel carries the device's microphone level for UI meters.
	TypeAudioLevel = "audio_level"
)

// Outbound message types sent to the paired device.
const (
	// TypeStatus carries the current session status.
	TypeStatus = "status"

	// TypeError reports a non-fatal condition; the connection stays open.
	TypeError = "error"
)

// Error codes carried by TypeError messages.
const (
	// CodeSourceBusy means another source holds the dictation lock; the
	// device should show "already dictating elsewhere".
	CodeSourceBusy = "source_busy"

	// CodeTranscription means the transcription backend failed for a
	// streamed utterance.
	CodeTranscription = "transcription_failed"
)

// inbound is the JSON frame a device sends on the text channel. Binary
// frames are Opus packets and carry no envelope.
type inbound struct {
	Type       string  `json:"type"`
	Text       string  `json:"text,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Level      float64 `json:"level,omitempty"`
}

// outbound is the JSON frame the hub sends to a device.
type outbound struct {
	Type    string            `json:"type"`
	Status  *dictation.Status `json:"status,omitempty"`
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
}

// PairingGrant is the response to a pairing request; the token is redeemed
// once on the WebSocket endpoint.
type PairingGrant struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
