// This file contains the NativeTranscriber implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/openlaudos/dictate/pkg/provider/stt"
)

// Compile-time assertion that NativeTranscriber satisfies stt.Transcriber.
var _ stt.Transcriber = (*NativeTranscriber)(nil)

// NativeTranscriber implements stt.Transcriber using the whisper.cpp Go
// bindings, eliminating HTTP overhead entirely. The model is loaded once at
// startup and shared across all utterances; each Transcribe call creates its
// own whisper context, which is what makes concurrent calls safe.
type NativeTranscriber struct {
	language string

	mu    sync.Mutex
	model whisperlib.Model
}

// NativeOption is a functional option for configuring a NativeTranscriber.
type NativeOption func(*NativeTranscriber)

// WithNativeLanguage sets the default language code for transcription
// (e.g. "pt"). Defaults to "pt".
func WithNativeLanguage(lang string) NativeOption {
	return func(t *NativeTranscriber) { t.language = lang }
}

// NewNative creates a NativeTranscriber that loads the whisper.cpp model
// from the given file path. The caller must call Close when done.
func NewNative(modelPath string, opts ...NativeOption) (*NativeTranscriber, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	model, err := whisperlib.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("whisper: load model %q: %w", modelPath, err)
	}

	t := &NativeTranscriber{
		model:    model,
		language: defaultLanguage,
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Transcribe implements stt.Transcriber. The PCM samples are converted to
// the float32 mono layout whisper.cpp expects and run through a fresh
// inference context.
func (t *NativeTranscriber) Transcribe(ctx context.Context, audio stt.Audio) (stt.Result, error) {
	if err := ctx.Err(); err != nil {
		return stt.Result{}, err
	}
	if len(audio.PCM) == 0 {
		return stt.Result{}, nil
	}

	t.mu.Lock()
	model := t.model
	t.mu.Unlock()
	if model == nil {
		return stt.Result{}, errors.New("whisper: transcriber is closed")
	}

	lang := audio.Language
	if lang == "" {
		lang = t.language
	}

	samples := pcmToFloat32Mono(audio.PCM, audio.Channels)

	// Contexts are not thread-safe; the shared model is.
	wctx, err := model.NewContext()
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create context: %w", err)
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using model default",
			"language", lang, "error", err)
	}

	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return stt.Result{}, fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	return stt.Result{
		Text:     strings.Join(parts, " "),
		Language: lang,
	}, nil
}

// Name implements stt.Transcriber.
func (t *NativeTranscriber) Name() string { return "whisper-native" }

// Close releases the whisper model. Safe to call more than once.
func (t *NativeTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.model == nil {
		return nil
	}
	err := t.model.Close()
	t.model = nil
	return err
}

// pcmToFloat32Mono converts little-endian int16 PCM to the normalized
// float32 mono samples whisper.cpp expects, averaging stereo pairs.
func pcmToFloat32Mono(pcm []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	samples := len(pcm) / 2
	frames := samples / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum int32
		for c := range channels {
			idx := (i*channels + c) * 2
			sum += int32(int16(pcm[idx]) | int16(pcm[idx+1])<<8)
		}
		out[i] = float32(sum/int32(channels)) / 32768.0
	}
	return out
}
