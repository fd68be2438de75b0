// Package mock provides a scripted Transcriber for tests.
package mock

import (
	"context"
	"sync"

	"github.com/openlaudos/dictate/pkg/provider/stt"
)

// Transcriber returns scripted results in order, then repeats the last one.
// Safe for concurrent use. The zero value returns empty results.
type Transcriber struct {
	// Results are returned in order by successive Transcribe calls.
	Results []stt.Result

	// Err, when non-nil, is returned by every Transcribe call instead.
	Err error

	mu       sync.Mutex
	calls    int
	received []stt.Audio
}

var _ stt.Transcriber = (*Transcriber)(nil)

// Transcribe returns the next scripted result or Err.
func (m *Transcriber) Transcribe(_ context.Context, audio stt.Audio) (stt.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, audio)
	m.calls++
	if m.Err != nil {
		return stt.Result{}, m.Err
	}
	if len(m.Results) == 0 {
		return stt.Result{}, nil
	}
	idx := m.calls - 1
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	return m.Results[idx], nil
}

// Calls returns how many times Transcribe was invoked.
func (m *Transcriber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Received returns a copy of the audio passed to Transcribe so far.
func (m *Transcriber) Received() []stt.Audio {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]stt.Audio, len(m.received))
	copy(out, m.received)
	return out
}

func (m *Transcriber) Name() string { return "mock" }

func (m *Transcriber) Close() error { return nil }
