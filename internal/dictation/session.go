package dictation

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openlaudos/dictate/internal/match"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/internal/registry"
)

// State is a dictation session lifecycle state.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing"
	StateError      State = "error"
)

// maxQueuedChunks bounds the transcript completion queue. When a chunk
// completes while another is still being processed it is queued; once the
// queue is full the oldest entry is dropped. Dropping is acceptable for
// continuous dictation since the next chunk carries fresh speech.
const maxQueuedChunks = 16

// Status is a read-only view of the session for presentation layers.
type Status struct {
	State           State   `json:"state"`
	Source          string  `json:"source,omitempty"`
	SnapshotVersion uint64  `json:"snapshot_version"`
	AudioLevel      float64 `json:"audio_level"`
	LastError       string  `json:"last_error,omitempty"`
}

type chunk struct {
	text       string
	confidence float64
}

// SessionOption configures a [Session].
type SessionOption func(*Session)

// WithMatcher overrides the matcher. Defaults to match.New().
func WithMatcher(m *match.Matcher) SessionOption {
	return func(s *Session) { s.matcher = m }
}

// WithMinConfidence drops transcript chunks whose reported confidence is
// below the threshold. Zero (the default) disables the filter; chunks with
// no reported confidence always pass.
func WithMinConfidence(c float64) SessionOption {
	return func(s *Session) { s.minConfidence = c }
}

// WithSessionLogger sets the logger. Defaults to slog.Default().
func WithSessionLogger(log *slog.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// Session owns the dictation state machine for one editor context. It binds
// a single audio source (via the arbiter), runs each transcript chunk
// through the matcher, and hands the resulting intent to the dispatcher.
//
// Transcript completions arrive asynchronously; the generation counter
// fences them. Stop and transcription errors bump the generation, so a
// completion tagged with an older generation is discarded without touching
// state.
//
// All methods are safe for concurrent use.
type Session struct {
	arbiter    *Arbiter
	reg        *registry.Registry
	matcher    *match.Matcher
	dispatcher *Dispatcher
	metrics    *observe.Metrics
	log        *slog.Logger

	minConfidence float64

	mu      sync.Mutex
	state   State
	source  string
	gen     uint64
	queue   []chunk
	lastErr string

	audioLevel atomic.Uint64 // math.Float64bits encoded
}

// NewSession creates an idle Session.
func NewSession(arb *Arbiter, reg *registry.Registry, disp *Dispatcher, metrics *observe.Metrics, opts ...SessionOption) *Session {
	s := &Session{
		arbiter:    arb,
		reg:        reg,
		matcher:    match.New(),
		dispatcher: disp,
		metrics:    metrics,
		log:        slog.Default(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the session to a source and begins listening. Fails with
// [ErrAlreadyActive] if the session is neither idle nor recovering from an
// error, and with [ErrSourceBusy] if another source holds the arbitration
// lock. On failure no state changes.
func (s *Session) Start(ctx context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle && s.state != StateError {
		return ErrAlreadyActive
	}
	if err := s.arbiter.Acquire(sourceID); err != nil {
		return err
	}

	s.state = StateListening
	s.source = sourceID
	s.lastErr = ""
	s.metrics.ActiveSessions.Add(ctx, 1)
	s.log.Info("session: started", "source", sourceID, "generation", s.gen)
	return nil
}

// Stop returns the session to idle, releases the arbitration lock, and
// discards any in-progress variable fill. The generation counter is bumped
// so outstanding transcription completions become no-ops. Safe to call from
// any state; stopping an idle session does nothing.
func (s *Session) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	source := s.source
	wasActive := s.state != StateError
	s.gen++
	s.state = StateIdle
	s.source = ""
	s.queue = nil
	s.mu.Unlock()

	s.arbiter.Release(source)
	s.dispatcher.Cancel()
	if wasActive {
		s.metrics.ActiveSessions.Add(ctx, -1)
	}
	s.log.Info("session: stopped", "source", source)
}

// Generation returns the current generation counter. Callers issuing a
// transcription request capture it and pass it back to [Session.OnTranscript]
// with the completion.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// OnTranscript handles one completed transcription. A completion from an
// older generation (the session was stopped or errored since the request was
// issued) is discarded. While a chunk is being processed, further
// completions queue up and are drained in arrival order before the session
// returns to listening.
func (s *Session) OnTranscript(ctx context.Context, gen uint64, text string, confidence float64) {
	s.mu.Lock()
	if gen != s.gen || (s.state != StateListening && s.state != StateProcessing) {
		s.mu.Unlock()
		s.log.Debug("session: discarding stale transcript", "generation", gen, "text_len", len(text))
		s.metrics.Transcripts.Add(ctx, 1, transcriptAttrs("", "stale"))
		return
	}
	source := s.source

	if confidence > 0 && confidence < s.minConfidence {
		s.mu.Unlock()
		s.log.Debug("session: dropping low-confidence transcript",
			"confidence", confidence,
			"min_confidence", s.minConfidence,
		)
		s.metrics.Transcripts.Add(ctx, 1, transcriptAttrs(source, "dropped"))
		return
	}

	if s.state == StateProcessing {
		if len(s.queue) >= maxQueuedChunks {
			s.queue = s.queue[1:]
			s.log.Warn("session: transcript queue full, dropping oldest chunk")
			s.metrics.Transcripts.Add(ctx, 1, transcriptAttrs(source, "dropped"))
		}
		s.queue = append(s.queue, chunk{text: text, confidence: confidence})
		s.mu.Unlock()
		return
	}

	s.state = StateProcessing
	s.mu.Unlock()

	s.process(ctx, source, text)

	for {
		s.mu.Lock()
		if gen != s.gen {
			// Stopped or errored while processing; whoever bumped the
			// generation already reset the state.
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.state = StateListening
			s.mu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.process(ctx, source, next.text)
	}
}

// process runs one chunk through matching and dispatch. Called without the
// session mutex held so editor calls and prompts cannot deadlock against
// Stop.
func (s *Session) process(ctx context.Context, source, text string) {
	s.arbiter.Touch(source)

	snap := s.reg.Current()
	start := time.Now()
	var candidates []match.Candidate
	if !s.dispatcher.FillActive() {
		candidates = s.matcher.Match(text, snap)
	}
	s.metrics.MatchDuration.Record(ctx, time.Since(start).Seconds())

	var intent Intent
	outcome := "literal"
	if len(candidates) > 0 {
		best := candidates[0]
		intent = CommandMatched{EntryID: best.EntryID, Score: best.Score, Pattern: best.Pattern}
		outcome = "command"
		s.log.Debug("session: command matched",
			"entry_id", best.EntryID,
			"score", best.Score,
			"pattern", best.Pattern,
			"snapshot_version", snap.Version(),
		)
	} else {
		intent = LiteralText{Text: text}
	}

	if err := s.dispatcher.Dispatch(ctx, intent); err != nil {
		s.log.Error("session: dispatch failed", "err", err)
	}
	s.metrics.Transcripts.Add(ctx, 1, transcriptAttrs(source, outcome))
}

// OnTranscriptionError moves the session to the error state and releases
// the arbitration lock. The generation counter is bumped so completions
// still in flight are discarded. The caller may Start again to retry.
func (s *Session) OnTranscriptionError(ctx context.Context, reason string) {
	s.mu.Lock()
	if s.state == StateIdle || s.state == StateError {
		s.mu.Unlock()
		return
	}
	source := s.source
	s.gen++
	s.state = StateError
	s.source = ""
	s.queue = nil
	s.lastErr = reason
	s.mu.Unlock()

	s.arbiter.Release(source)
	s.dispatcher.Cancel()
	s.metrics.ActiveSessions.Add(ctx, -1)
	s.metrics.TranscriptionErrors.Add(ctx, 1)
	s.log.Error("session: transcription failed", "source", source, "reason", reason)
}

// ReportAudioLevel records the latest RMS audio level sample for UI meters.
func (s *Session) ReportAudioLevel(level float64) {
	s.audioLevel.Store(math.Float64bits(level))
}

// Status returns a point-in-time view of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:           s.state,
		Source:          s.source,
		SnapshotVersion: s.reg.Current().Version(),
		AudioLevel:      math.Float64frombits(s.audioLevel.Load()),
		LastError:       s.lastErr,
	}
}

func transcriptAttrs(source, outcome string) metric.AddOption {
	return metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
}
