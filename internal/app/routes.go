package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlaudos/dictate/internal/dictation"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/pkg/audio"
	"github.com/openlaudos/dictate/pkg/provider/stt"
)

// maxUtteranceBytes bounds one uploaded utterance: 30 seconds of 16 kHz
// mono 16-bit PCM, with headroom for clients that send 48 kHz stereo.
const maxUtteranceBytes = 30 * 48000 * 2 * 2

// Handler returns the full HTTP surface of the server:
//
//	GET  /healthz, /readyz         — liveness and readiness
//	GET  /metrics                  — Prometheus scrape endpoint
//	GET  /v1/status                — session state snapshot
//	POST /v1/dictation/start       — bind the local source and start listening
//	POST /v1/dictation/stop        — release the local source
//	POST /v1/transcripts           — feed an on-device transcript chunk
//	POST /v1/utterances            — transcribe raw PCM server-side
//	GET  /v1/suggestions           — semantic phrase search
//	/remote/*                      — device pairing hub (when enabled)
//	/editor/*                      — editor frontend bridge
func (a *App) Handler() http.Handler {
	api := http.NewServeMux()

	a.health.Register(api)
	api.Handle("GET /metrics", promhttp.Handler())

	api.HandleFunc("GET /v1/status", a.handleStatus)
	api.HandleFunc("POST /v1/dictation/start", a.handleStart)
	api.HandleFunc("POST /v1/dictation/stop", a.handleStop)
	api.HandleFunc("POST /v1/transcripts", a.handleTranscript)
	api.HandleFunc("POST /v1/utterances", a.handleUtterance)
	api.HandleFunc("GET /v1/suggestions", a.handleSuggestions)

	// WebSocket endpoints bypass the middleware: the upgrade hijacks the
	// connection, which the wrapping response writer cannot forward.
	root := http.NewServeMux()
	if a.hub != nil {
		root.Handle("/remote/", http.StripPrefix("/remote", a.hub.Handler()))
	}
	if a.bridge != nil {
		root.Handle("/editor/", http.StripPrefix("/editor", a.bridge.Handler()))
	}
	root.Handle("/", observe.Middleware(a.metrics)(api))

	return root
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *App) handleStart(w http.ResponseWriter, r *http.Request) {
	err := a.session.Start(r.Context(), dictation.SourceLocal)
	switch {
	case errors.Is(err, dictation.ErrSourceBusy), errors.Is(err, dictation.ErrAlreadyActive):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, a.session.Status())
}

func (a *App) handleStop(w http.ResponseWriter, r *http.Request) {
	a.session.Stop(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// transcriptRequest is one on-device transcript chunk. Confidence zero
// means the recogniser did not report one.
type transcriptRequest struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func (a *App) handleTranscript(w http.ResponseWriter, r *http.Request) {
	var req transcriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid transcript payload", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	a.session.OnTranscript(r.Context(), a.session.Generation(), req.Text, req.Confidence)
	w.WriteHeader(http.StatusAccepted)
}

// handleUtterance transcribes one raw PCM utterance server-side. The body is
// little-endian 16-bit PCM; sample rate and channel count come from query
// parameters and default to the transcription format.
func (a *App) handleUtterance(w http.ResponseWriter, r *http.Request) {
	if a.transcriber == nil {
		http.Error(w, "no transcription backend configured", http.StatusServiceUnavailable)
		return
	}

	pcm, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUtteranceBytes))
	if err != nil {
		http.Error(w, "utterance too large", http.StatusRequestEntityTooLarge)
		return
	}
	if len(pcm) == 0 {
		http.Error(w, "empty utterance", http.StatusBadRequest)
		return
	}

	frame := audio.Frame{
		PCM:        pcm,
		SampleRate: queryInt(r, "sample_rate", audio.STTSampleRate),
		Channels:   queryInt(r, "channels", audio.STTChannels),
	}
	converted := audio.ForTranscription(frame, audio.STTSampleRate)

	// Capture the generation before the backend call so a stop during
	// transcription discards the late completion.
	gen := a.session.Generation()

	ctx, span := observe.StartSpan(r.Context(), "transcribe_utterance")
	defer span.End()

	start := time.Now()
	res, err := a.transcriber.Transcribe(ctx, stt.Audio{
		PCM:        converted.PCM,
		SampleRate: converted.SampleRate,
		Channels:   converted.Channels,
		Language:   a.cfg.Dictation.Language,
	})
	a.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		a.session.OnTranscriptionError(ctx, err.Error())
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if res.Text != "" {
		a.session.OnTranscript(ctx, gen, res.Text, res.Confidence)
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *App) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	if a.searcher == nil {
		http.Error(w, "semantic search not configured", http.StatusNotImplemented)
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}
	limit := queryInt(r, "limit", 5)

	hits, err := a.searcher.SearchSimilar(r.Context(), query, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
