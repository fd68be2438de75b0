package remote

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/sync/errgroup"

	"github.com/openlaudos/dictate/internal/dictation"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/pkg/audio"
	"github.com/openlaudos/dictate/pkg/provider/stt"
)

const (
	defaultTokenTTL       = 2 * time.Minute
	statusPushInterval    = time.Second
	maxBufferedUtterance  = 30 * 16000 * 2 // 30s of mono 16 kHz PCM
	sourcePrefix          = "remote-"
	wsCloseGracePeriodMsg = "pairing session over"
)

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithTokenTTL sets how long a pairing token stays redeemable. Defaults to
// 2 minutes.
func WithTokenTTL(d time.Duration) HubOption {
	return func(h *Hub) { h.tokenTTL = d }
}

// WithHubLogger sets the logger. Defaults to slog.Default().
func WithHubLogger(log *slog.Logger) HubOption {
	return func(h *Hub) { h.log = log }
}

// Hub accepts paired mobile devices and bridges them into the dictation
// session. Devices send either on-device transcripts or raw Opus audio; the
// latter is decoded, buffered per utterance, and run through the configured
// transcription backend. All methods are safe for concurrent use.
type Hub struct {
	session     *dictation.Session
	transcriber stt.Transcriber
	metrics     *observe.Metrics
	log         *slog.Logger
	tokenTTL    time.Duration

	mu     sync.Mutex
	tokens map[string]time.Time
}

// NewHub creates a Hub. transcriber may be nil when only on-device
// transcripts are expected; streamed audio is then rejected.
func NewHub(session *dictation.Session, transcriber stt.Transcriber, metrics *observe.Metrics, opts ...HubOption) *Hub {
	h := &Hub{
		session:     session,
		transcriber: transcriber,
		metrics:     metrics,
		log:         slog.Default(),
		tokenTTL:    defaultTokenTTL,
		tokens:      make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// CreatePairingToken mints a single-use token the desktop UI renders as a QR
// code for the phone to scan.
func (h *Hub) CreatePairingToken() (PairingGrant, error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return PairingGrant{}, err
	}
	token := hex.EncodeToString(raw)
	now := time.Now()
	expires := now.Add(h.tokenTTL)

	h.mu.Lock()
	// Unredeemed tokens would otherwise pile up forever.
	for tok, exp := range h.tokens {
		if now.After(exp) {
			delete(h.tokens, tok)
		}
	}
	h.tokens[token] = expires
	h.mu.Unlock()

	return PairingGrant{Token: token, ExpiresAt: expires}, nil
}

// redeemToken consumes a token. A token is valid exactly once and only
// before its expiry.
func (h *Hub) redeemToken(token string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	expires, ok := h.tokens[token]
	if !ok {
		return false
	}
	delete(h.tokens, token)
	return time.Now().Before(expires)
}

// Handler returns the HTTP surface of the hub:
//
//	POST /pair  — mint a pairing token
//	GET  /ws    — device WebSocket endpoint, ?token= required
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /pair", h.handlePair)
	mux.HandleFunc("GET /ws", h.handleWS)
	return mux
}

func (h *Hub) handlePair(w http.ResponseWriter, r *http.Request) {
	grant, err := h.CreatePairingToken()
	if err != nil {
		http.Error(w, "failed to mint token", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(grant)
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" || !h.redeemToken(token) {
		http.Error(w, "invalid or expired pairing token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("remote: websocket accept failed", "err", err)
		return
	}

	sourceID := sourcePrefix + token[:8]
	h.metrics.RemoteConnections.Add(r.Context(), 1)
	h.log.Info("remote: device paired", "source", sourceID)

	err = h.serveDevice(r.Context(), conn, sourceID)
	h.metrics.RemoteConnections.Add(context.Background(), -1)

	// A device that vanishes mid-dictation must not keep the lock.
	if h.session.Status().Source == sourceID {
		h.session.Stop(context.Background())
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		status := websocket.CloseStatus(err)
		if status == -1 {
			h.log.Warn("remote: device connection failed", "source", sourceID, "err", err)
		} else {
			h.log.Info("remote: device disconnected", "source", sourceID, "status", status)
		}
	}
	conn.Close(websocket.StatusNormalClosure, wsCloseGracePeriodMsg)
}

// serveDevice runs the read and status-push pumps until the connection drops
// or ctx is cancelled.
func (h *Hub) serveDevice(ctx context.Context, conn *websocket.Conn, sourceID string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return h.readPump(ctx, conn, sourceID)
	})
	g.Go(func() error {
		ticker := time.NewTicker(statusPushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				st := h.session.Status()
				if err := wsjson.Write(ctx, conn, outbound{Type: TypeStatus, Status: &st}); err != nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}

// readPump consumes device frames: JSON control/transcript messages on the
// text channel, Opus packets on the binary channel.
func (h *Hub) readPump(ctx context.Context, conn *websocket.Conn, sourceID string) error {
	var (
		decoder   *audio.OpusDecoder
		utterance []byte
		meter     audio.Meter
	)

	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		switch msgType {
		case websocket.MessageBinary:
			if h.transcriber == nil {
				h.sendError(ctx, conn, CodeTranscription, "audio streaming is not enabled")
				continue
			}
			if decoder == nil {
				if decoder, err = audio.NewOpusDecoder(); err != nil {
					return err
				}
			}
			frame, err := decoder.Decode(data)
			if err != nil {
				h.log.Debug("remote: dropping undecodable packet", "err", err)
				continue
			}
			h.session.ReportAudioLevel(meter.Observe(frame.PCM))
			converted := audio.ForTranscription(frame, audio.STTSampleRate)
			if len(utterance)+len(converted.PCM) <= maxBufferedUtterance {
				utterance = append(utterance, converted.PCM...)
			}

		case websocket.MessageText:
			var msg inbound
			if err := json.Unmarshal(data, &msg); err != nil {
				h.log.Debug("remote: dropping malformed message", "err", err)
				continue
			}
			switch msg.Type {
			case TypeStart:
				if err := h.session.Start(ctx, sourceID); err != nil {
					code := CodeSourceBusy
					h.sendError(ctx, conn, code, err.Error())
				}
			case TypeStop:
				if h.session.Status().Source == sourceID {
					h.session.Stop(ctx)
				}
			case TypeTranscript:
				if h.session.Status().Source != sourceID {
					h.sendError(ctx, conn, CodeSourceBusy, "session is not held by this device")
					continue
				}
				h.session.OnTranscript(ctx, h.session.Generation(), msg.Text, msg.Confidence)
			case TypeAudioLevel:
				h.session.ReportAudioLevel(msg.Level)
			case TypeUtteranceEnd:
				pcm := utterance
				utterance = nil
				if h.session.Status().Source != sourceID {
					h.sendError(ctx, conn, CodeSourceBusy, "session is not held by this device")
					continue
				}
				h.flushUtterance(ctx, conn, pcm)
			default:
				h.log.Debug("remote: unknown message type", "type", msg.Type)
			}
		}
	}
}

// flushUtterance transcribes buffered PCM and feeds the result into the
// session under the generation captured before the backend call, so a stop
// during transcription discards the late completion.
func (h *Hub) flushUtterance(ctx context.Context, conn *websocket.Conn, pcm []byte) {
	if len(pcm) == 0 || h.transcriber == nil {
		return
	}
	gen := h.session.Generation()

	start := time.Now()
	res, err := h.transcriber.Transcribe(ctx, stt.Audio{
		PCM:        pcm,
		SampleRate: audio.STTSampleRate,
		Channels:   audio.STTChannels,
	})
	h.metrics.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		h.session.OnTranscriptionError(ctx, err.Error())
		h.sendError(ctx, conn, CodeTranscription, err.Error())
		return
	}
	if res.Text == "" {
		return
	}
	h.session.OnTranscript(ctx, gen, res.Text, res.Confidence)
}

func (h *Hub) sendError(ctx context.Context, conn *websocket.Conn, code, message string) {
	if err := wsjson.Write(ctx, conn, outbound{Type: TypeError, Code: code, Message: message}); err != nil {
		h.log.Debug("remote: failed to send error frame", "err", err)
	}
}
