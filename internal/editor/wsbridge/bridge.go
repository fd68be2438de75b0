// Package wsbridge connects the in-process dispatcher to the browser-based
// report editor over a WebSocket.
//
// The editor frontend opens one socket and keeps it alive for the lifetime
// of the report. Dispatched actions flow editor-ward as JSON frames; the
// frontend pushes selection updates back so Selection stays current without
// a round trip. When no editor is connected, actions are dropped and logged
// rather than queued: a stale toggleMark replayed minutes later would land
// in the wrong place.
package wsbridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/openlaudos/dictate/internal/editor"
)

// writeTimeout bounds one outbound action frame.
const writeTimeout = 5 * time.Second

// action is one editor-bound frame.
type action struct {
	Op    string `json:"op"`
	Value string `json:"value,omitempty"`

	// Retry marks a repeated variable prompt after a rejected value.
	Retry bool `json:"retry,omitempty"`
}

// inbound is one frontend-originated frame. Only selection updates exist
// today; unknown types are ignored so frontends can version ahead.
type inbound struct {
	Type string `json:"type"`
	From int    `json:"from"`
	To   int    `json:"to"`
}

// Bridge implements [editor.Executor] against the currently connected
// editor frontend. Safe for concurrent use; at most one frontend is
// connected at a time, a new connection replaces the previous one.
type Bridge struct {
	log *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
	sel  editor.Selection
}

var _ editor.Executor = (*Bridge)(nil)

// Option configures a [Bridge].
type Option func(*Bridge)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(b *Bridge) { b.log = log }
}

// New creates a Bridge with no editor connected.
func New(opts ...Option) *Bridge {
	b := &Bridge{log: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler returns the HTTP surface of the bridge:
//
//	GET /ws — editor frontend WebSocket endpoint
func (b *Bridge) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", b.handleWS)
	return mux
}

// Connected reports whether an editor frontend is currently attached.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		b.log.Warn("wsbridge: websocket accept failed", "err", err)
		return
	}

	b.mu.Lock()
	if prev := b.conn; prev != nil {
		prev.Close(websocket.StatusPolicyViolation, "replaced by a newer editor connection")
	}
	b.conn = conn
	b.mu.Unlock()
	b.log.Info("wsbridge: editor connected")

	err = b.readPump(r.Context(), conn)

	b.mu.Lock()
	if b.conn == conn {
		b.conn = nil
	}
	b.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) && websocket.CloseStatus(err) == -1 {
		b.log.Warn("wsbridge: editor connection failed", "err", err)
	} else {
		b.log.Info("wsbridge: editor disconnected")
	}
	conn.Close(websocket.StatusNormalClosure, "")
}

// readPump consumes selection updates until the connection drops.
func (b *Bridge) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		if msg.Type != "selection" {
			continue
		}
		b.mu.Lock()
		b.sel = editor.Selection{From: msg.From, To: msg.To}
		b.mu.Unlock()
	}
}

// send writes one action frame to the connected editor, dropping it when no
// editor is attached. A write failure tears the connection down so the next
// action does not block on a dead socket.
func (b *Bridge) send(a action) {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		b.log.Debug("wsbridge: no editor connected, dropping action", "op", a.Op)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, a); err != nil {
		b.log.Warn("wsbridge: action write failed", "op", a.Op, "err", err)
		conn.Close(websocket.StatusInternalError, "action write failed")
		b.mu.Lock()
		if b.conn == conn {
			b.conn = nil
		}
		b.mu.Unlock()
	}
}

// PromptVariable asks the editor UI to solicit a value for a template
// variable. Retry marks a re-prompt after a rejected value.
func (b *Bridge) PromptVariable(name string, retry bool) {
	b.send(action{Op: "promptVariable", Value: name, Retry: retry})
}

func (b *Bridge) InsertText(text string)          { b.send(action{Op: "insertText", Value: text}) }
func (b *Bridge) InsertImage(src string)          { b.send(action{Op: "insertImage", Value: src}) }
func (b *Bridge) ToggleMark(kind editor.MarkKind) { b.send(action{Op: "toggleMark", Value: string(kind)}) }
func (b *Bridge) SetTextAlign(value string)       { b.send(action{Op: "setTextAlign", Value: value}) }
func (b *Bridge) SetFontFamily(value string)      { b.send(action{Op: "setFontFamily", Value: value}) }
func (b *Bridge) SetFontSize(value string)        { b.send(action{Op: "setFontSize", Value: value}) }
func (b *Bridge) ToggleBlockquote()               { b.send(action{Op: "toggleBlockquote"}) }
func (b *Bridge) ToggleCodeBlock()                { b.send(action{Op: "toggleCodeBlock"}) }
func (b *Bridge) ToggleList(kind editor.ListKind) { b.send(action{Op: "toggleList", Value: string(kind)}) }
func (b *Bridge) Undo()                           { b.send(action{Op: "undo"}) }
func (b *Bridge) Redo()                           { b.send(action{Op: "redo"}) }

// Selection returns the editor's last reported selection. The zero value
// is returned before the first selection frame arrives.
func (b *Bridge) Selection() editor.Selection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sel
}
