// Package mock provides a recording test double for the editor.Executor
// interface. Every call is appended to Calls as "name" or "name(arg)" so
// tests can assert the exact action sequence the dispatcher produced.
package mock

import (
	"sync"

	"github.com/openlaudos/dictate/internal/editor"
)

// Executor records every editor action invoked on it. Safe for concurrent
// use. The zero value is ready to use.
type Executor struct {
	mu    sync.Mutex
	calls []string

	// Sel is returned by Selection.
	Sel editor.Selection
}

var _ editor.Executor = (*Executor)(nil)

func (e *Executor) record(call string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, call)
}

// Calls returns a copy of the recorded call sequence.
func (e *Executor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.calls))
	copy(out, e.calls)
	return out
}

func (e *Executor) InsertText(text string)          { e.record("insertText(" + text + ")") }
func (e *Executor) InsertImage(src string)          { e.record("insertImage(" + src + ")") }
func (e *Executor) ToggleMark(kind editor.MarkKind) { e.record("toggleMark(" + string(kind) + ")") }
func (e *Executor) SetTextAlign(value string)       { e.record("setTextAlign(" + value + ")") }
func (e *Executor) SetFontFamily(value string)      { e.record("setFontFamily(" + value + ")") }
func (e *Executor) SetFontSize(value string)        { e.record("setFontSize(" + value + ")") }
func (e *Executor) ToggleBlockquote()               { e.record("toggleBlockquote") }
func (e *Executor) ToggleCodeBlock()                { e.record("toggleCodeBlock") }
func (e *Executor) ToggleList(kind editor.ListKind) { e.record("toggleList(" + string(kind) + ")") }
func (e *Executor) Undo()                           { e.record("undo") }
func (e *Executor) Redo()                           { e.record("redo") }

// Selection returns Sel.
func (e *Executor) Selection() editor.Selection { return e.Sel }
