// Package editor defines the contract with the rich-text editor surface.
//
// The editor is an external collaborator: this package only names the
// operations the dispatcher may invoke and the read access it needs. Every
// operation may be refused by the editor (undo with empty history, a mark
// the current node rejects) — refusal is a silent no-op, never an error.
package editor

import (
	"errors"
	"fmt"
	"strings"
)

// MarkKind identifies a character-level mark toggled by ToggleMark.
type MarkKind string

const (
	MarkBold      MarkKind = "bold"
	MarkItalic    MarkKind = "italic"
	MarkUnderline MarkKind = "underline"
	MarkStrike    MarkKind = "strike"
	MarkHighlight MarkKind = "highlight"
)

// IsValid reports whether m is a recognised mark kind.
func (m MarkKind) IsValid() bool {
	switch m {
	case MarkBold, MarkItalic, MarkUnderline, MarkStrike, MarkHighlight:
		return true
	}
	return false
}

// ListKind identifies a list structure toggled by ToggleList.
type ListKind string

const (
	ListBullet  ListKind = "bullet"
	ListOrdered ListKind = "ordered"
)

// IsValid reports whether l is a recognised list kind.
func (l ListKind) IsValid() bool {
	return l == ListBullet || l == ListOrdered
}

// Selection describes the editor's current cursor/selection coordinates.
// From and To are document positions; From == To means a collapsed cursor.
type Selection struct {
	From int
	To   int
}

// Executor is the action-execution interface exposed by the editor surface.
// Implementations must tolerate being called from the dictation goroutine.
type Executor interface {
	InsertText(text string)
	InsertImage(src string)
	ToggleMark(kind MarkKind)
	SetTextAlign(value string)
	SetFontFamily(value string)
	SetFontSize(value string)
	ToggleBlockquote()
	ToggleCodeBlock()
	ToggleList(kind ListKind)
	Undo()
	Redo()

	// Selection returns the current selection coordinates.
	Selection() Selection
}

// ErrUnknownAction is returned by [Invoke] when an action payload does not
// name a recognised editor operation or carries an invalid argument.
var ErrUnknownAction = errors.New("editor: unknown action")

// Invoke parses a system-action payload of the form "name" or "name:arg"
// and executes it against exec. Recognised payloads:
//
//	toggleMark:<bold|italic|underline|strike|highlight>
//	setTextAlign:<left|center|right|justify>
//	setFontFamily:<family>
//	setFontSize:<size>
//	toggleBlockquote
//	toggleCodeBlock
//	toggleList:<bullet|ordered>
//	insertImage:<src>
//	undo
//	redo
func Invoke(exec Executor, action string) error {
	name, arg, _ := strings.Cut(action, ":")

	switch name {
	case "toggleMark":
		kind := MarkKind(arg)
		if !kind.IsValid() {
			return fmt.Errorf("%w: toggleMark %q", ErrUnknownAction, arg)
		}
		exec.ToggleMark(kind)
	case "setTextAlign":
		switch arg {
		case "left", "center", "right", "justify":
			exec.SetTextAlign(arg)
		default:
			return fmt.Errorf("%w: setTextAlign %q", ErrUnknownAction, arg)
		}
	case "setFontFamily":
		if arg == "" {
			return fmt.Errorf("%w: setFontFamily needs a value", ErrUnknownAction)
		}
		exec.SetFontFamily(arg)
	case "setFontSize":
		if arg == "" {
			return fmt.Errorf("%w: setFontSize needs a value", ErrUnknownAction)
		}
		exec.SetFontSize(arg)
	case "toggleBlockquote":
		exec.ToggleBlockquote()
	case "toggleCodeBlock":
		exec.ToggleCodeBlock()
	case "toggleList":
		kind := ListKind(arg)
		if !kind.IsValid() {
			return fmt.Errorf("%w: toggleList %q", ErrUnknownAction, arg)
		}
		exec.ToggleList(kind)
	case "insertImage":
		if arg == "" {
			return fmt.Errorf("%w: insertImage needs a source", ErrUnknownAction)
		}
		exec.InsertImage(arg)
	case "undo":
		exec.Undo()
	case "redo":
		exec.Redo()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}
	return nil
}
