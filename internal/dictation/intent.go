package dictation

import "github.com/openlaudos/dictate/internal/registry"

// Intent is the closed set of outcomes a processed transcript can produce.
// The interface is sealed so every dispatch site can switch exhaustively.
type Intent interface {
	isIntent()
}

// LiteralText inserts dictated text verbatim at the cursor. This is the
// default outcome: most speech is prose, not a command.
type LiteralText struct {
	Text string
}

// CommandMatched carries the best fuzzy-match candidate for a transcript.
// EntryID must be re-resolved against the current snapshot at dispatch time;
// a reload may have removed the entry since matching.
type CommandMatched struct {
	EntryID string
	Score   float64
	Pattern string
}

// VariableFillPrompt asks the presentation layer to prompt the user for the
// next template variable. Retry is set when the previous utterance failed
// type coercion and the same variable is being asked again.
type VariableFillPrompt struct {
	TemplateID string
	Spec       registry.VariableSpec
	Retry      bool
}

func (LiteralText) isIntent()        {}
func (CommandMatched) isIntent()     {}
func (VariableFillPrompt) isIntent() {}
