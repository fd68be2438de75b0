// Package registry holds the set of matchable voice command entries and
// publishes them as immutable, versioned snapshots.
//
// A snapshot is never mutated after publication. Reload builds a complete
// replacement snapshot and swaps the current pointer atomically, so a
// matching pass that started against an older snapshot keeps reading it
// without torn state. Callers that act on a match after a swap must
// re-resolve the entry ID against the current snapshot and treat a missing
// entry as stale.
package registry

// Kind classifies what a matched entry does. The set is closed; every
// consumption site switches exhaustively over these values.
type Kind string

const (
	// KindSystemAction invokes a named editor action (e.g. "toggleMark:bold").
	KindSystemAction Kind = "system-action"

	// KindPhrase inserts the entry's literal text at the cursor.
	KindPhrase Kind = "phrase"

	// KindTemplate inserts text after filling {{name}} placeholders, prompting
	// for each required variable in schema order.
	KindTemplate Kind = "template"
)

// IsValid reports whether k is a recognised entry kind.
func (k Kind) IsValid() bool {
	switch k {
	case KindSystemAction, KindPhrase, KindTemplate:
		return true
	}
	return false
}

// VariableType classifies a template variable. The set is closed; value
// coercion switches exhaustively over these values.
type VariableType string

const (
	VariableText        VariableType = "text"
	VariableNumber      VariableType = "number"
	VariableChoice      VariableType = "choice"
	VariableBoolean     VariableType = "boolean"
	VariableDate        VariableType = "date"
	VariableMeasurement VariableType = "measurement"
)

// IsValid reports whether t is a recognised variable type.
func (t VariableType) IsValid() bool {
	switch t {
	case VariableText, VariableNumber, VariableChoice, VariableBoolean, VariableDate, VariableMeasurement:
		return true
	}
	return false
}

// VariableSpec describes one template variable: its name as it appears inside
// {{...}} placeholders, the declared type used for value coercion, and the
// prompting metadata.
type VariableSpec struct {
	// Name is the placeholder name (without braces).
	Name string `yaml:"name" json:"name"`

	// Type declares how dictated values are coerced. Defaults to text
	// when empty.
	Type VariableType `yaml:"type" json:"type"`

	// Default is the value used when the user skips an optional variable.
	Default string `yaml:"default,omitempty" json:"default,omitempty"`

	// Required marks variables that must be filled before insertion.
	Required bool `yaml:"required" json:"required"`

	// Unit is appended to measurement values dictated without one (e.g. "mm").
	Unit string `yaml:"unit,omitempty" json:"unit,omitempty"`

	// Min and Max bound numeric and measurement values when non-nil.
	Min *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty" json:"max,omitempty"`

	// Choices lists the accepted values for choice variables.
	Choices []string `yaml:"choices,omitempty" json:"choices,omitempty"`
}

// CommandEntry is one matchable utterance: a set of trigger patterns mapped
// to an action payload.
type CommandEntry struct {
	// ID uniquely identifies the entry within a snapshot.
	ID string `yaml:"id" json:"id"`

	// Kind selects how Action is interpreted on dispatch.
	Kind Kind `yaml:"kind" json:"kind"`

	// Patterns are the trigger utterances, in priority order. Normalized
	// (lowercased, accent-stripped, punctuation-stripped) at load time.
	Patterns []string `yaml:"patterns" json:"patterns"`

	// Variables holds the template variable schemas, in prompt order.
	// Only meaningful for KindTemplate.
	Variables []VariableSpec `yaml:"variables,omitempty" json:"variables,omitempty"`

	// Action is the payload: an editor action name ("toggleMark:bold") for
	// system actions, literal text for phrases, template text for templates.
	Action string `yaml:"action" json:"action"`
}

// Validate checks the structural invariants of a single entry.
func (e CommandEntry) Validate() error {
	if e.ID == "" {
		return errInvalid("entry has empty id")
	}
	if !e.Kind.IsValid() {
		return errInvalid("entry %q has unknown kind %q", e.ID, e.Kind)
	}
	if len(e.Patterns) == 0 {
		return errInvalid("entry %q has no patterns", e.ID)
	}
	for _, p := range e.Patterns {
		if p == "" {
			return errInvalid("entry %q has an empty pattern", e.ID)
		}
	}
	for i, v := range e.Variables {
		if v.Name == "" {
			return errInvalid("entry %q variable %d has empty name", e.ID, i)
		}
		if v.Type != "" && !v.Type.IsValid() {
			return errInvalid("entry %q variable %q has unknown type %q", e.ID, v.Name, v.Type)
		}
	}
	return nil
}
