package dictation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/openlaudos/dictate/internal/editor"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/internal/registry"
	"github.com/openlaudos/dictate/internal/template"
)

// PromptFunc surfaces a variable prompt to the presentation layer. Called
// synchronously from Dispatch; implementations should hand off quickly.
type PromptFunc func(VariableFillPrompt)

// DispatcherOption configures a [Dispatcher].
type DispatcherOption func(*Dispatcher)

// WithPromptFunc sets the callback used to surface variable fill prompts.
// Without one, prompts are logged and the fill proceeds on the next utterance
// regardless.
func WithPromptFunc(fn PromptFunc) DispatcherOption {
	return func(d *Dispatcher) { d.prompt = fn }
}

// WithDispatcherLogger sets the logger. Defaults to slog.Default().
func WithDispatcherLogger(log *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.log = log }
}

// Dispatcher executes dispatch intents against the editor. It owns the
// transient variable fill state opened by template matches: while a fill is
// open, literal utterances are consumed as variable values instead of being
// inserted.
//
// Safe for concurrent use, though a session feeds it one intent at a time.
type Dispatcher struct {
	reg     *registry.Registry
	exec    editor.Executor
	metrics *observe.Metrics
	log     *slog.Logger
	prompt  PromptFunc

	mu   sync.Mutex
	fill *fillState
}

// fillState tracks one in-progress template fill. pending holds the
// required variables still to be asked, in schema order.
type fillState struct {
	templateID string
	text       string
	pending    []registry.VariableSpec
	values     map[string]any
	idx        int
}

// NewDispatcher creates a Dispatcher bound to the given registry, editor
// executor, and metrics.
func NewDispatcher(reg *registry.Registry, exec editor.Executor, metrics *observe.Metrics, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		reg:     reg,
		exec:    exec,
		metrics: metrics,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FillActive reports whether a variable fill is in progress. Sessions use
// this to route utterances straight to the fill instead of matching them.
func (d *Dispatcher) FillActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fill != nil
}

// Cancel discards any in-progress variable fill. Idempotent.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	fs := d.fill
	d.fill = nil
	d.mu.Unlock()
	if fs != nil {
		d.log.Info("dispatcher: variable fill cancelled",
			"template_id", fs.templateID,
			"collected", len(fs.values),
		)
	}
}

// Dispatch executes one intent. Literal text is inserted at the cursor, or
// consumed as a variable value when a fill is open. Matched commands are
// re-resolved against the current snapshot; an entry removed by a reload
// since matching is dropped silently and counted, never surfaced to the
// user.
func (d *Dispatcher) Dispatch(ctx context.Context, intent Intent) error {
	switch it := intent.(type) {
	case LiteralText:
		if d.FillActive() {
			return d.fillValue(it.Text)
		}
		d.exec.InsertText(it.Text)
		return nil
	case CommandMatched:
		return d.dispatchCommand(ctx, it)
	case VariableFillPrompt:
		d.emitPrompt(it)
		return nil
	default:
		return fmt.Errorf("dispatcher: unhandled intent type %T", intent)
	}
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, it CommandMatched) error {
	snap := d.reg.Current()
	entry, ok := snap.Entry(it.EntryID)
	if !ok {
		d.log.Warn("dispatcher: dropping match, entry removed by reload",
			"entry_id", it.EntryID,
			"snapshot_version", snap.Version(),
		)
		d.metrics.StaleMatches.Add(ctx, 1)
		return nil
	}

	d.metrics.CommandsDispatched.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", string(entry.Kind))))
	d.log.Debug("dispatcher: executing command",
		"entry_id", entry.ID,
		"kind", string(entry.Kind),
		"score", it.Score,
	)

	switch entry.Kind {
	case registry.KindSystemAction:
		return editor.Invoke(d.exec, entry.Action)
	case registry.KindPhrase:
		d.exec.InsertText(entry.Action)
		return nil
	case registry.KindTemplate:
		return d.beginFill(entry)
	default:
		return fmt.Errorf("dispatcher: unhandled entry kind %q", entry.Kind)
	}
}

// beginFill opens a fill for a matched template. Optional variables are
// pre-filled from their defaults; only required variables are prompted, in
// schema order. A template with nothing to ask is substituted and inserted
// immediately.
func (d *Dispatcher) beginFill(entry registry.CommandEntry) error {
	values := make(map[string]any, len(entry.Variables))
	var pending []registry.VariableSpec
	for _, v := range entry.Variables {
		if v.Required {
			pending = append(pending, v)
			continue
		}
		if v.Default != "" {
			values[v.Name] = v.Default
		}
	}

	if len(pending) == 0 {
		d.exec.InsertText(template.Substitute(entry.Action, values))
		return nil
	}

	fs := &fillState{
		templateID: entry.ID,
		text:       entry.Action,
		pending:    pending,
		values:     values,
	}
	d.mu.Lock()
	d.fill = fs
	d.mu.Unlock()

	d.emitPrompt(VariableFillPrompt{TemplateID: entry.ID, Spec: pending[0]})
	return nil
}

// fillValue consumes one utterance as the value for the pending variable.
// A coercion failure re-prompts the same variable; the fill never advances
// past a value it could not parse.
func (d *Dispatcher) fillValue(raw string) error {
	d.mu.Lock()
	fs := d.fill
	if fs == nil {
		d.mu.Unlock()
		d.exec.InsertText(raw)
		return nil
	}

	spec := fs.pending[fs.idx]
	coerced, err := template.Coerce(spec, raw)
	if err != nil {
		d.mu.Unlock()
		d.log.Info("dispatcher: value rejected, re-prompting",
			"template_id", fs.templateID,
			"variable", spec.Name,
			"err", err,
		)
		d.emitPrompt(VariableFillPrompt{TemplateID: fs.templateID, Spec: spec, Retry: true})
		return nil
	}

	fs.values[spec.Name] = coerced
	fs.idx++
	if fs.idx < len(fs.pending) {
		next := fs.pending[fs.idx]
		d.mu.Unlock()
		d.emitPrompt(VariableFillPrompt{TemplateID: fs.templateID, Spec: next})
		return nil
	}

	d.fill = nil
	text := template.Substitute(fs.text, fs.values)
	d.mu.Unlock()

	d.exec.InsertText(text)
	return nil
}

func (d *Dispatcher) emitPrompt(p VariableFillPrompt) {
	if d.prompt != nil {
		d.prompt(p)
		return
	}
	d.log.Info("dispatcher: awaiting variable value",
		"template_id", p.TemplateID,
		"variable", p.Spec.Name,
		"retry", p.Retry,
	)
}
