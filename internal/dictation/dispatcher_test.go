package dictation

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/openlaudos/dictate/internal/editor/mock"
	"github.com/openlaudos/dictate/internal/observe"
	"github.com/openlaudos/dictate/internal/registry"
)

func newTestMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	m, err := observe.NewMetrics(noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m
}

func loadEntries(t *testing.T, reg *registry.Registry, entries ...registry.CommandEntry) {
	t.Helper()
	if _, err := reg.Load(entries); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestDispatcher_LiteralText(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t))

	if err := d.Dispatch(context.Background(), LiteralText{Text: "rim direito tópico"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0] != "insertText(rim direito tópico)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestDispatcher_SystemAction(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "cmd-bold", Kind: registry.KindSystemAction,
		Patterns: []string{"negrito"}, Action: "toggleMark:bold",
	})
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t))

	if err := d.Dispatch(context.Background(), CommandMatched{EntryID: "cmd-bold", Score: 1.0}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0] != "toggleMark(bold)" {
		t.Errorf("calls = %v, want [toggleMark(bold)]", calls)
	}
}

func TestDispatcher_PhraseInsertsLiteral(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "phr-normal", Kind: registry.KindPhrase,
		Patterns: []string{"figado normal"},
		Action:   "Fígado com dimensões e contornos preservados.",
	})
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t))

	if err := d.Dispatch(context.Background(), CommandMatched{EntryID: "phr-normal", Score: 1.0}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0] != "insertText(Fígado com dimensões e contornos preservados.)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestDispatcher_StaleMatchDroppedSilently(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "cmd-bold", Kind: registry.KindSystemAction,
		Patterns: []string{"negrito"}, Action: "toggleMark:bold",
	})
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t))

	// Reload removes the entry between matching and dispatch.
	loadEntries(t, reg, registry.CommandEntry{
		ID: "cmd-italic", Kind: registry.KindSystemAction,
		Patterns: []string{"italico"}, Action: "toggleMark:italic",
	})

	if err := d.Dispatch(context.Background(), CommandMatched{EntryID: "cmd-bold", Score: 1.0}); err != nil {
		t.Fatalf("stale match must not error, got: %v", err)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Errorf("stale match executed %v, want nothing", calls)
	}
}

func TestDispatcher_TemplateFillFlow(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "tpl-nodulo", Kind: registry.KindTemplate,
		Patterns: []string{"nodulo hepatico"},
		Action:   "Nódulo hepático de {{tamanho}} {{unidade}}.",
		Variables: []registry.VariableSpec{
			{Name: "tamanho", Type: registry.VariableNumber, Required: true},
			{Name: "unidade", Type: registry.VariableText, Default: "mm"},
		},
	})

	var prompts []VariableFillPrompt
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t),
		WithPromptFunc(func(p VariableFillPrompt) { prompts = append(prompts, p) }))

	ctx := context.Background()
	if err := d.Dispatch(ctx, CommandMatched{EntryID: "tpl-nodulo", Score: 1.0}); err != nil {
		t.Fatalf("Dispatch template: %v", err)
	}
	if !d.FillActive() {
		t.Fatal("expected an open variable fill")
	}
	if len(prompts) != 1 || prompts[0].Spec.Name != "tamanho" || prompts[0].Retry {
		t.Fatalf("prompts = %+v, want initial prompt for tamanho", prompts)
	}
	if calls := rec.Calls(); len(calls) != 0 {
		t.Fatalf("nothing should be inserted yet, got %v", calls)
	}

	// A value that fails numeric coercion re-prompts the same variable.
	if err := d.Dispatch(ctx, LiteralText{Text: "bem grande"}); err != nil {
		t.Fatalf("Dispatch bad value: %v", err)
	}
	if len(prompts) != 2 || prompts[1].Spec.Name != "tamanho" || !prompts[1].Retry {
		t.Fatalf("prompts = %+v, want retry prompt for tamanho", prompts)
	}

	// Decimal comma parses; the fill completes and the default unit applies.
	if err := d.Dispatch(ctx, LiteralText{Text: "1,5"}); err != nil {
		t.Fatalf("Dispatch value: %v", err)
	}
	if d.FillActive() {
		t.Fatal("fill should be closed after the last required variable")
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0] != "insertText(Nódulo hepático de 1.5 mm.)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestDispatcher_TemplateWithoutRequiredVarsInsertsImmediately(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "tpl-conclusao", Kind: registry.KindTemplate,
		Patterns: []string{"conclusao padrao"},
		Action:   "Exame dentro dos limites da normalidade{{obs}}.",
		Variables: []registry.VariableSpec{
			{Name: "obs", Type: registry.VariableText, Default: ""},
		},
	})
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t))

	if err := d.Dispatch(context.Background(), CommandMatched{EntryID: "tpl-conclusao", Score: 1.0}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if d.FillActive() {
		t.Fatal("no fill should be open")
	}
	calls := rec.Calls()
	// No value supplied and no default: the placeholder stays verbatim.
	if len(calls) != 1 || calls[0] != "insertText(Exame dentro dos limites da normalidade{{obs}}.)" {
		t.Errorf("calls = %v", calls)
	}
}

func TestDispatcher_CancelDiscardsFill(t *testing.T) {
	t.Parallel()
	reg := registry.New()
	loadEntries(t, reg, registry.CommandEntry{
		ID: "tpl-medida", Kind: registry.KindTemplate,
		Patterns: []string{"medida"},
		Action:   "Mede {{valor}}.",
		Variables: []registry.VariableSpec{
			{Name: "valor", Type: registry.VariableMeasurement, Required: true, Unit: "cm"},
		},
	})
	rec := &mock.Executor{}
	d := NewDispatcher(reg, rec, newTestMetrics(t), WithPromptFunc(func(VariableFillPrompt) {}))

	ctx := context.Background()
	if err := d.Dispatch(ctx, CommandMatched{EntryID: "tpl-medida", Score: 1.0}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	d.Cancel()
	d.Cancel() // idempotent
	if d.FillActive() {
		t.Fatal("fill still open after Cancel")
	}

	// Subsequent utterances go straight to the editor again.
	if err := d.Dispatch(ctx, LiteralText{Text: "sem alterações"}); err != nil {
		t.Fatalf("Dispatch after cancel: %v", err)
	}
	calls := rec.Calls()
	if len(calls) != 1 || calls[0] != "insertText(sem alterações)" {
		t.Errorf("calls = %v", calls)
	}
}
