package template

import (
	"errors"
	"testing"

	"github.com/openlaudos/dictate/internal/registry"
)

func TestExtractVariables(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "Exame dentro dos limites da normalidade.", nil},
		{"single", "Nódulo de {{tamanho}}", []string{"tamanho"}},
		{"two", "Nódulo de {{tamanho}} {{unidade}}", []string{"tamanho", "unidade"}},
		{"duplicates kept in order", "{{idade}} anos, {{idade}} meses", []string{"idade", "idade"}},
		{"unterminated ignored", "valor {{aberto e {{fechado}}", []string{"fechado"}},
		{"empty braces ignored", "{{}} {{x}}", []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ExtractVariables(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("ExtractVariables(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExtractVariables(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestHasVariables(t *testing.T) {
	t.Parallel()

	if !HasVariables("Nódulo de {{tamanho}} mm") {
		t.Error("expected true for text with placeholder")
	}
	if HasVariables("Nódulo de 5 mm") {
		t.Error("expected false for plain text")
	}
	if HasVariables("chaves {{soltas") {
		t.Error("expected false for unterminated braces")
	}
}

func TestSubstitute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		text   string
		values map[string]any
		want   string
	}{
		{
			"full substitution with stringification",
			"Nódulo de {{tamanho}} {{unidade}}",
			map[string]any{"tamanho": 5, "unidade": "mm"},
			"Nódulo de 5 mm",
		},
		{
			"missing key stays verbatim",
			"{{a}} {{b}}",
			map[string]any{"a": "x"},
			"x {{b}}",
		},
		{
			"duplicate placeholder filled everywhere",
			"{{idade}} anos e {{idade}} meses",
			map[string]any{"idade": 3},
			"3 anos e 3 meses",
		},
		{
			"malformed braces untouched",
			"abre {{sem fim e {{ok}}",
			map[string]any{"ok": "sim"},
			"abre {{sem fim e sim",
		},
		{
			"no values",
			"{{a}}",
			nil,
			"{{a}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Substitute(tt.text, tt.values); got != tt.want {
				t.Errorf("Substitute(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func floatPtr(f float64) *float64 { return &f }

func TestCoerce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    registry.VariableSpec
		raw     string
		want    string
		wantErr bool
	}{
		{"text passthrough", registry.VariableSpec{Name: "obs", Type: registry.VariableText}, " sem alterações ", "sem alterações", false},
		{"untyped defaults to text", registry.VariableSpec{Name: "obs"}, "livre", "livre", false},
		{"number dot", registry.VariableSpec{Name: "n", Type: registry.VariableNumber}, "3.5", "3.5", false},
		{"number comma", registry.VariableSpec{Name: "n", Type: registry.VariableNumber}, "3,5", "3.5", false},
		{"number integer", registry.VariableSpec{Name: "n", Type: registry.VariableNumber}, "5", "5", false},
		{"number garbage", registry.VariableSpec{Name: "n", Type: registry.VariableNumber}, "cinco talvez", "", true},
		{"number below min", registry.VariableSpec{Name: "n", Type: registry.VariableNumber, Min: floatPtr(1)}, "0,5", "", true},
		{"number above max", registry.VariableSpec{Name: "n", Type: registry.VariableNumber, Max: floatPtr(10)}, "11", "", true},
		{"choice canonical form", registry.VariableSpec{Name: "lado", Type: registry.VariableChoice, Choices: []string{"Direito", "Esquerdo"}}, "direito", "Direito", false},
		{"choice accent-insensitive", registry.VariableSpec{Name: "grau", Type: registry.VariableChoice, Choices: []string{"Grau São"}}, "grau sao", "Grau São", false},
		{"choice invalid", registry.VariableSpec{Name: "lado", Type: registry.VariableChoice, Choices: []string{"Direito"}}, "bilateral", "", true},
		{"boolean sim", registry.VariableSpec{Name: "b", Type: registry.VariableBoolean}, "Sim", "sim", false},
		{"boolean nao", registry.VariableSpec{Name: "b", Type: registry.VariableBoolean}, "não", "não", false},
		{"boolean invalid", registry.VariableSpec{Name: "b", Type: registry.VariableBoolean}, "talvez", "", true},
		{"date iso", registry.VariableSpec{Name: "d", Type: registry.VariableDate}, "2026-02-14", "14/02/2026", false},
		{"date br slash", registry.VariableSpec{Name: "d", Type: registry.VariableDate}, "14/02/2026", "14/02/2026", false},
		{"date invalid", registry.VariableSpec{Name: "d", Type: registry.VariableDate}, "ontem", "", true},
		{"measurement with unit", registry.VariableSpec{Name: "m", Type: registry.VariableMeasurement}, "5 mm", "5 mm", false},
		{"measurement comma no space", registry.VariableSpec{Name: "m", Type: registry.VariableMeasurement}, "3,5cm", "3.5 cm", false},
		{"measurement default unit", registry.VariableSpec{Name: "m", Type: registry.VariableMeasurement, Unit: "mm"}, "12", "12 mm", false},
		{"measurement no number", registry.VariableSpec{Name: "m", Type: registry.VariableMeasurement}, "grande", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Coerce(tt.spec, tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrCoercion) {
					t.Fatalf("error = %v, want ErrCoercion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Coerce(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
