package registry

import (
	"errors"
	"testing"
)

func validEntries() []CommandEntry {
	return []CommandEntry{
		{ID: "cmd-bold", Kind: KindSystemAction, Patterns: []string{"Negrito"}, Action: "toggleMark:bold"},
		{ID: "phrase-normal", Kind: KindPhrase, Patterns: []string{"exame normal"}, Action: "Exame dentro dos limites da normalidade."},
	}
}

func TestLoad_PublishesSnapshot(t *testing.T) {
	t.Parallel()

	r := New()
	snap, err := r.Load(validEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Version() != 1 {
		t.Errorf("version = %d, want 1", snap.Version())
	}
	if r.Current() != snap {
		t.Error("Current() did not return the loaded snapshot")
	}
	if snap.Len() != 2 {
		t.Errorf("Len() = %d, want 2", snap.Len())
	}
}

func TestLoad_NormalizesPatterns(t *testing.T) {
	t.Parallel()

	r := New()
	snap, err := r.Load([]CommandEntry{
		{ID: "cmd", Kind: KindSystemAction, Patterns: []string{"  Parágrafo,  Novo! "}, Action: "insertParagraph"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e, ok := snap.Entry("cmd")
	if !ok {
		t.Fatal("entry missing from snapshot")
	}
	if got, want := e.Patterns[0], "paragrafo novo"; got != want {
		t.Errorf("normalized pattern = %q, want %q", got, want)
	}
}

func TestLoad_VersionMonotonic(t *testing.T) {
	t.Parallel()

	r := New()
	var last uint64
	for i := 0; i < 5; i++ {
		snap, err := r.Load(validEntries())
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if snap.Version() <= last {
			t.Fatalf("version %d did not increase past %d", snap.Version(), last)
		}
		last = snap.Version()
	}

	// A failed load must not regress the published version.
	if _, err := r.Load([]CommandEntry{{ID: "", Kind: KindPhrase, Patterns: []string{"x"}}}); err == nil {
		t.Fatal("expected error for empty id")
	}
	if got := r.Current().Version(); got != last {
		t.Errorf("version after failed load = %d, want %d", got, last)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		entries []CommandEntry
	}{
		{"empty id", []CommandEntry{{ID: "", Kind: KindPhrase, Patterns: []string{"a"}, Action: "x"}}},
		{"no patterns", []CommandEntry{{ID: "a", Kind: KindPhrase, Patterns: nil, Action: "x"}}},
		{"empty pattern", []CommandEntry{{ID: "a", Kind: KindPhrase, Patterns: []string{""}, Action: "x"}}},
		{"unknown kind", []CommandEntry{{ID: "a", Kind: "macro", Patterns: []string{"a"}, Action: "x"}}},
		{"duplicate id", []CommandEntry{
			{ID: "a", Kind: KindPhrase, Patterns: []string{"um"}, Action: "x"},
			{ID: "a", Kind: KindPhrase, Patterns: []string{"dois"}, Action: "y"},
		}},
		{"punctuation-only pattern", []CommandEntry{{ID: "a", Kind: KindPhrase, Patterns: []string{"?!"}, Action: "x"}}},
		{"unknown variable type", []CommandEntry{{
			ID: "a", Kind: KindTemplate, Patterns: []string{"a"}, Action: "{{x}}",
			Variables: []VariableSpec{{Name: "x", Type: "decimal"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New()
			if _, err := r.Load(tt.entries); !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("error = %v, want ErrInvalidEntry", err)
			}
		})
	}
}

func TestSnapshot_OldSnapshotSurvivesReload(t *testing.T) {
	t.Parallel()

	r := New()
	old, err := r.Load(validEntries())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := r.Load([]CommandEntry{
		{ID: "cmd-italic", Kind: KindSystemAction, Patterns: []string{"itálico"}, Action: "toggleMark:italic"},
	}); err != nil {
		t.Fatalf("reload: %v", err)
	}

	// The borrowed snapshot still resolves its own entries.
	if _, ok := old.Entry("cmd-bold"); !ok {
		t.Error("old snapshot lost cmd-bold after reload")
	}
	// The new snapshot does not contain removed entries.
	if _, ok := r.Current().Entry("cmd-bold"); ok {
		t.Error("new snapshot still resolves removed entry")
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"Negrito", "negrito"},
		{"Nódulo de 5 mm.", "nodulo de 5 mm"},
		{"  coloca,   em:  NEGRITO!  ", "coloca em negrito"},
		{"sublinhado", "sublinhado"},
		{"çÇãÃêÊ", "ccaaee"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
