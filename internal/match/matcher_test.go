package match

import (
	"testing"

	"github.com/openlaudos/dictate/internal/registry"
)

func snapshot(t *testing.T, entries ...registry.CommandEntry) *registry.Snapshot {
	t.Helper()
	r := registry.New()
	snap, err := r.Load(entries)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	return snap
}

func TestMatch_ExactSubstringScoresOne(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "cmd-bold", Kind: registry.KindSystemAction, Patterns: []string{"negrito"}, Action: "toggleMark:bold"},
	)
	m := New()

	got := m.Match("coloca em negrito aqui", snap)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].EntryID != "cmd-bold" {
		t.Errorf("entry = %q, want cmd-bold", got[0].EntryID)
	}
	if got[0].Score != 1.0 {
		t.Errorf("score = %v, want 1.0", got[0].Score)
	}
}

func TestMatch_NormalizationAppliedToTranscript(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "cmd-para", Kind: registry.KindSystemAction, Patterns: []string{"parágrafo novo"}, Action: "insertParagraph"},
	)
	m := New()

	got := m.Match("  Parágrafo,  NOVO! ", snap)
	if len(got) != 1 || got[0].Score != 1.0 {
		t.Fatalf("candidates = %+v, want single exact match", got)
	}
}

func TestMatch_LiteralDictationReturnsEmpty(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "cmd-bold", Kind: registry.KindSystemAction, Patterns: []string{"negrito"}, Action: "toggleMark:bold"},
		registry.CommandEntry{ID: "cmd-undo", Kind: registry.KindSystemAction, Patterns: []string{"desfazer"}, Action: "undo"},
	)
	m := New()

	// Ordinary report prose: no token overlaps any pattern above threshold.
	for _, transcript := range []string{
		"",
		"...",
		"rim direito com dimensoes preservadas",
		"sem alteracoes no parenquima hepatico",
	} {
		if got := m.Match(transcript, snap); len(got) != 0 {
			t.Errorf("Match(%q) = %+v, want empty", transcript, got)
		}
	}
}

func TestMatch_ExactRanksAboveFuzzy(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "fuzzy", Kind: registry.KindPhrase, Patterns: []string{"negrido forte"}, Action: "a"},
		registry.CommandEntry{ID: "exact", Kind: registry.KindSystemAction, Patterns: []string{"negrito"}, Action: "toggleMark:bold"},
	)
	m := New()

	got := m.Match("negrito", snap)
	if len(got) == 0 {
		t.Fatal("expected at least one candidate")
	}
	if got[0].EntryID != "exact" || got[0].Score != 1.0 {
		t.Errorf("top candidate = %+v, want exact at 1.0", got[0])
	}
}

func TestMatch_OrderPreservationScoresHigher(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "tbl", Kind: registry.KindSystemAction, Patterns: []string{"inserir tabela"}, Action: "insertTable"},
	)
	m := New(WithMinScore(0.3))

	// Tokens present in order but non-contiguous vs reversed order.
	ordered := m.Match("inserir uma tabela", snap)
	reversed := m.Match("tabela inserir", snap)

	if len(ordered) != 1 || len(reversed) != 1 {
		t.Fatalf("ordered=%d reversed=%d candidates, want 1 and 1", len(ordered), len(reversed))
	}
	if ordered[0].Score <= reversed[0].Score {
		t.Errorf("ordered score %v not greater than reversed score %v",
			ordered[0].Score, reversed[0].Score)
	}
}

func TestMatch_TieBreaksByShorterPatternThenInsertion(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "longer", Kind: registry.KindPhrase, Patterns: []string{"laudo normal completo"}, Action: "x"},
		registry.CommandEntry{ID: "short-b", Kind: registry.KindPhrase, Patterns: []string{"laudo normal"}, Action: "y"},
		registry.CommandEntry{ID: "short-a", Kind: registry.KindPhrase, Patterns: []string{"laudo padrao"}, Action: "z"},
	)
	m := New()

	got := m.Match("laudo normal completo laudo padrao", snap)
	if len(got) != 3 {
		t.Fatalf("candidates = %d, want 3", len(got))
	}
	// All three contain exactly; shorter patterns rank first, equal lengths
	// keep insertion order.
	if got[0].EntryID != "short-b" || got[1].EntryID != "short-a" || got[2].EntryID != "longer" {
		t.Errorf("order = %s, %s, %s; want short-b, short-a, longer",
			got[0].EntryID, got[1].EntryID, got[2].EntryID)
	}
}

func TestMatch_FuzzyToleratesTranscriptionNoise(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{ID: "cmd-center", Kind: registry.KindSystemAction, Patterns: []string{"centralizar"}, Action: "setTextAlign:center"},
	)
	m := New()

	// One substituted vowel: edit distance 1 over 11 runes.
	got := m.Match("centralizer", snap)
	if len(got) != 1 {
		t.Fatalf("candidates = %+v, want one fuzzy match", got)
	}
	if got[0].Score >= 1.0 || got[0].Score < DefaultMinScore {
		t.Errorf("score = %v, want in [%v, 1.0)", got[0].Score, DefaultMinScore)
	}
}

func TestMatch_BestPatternPerEntryWins(t *testing.T) {
	t.Parallel()

	snap := snapshot(t,
		registry.CommandEntry{
			ID:       "cmd-bold",
			Kind:     registry.KindSystemAction,
			Patterns: []string{"aplicar negrito agora", "negrito"},
			Action:   "toggleMark:bold",
		},
	)
	m := New()

	got := m.Match("negrito", snap)
	if len(got) != 1 {
		t.Fatalf("candidates = %d, want 1", len(got))
	}
	if got[0].Pattern != "negrito" || got[0].Score != 1.0 {
		t.Errorf("candidate = %+v, want exact alias at 1.0", got[0])
	}
}

func TestTokenSimilarity(t *testing.T) {
	t.Parallel()

	if got := tokenSimilarity("negrito", "negrito"); got != 1.0 {
		t.Errorf("identical tokens = %v, want 1.0", got)
	}
	if got := tokenSimilarity("negrito", "negrita"); got <= 0.8 {
		t.Errorf("one-edit tokens = %v, want > 0.8", got)
	}
	if got := tokenSimilarity("", "abc"); got != 0.0 {
		t.Errorf("empty vs abc = %v, want 0.0", got)
	}
}

func TestOrderFactor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		positions []int
		want      float64
	}{
		{"single", []int{3}, 1.0},
		{"ordered", []int{0, 2, 5}, 1.0},
		{"reversed", []int{5, 2, 0}, 0.5},
		{"half", []int{0, 2, 1}, 0.75},
	}
	for _, tt := range tests {
		if got := orderFactor(tt.positions); got != tt.want {
			t.Errorf("%s: orderFactor = %v, want %v", tt.name, got, tt.want)
		}
	}
}
