// Package match scores transcripts against registry snapshots and returns
// ranked command candidates.
//
// The scoring pipeline has two stages per pattern:
//
//  1. Exact stage: when the normalized pattern occurs verbatim inside the
//     normalized transcript (on word boundaries), the pattern scores 1.0.
//
//  2. Token stage: each pattern token is aligned to its most similar
//     transcript token using normalized Levenshtein similarity, with a Double
//     Metaphone overlap floor so phonetically equivalent tokens ("cabeçalho"
//     vs "cabesalho") survive transcription noise. Tokens whose best
//     similarity clears the fuzzy threshold count as matched; the aggregate
//     score is the squared-similarity-weighted fraction of matched pattern
//     tokens, discounted when the matched tokens appear out of pattern order
//     in the transcript.
//
// Edit distance is used for the per-token gate instead of Jaro-Winkler
// because Jaro-Winkler assigns unrelated words a high baseline (~0.5), which
// at a 0.25 token threshold would let free dictation accumulate spurious
// matches.
//
// The thresholds are deliberately strict: most dictated speech is literal
// report text, and returning no candidate is the common, non-error outcome.
package match

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/openlaudos/dictate/internal/registry"
)

const (
	// DefaultMinScore is the minimum aggregate score for a candidate to be
	// returned at all.
	DefaultMinScore = 0.4

	// DefaultFuzzyThreshold is the minimum per-token similarity for two
	// tokens to be considered equivalent.
	DefaultFuzzyThreshold = 0.25

	// phoneticFloor is the similarity assigned to token pairs that share a
	// Double Metaphone code but diverge textually.
	phoneticFloor = 0.85
)

// Candidate is one ranked match result. It references the entry by ID so the
// caller can re-resolve it against the current snapshot at dispatch time.
type Candidate struct {
	// EntryID identifies the matched entry within the snapshot the match ran
	// against.
	EntryID string

	// Score is the aggregate similarity in [0,1]. Exact pattern occurrences
	// score 1.0.
	Score float64

	// Pattern is the normalized pattern that produced the score.
	Pattern string
}

// Option is a functional option for configuring a [Matcher].
type Option func(*Matcher)

// WithMinScore sets the minimum aggregate candidate score. Default: 0.4.
func WithMinScore(s float64) Option {
	return func(m *Matcher) { m.minScore = s }
}

// WithFuzzyThreshold sets the minimum per-token similarity. Default: 0.25.
func WithFuzzyThreshold(t float64) Option {
	return func(m *Matcher) { m.fuzzyThreshold = t }
}

// Matcher scores transcripts against snapshot entries. It is read-only after
// construction and safe for concurrent use.
type Matcher struct {
	minScore       float64
	fuzzyThreshold float64
}

// New returns a Matcher with the supplied options applied over the defaults.
func New(opts ...Option) *Matcher {
	m := &Matcher{
		minScore:       DefaultMinScore,
		fuzzyThreshold: DefaultFuzzyThreshold,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Match scores transcript against every pattern in snap and returns the
// candidates clearing the minimum score, highest first. Ties break by shorter
// pattern length, then by entry insertion order. The empty slice (not an
// error) means the transcript is literal dictation.
func (m *Matcher) Match(transcript string, snap *registry.Snapshot) []Candidate {
	normalized := registry.Normalize(transcript)
	if normalized == "" || snap == nil || snap.Len() == 0 {
		return nil
	}
	tokens := strings.Fields(normalized)
	tokenCodes := metaphoneCodes(tokens)

	type ranked struct {
		Candidate
		insertion int
	}
	var results []ranked

	for i, entry := range snap.Entries() {
		best := Candidate{}
		for _, pattern := range entry.Patterns {
			score := m.scorePattern(normalized, tokens, tokenCodes, pattern)
			if score > best.Score {
				best = Candidate{EntryID: entry.ID, Score: score, Pattern: pattern}
			}
		}
		if best.Score >= m.minScore {
			results = append(results, ranked{Candidate: best, insertion: i})
		}
	}

	sort.SliceStable(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		if len(results[a].Pattern) != len(results[b].Pattern) {
			return len(results[a].Pattern) < len(results[b].Pattern)
		}
		return results[a].insertion < results[b].insertion
	})

	out := make([]Candidate, len(results))
	for i, r := range results {
		out[i] = r.Candidate
	}
	return out
}

// scorePattern scores one normalized pattern against the tokenized transcript.
func (m *Matcher) scorePattern(transcript string, tokens []string, tokenCodes []codeSet, pattern string) float64 {
	// Exact stage: verbatim occurrence on word boundaries.
	if strings.Contains(" "+transcript+" ", " "+pattern+" ") {
		return 1.0
	}

	patternTokens := strings.Fields(pattern)
	if len(patternTokens) == 0 {
		return 0
	}

	var (
		simSum    float64
		positions []int
	)
	for _, pt := range patternTokens {
		ptCodes := codesFor(pt)
		bestSim, bestPos := 0.0, -1
		for i, tt := range tokens {
			sim := tokenSimilarity(pt, tt)
			if sim < phoneticFloor && ptCodes.overlaps(tokenCodes[i]) {
				sim = phoneticFloor
			}
			if sim > bestSim {
				bestSim, bestPos = sim, i
			}
		}
		if bestSim >= m.fuzzyThreshold {
			// Squared contribution: a lone mediocre token alignment (common
			// in free dictation, e.g. "direito" against "negrito") must not
			// clear the aggregate floor, while a genuine one-edit mangle
			// (~0.9) still scores high.
			simSum += bestSim * bestSim
			positions = append(positions, bestPos)
		}
	}
	if len(positions) == 0 {
		return 0
	}

	return simSum / float64(len(patternTokens)) * orderFactor(positions)
}

// orderFactor discounts matches whose tokens appear out of pattern order in
// the transcript. Fully ordered positions keep the full score; a fully
// reversed match keeps half.
func orderFactor(positions []int) float64 {
	if len(positions) < 2 {
		return 1.0
	}
	ordered := 0
	for i := 1; i < len(positions); i++ {
		if positions[i] >= positions[i-1] {
			ordered++
		}
	}
	return 0.5 + 0.5*float64(ordered)/float64(len(positions)-1)
}

// tokenSimilarity returns 1 - Levenshtein(a,b)/max(len(a),len(b)) over runes.
// Identical tokens score 1.0; completely disjoint tokens approach 0.
func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	if longest == 0 {
		return 0
	}
	d := matchr.Levenshtein(a, b)
	return 1.0 - float64(d)/float64(longest)
}

// codeSet holds the Double Metaphone codes for one token.
type codeSet struct {
	primary   string
	secondary string
}

func codesFor(token string) codeSet {
	p, s := matchr.DoubleMetaphone(token)
	return codeSet{primary: p, secondary: s}
}

func (c codeSet) overlaps(o codeSet) bool {
	if c.primary == "" && c.secondary == "" {
		return false
	}
	return (c.primary != "" && (c.primary == o.primary || c.primary == o.secondary)) ||
		(c.secondary != "" && (c.secondary == o.primary || c.secondary == o.secondary))
}

func metaphoneCodes(tokens []string) []codeSet {
	codes := make([]codeSet, len(tokens))
	for i, t := range tokens {
		codes[i] = codesFor(t)
	}
	return codes
}
