// Package phrasestore provides read access to the phrase/template libraries
// that feed the command registry. Two backends exist: a YAML file for
// standalone deployments and PostgreSQL for shared libraries, the latter with
// pgvector-powered semantic search over phrase texts.
//
// Reload is pull-based: the application asks a Store for the entry list and
// feeds it to the registry; storage never pushes.
package phrasestore

import (
	"context"

	"github.com/openlaudos/dictate/internal/registry"
)

// Store lists the command entries used to build or reload the registry.
type Store interface {
	// ListEntries returns all entries in a stable order. The result is a
	// fresh slice the caller may mutate.
	ListEntries(ctx context.Context) ([]registry.CommandEntry, error)

	// Close releases backing resources. Safe to call more than once.
	Close() error
}

// Suggestion is one semantic-search hit: a phrase whose text is close to the
// query in embedding space.
type Suggestion struct {
	EntryID string `json:"entry_id"`

	// Text is the phrase or template text.
	Text string `json:"text"`

	// Distance is the cosine distance to the query; smaller is closer.
	Distance float64 `json:"distance"`
}

// SemanticSearcher is implemented by stores that can rank phrases by
// embedding similarity to free text.
type SemanticSearcher interface {
	// SearchSimilar returns up to limit phrases closest to the query text,
	// nearest first.
	SearchSimilar(ctx context.Context, query string, limit int) ([]Suggestion, error)
}
