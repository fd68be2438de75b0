package phrasestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/openlaudos/dictate/internal/registry"
)

// Compile-time interface check.
var _ Store = (*YAMLStore)(nil)

// YAMLStore reads command entries from a YAML file. Each ListEntries call
// re-reads the file, so editing the library and triggering a reload is all a
// standalone deployment needs.
type YAMLStore struct {
	path string
}

// phraseFile is the on-disk document shape.
type phraseFile struct {
	Entries []registry.CommandEntry `yaml:"entries"`
}

// NewYAMLStore creates a store backed by the file at path. The file is not
// read until the first ListEntries call.
func NewYAMLStore(path string) (*YAMLStore, error) {
	if path == "" {
		return nil, errors.New("phrasestore: path must not be empty")
	}
	return &YAMLStore{path: path}, nil
}

// ListEntries implements Store. Unknown YAML fields are rejected so typos in
// the library file fail loudly instead of silently dropping configuration.
func (s *YAMLStore) ListEntries(ctx context.Context) ([]registry.CommandEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("phrasestore: open %q: %w", s.path, err)
	}
	defer f.Close()

	return decodeEntries(f)
}

// Close implements Store. A YAMLStore holds no resources between calls.
func (s *YAMLStore) Close() error { return nil }

func decodeEntries(r io.Reader) ([]registry.CommandEntry, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc phraseFile
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("phrasestore: decode yaml: %w", err)
	}
	return doc.Entries, nil
}
