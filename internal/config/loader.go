package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// validTranscribers lists the recognised transcription backend names.
var validTranscribers = []string{"openai", "whisper", "whisper-native"}

// validEmbeddings lists the recognised embeddings provider names.
var validEmbeddings = []string{"openai"}

// Load reads the YAML configuration file at path, applies defaults, and
// returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals. Unknown YAML fields are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.setDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Matching.MinScore < 0 || cfg.Matching.MinScore > 1 {
		errs = append(errs, fmt.Errorf("matching.min_score %v must be in [0, 1]", cfg.Matching.MinScore))
	}
	if cfg.Matching.FuzzyThreshold < 0 || cfg.Matching.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("matching.fuzzy_threshold %v must be in [0, 1]", cfg.Matching.FuzzyThreshold))
	}
	if cfg.Dictation.MinConfidence < 0 || cfg.Dictation.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("dictation.min_confidence %v must be in [0, 1]", cfg.Dictation.MinConfidence))
	}
	if cfg.Dictation.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("dictation.idle_timeout must not be negative"))
	}

	switch cfg.Phrases.Source {
	case PhraseSourceYAML:
		if cfg.Phrases.Path == "" {
			errs = append(errs, fmt.Errorf("phrases.path is required for the yaml source"))
		}
	case PhraseSourcePostgres:
		if cfg.Phrases.PostgresDSN == "" {
			errs = append(errs, fmt.Errorf("phrases.postgres_dsn is required for the postgres source"))
		}
	default:
		errs = append(errs, fmt.Errorf("phrases.source %q is invalid; valid values: yaml, postgres", cfg.Phrases.Source))
	}

	if name := cfg.Transcriber.Name; name != "" {
		if !slices.Contains(validTranscribers, name) {
			errs = append(errs, fmt.Errorf("transcriber.name %q is unknown; valid values: %v", name, validTranscribers))
		}
		switch name {
		case "openai":
			if cfg.Transcriber.APIKey == "" {
				errs = append(errs, fmt.Errorf("transcriber.api_key is required for the openai backend"))
			}
		case "whisper":
			if cfg.Transcriber.ServerURL == "" {
				errs = append(errs, fmt.Errorf("transcriber.server_url is required for the whisper backend"))
			}
		case "whisper-native":
			if cfg.Transcriber.ModelPath == "" {
				errs = append(errs, fmt.Errorf("transcriber.model_path is required for the whisper-native backend"))
			}
		}
	}

	if name := cfg.Embeddings.Name; name != "" {
		if !slices.Contains(validEmbeddings, name) {
			errs = append(errs, fmt.Errorf("embeddings.name %q is unknown; valid values: %v", name, validEmbeddings))
		}
		if cfg.Embeddings.APIKey == "" {
			errs = append(errs, fmt.Errorf("embeddings.api_key is required when embeddings.name is set"))
		}
		if cfg.Phrases.Source != PhraseSourcePostgres {
			errs = append(errs, fmt.Errorf("embeddings require phrases.source: postgres (semantic search lives in the database)"))
		}
	}

	if cfg.Remote.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("remote.token_ttl must not be negative"))
	}

	return errors.Join(errs...)
}
