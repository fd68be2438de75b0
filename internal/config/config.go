// Package config provides the configuration schema, loader, and file watcher
// for the dictation server.
package config

import "time"

// LogLevel controls log verbosity for the server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// PhraseSource selects the phrase library backend.
type PhraseSource string

const (
	PhraseSourceYAML     PhraseSource = "yaml"
	PhraseSourcePostgres PhraseSource = "postgres"
)

// IsValid reports whether s is a recognised phrase source.
func (s PhraseSource) IsValid() bool {
	return s == PhraseSourceYAML || s == PhraseSourcePostgres
}

// Config is the root configuration structure, typically loaded from a YAML
// file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Matching    MatchingConfig    `yaml:"matching"`
	Dictation   DictationConfig   `yaml:"dictation"`
	Phrases     PhrasesConfig     `yaml:"phrases"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Embeddings  EmbeddingsConfig  `yaml:"embeddings"`
	Remote      RemoteConfig      `yaml:"remote"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on. Defaults to ":8571".
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Defaults to "info".
	LogLevel LogLevel `yaml:"log_level"`
}

// MatchingConfig tunes the fuzzy matcher. The defaults are deliberately
// strict so free dictation rarely triggers a command by accident.
type MatchingConfig struct {
	// MinScore is the minimum aggregate score for a candidate to be
	// returned at all. Defaults to 0.4.
	MinScore float64 `yaml:"min_score"`

	// FuzzyThreshold is the minimum per-token similarity for two tokens to
	// count as equivalent. Defaults to 0.25.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold"`
}

// DictationConfig tunes the session state machine.
type DictationConfig struct {
	// Language is the BCP-47 tag passed to transcription backends.
	// Defaults to "pt-BR".
	Language string `yaml:"language"`

	// MinConfidence drops transcript chunks below this confidence. Zero
	// disables the filter.
	MinConfidence float64 `yaml:"min_confidence"`

	// IdleTimeout auto-releases the source arbitration lock after this much
	// silence, covering remote devices that vanish uncleanly. Defaults to
	// 45s; zero disables.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// PhrasesConfig selects and configures the phrase library backend.
type PhrasesConfig struct {
	// Source selects the backend. Defaults to "yaml".
	Source PhraseSource `yaml:"source"`

	// Path is the phrase library file for the yaml source.
	Path string `yaml:"path"`

	// PostgresDSN is the connection string for the postgres source.
	PostgresDSN string `yaml:"postgres_dsn"`

	// ReloadInterval is how often the registry is rebuilt from the store.
	// Defaults to 30s; zero disables periodic reload.
	ReloadInterval time.Duration `yaml:"reload_interval"`
}

// TranscriberConfig selects and configures the transcription backend.
type TranscriberConfig struct {
	// Name selects the backend: "openai", "whisper", or "whisper-native".
	// Empty disables server-side transcription (devices must transcribe
	// on-device).
	Name string `yaml:"name"`

	// APIKey authenticates against hosted backends.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the hosted backend's API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model within the backend.
	Model string `yaml:"model"`

	// ServerURL points at a whisper-server instance for the "whisper"
	// backend.
	ServerURL string `yaml:"server_url"`

	// ModelPath is the ggml model file for the "whisper-native" backend.
	ModelPath string `yaml:"model_path"`
}

// EmbeddingsConfig configures the embeddings provider behind semantic phrase
// search. Empty Name disables the feature.
type EmbeddingsConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`

	// Dimensions overrides the vector length for models the provider does
	// not know.
	Dimensions int `yaml:"dimensions"`
}

// RemoteConfig configures the mobile pairing channel.
type RemoteConfig struct {
	// Enabled turns the pairing endpoints on. Defaults to true.
	Enabled *bool `yaml:"enabled"`

	// TokenTTL is how long a pairing token stays redeemable. Defaults to 2m.
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// RemoteEnabled reports whether the pairing channel should be served.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Enabled == nil || *c.Remote.Enabled
}

// setDefaults fills zero values with their documented defaults.
func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8571"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = LogInfo
	}
	if c.Matching.MinScore == 0 {
		c.Matching.MinScore = 0.4
	}
	if c.Matching.FuzzyThreshold == 0 {
		c.Matching.FuzzyThreshold = 0.25
	}
	if c.Dictation.Language == "" {
		c.Dictation.Language = "pt-BR"
	}
	if c.Dictation.IdleTimeout == 0 {
		c.Dictation.IdleTimeout = 45 * time.Second
	}
	if c.Phrases.Source == "" {
		c.Phrases.Source = PhraseSourceYAML
	}
	if c.Phrases.ReloadInterval == 0 {
		c.Phrases.ReloadInterval = 30 * time.Second
	}
	if c.Remote.TokenTTL == 0 {
		c.Remote.TokenTTL = 2 * time.Minute
	}
}
