// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "evidence-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// RetryConfig controls backoff on HTTP 429 responses.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`

	// BaseDelay is the first backoff delay; it doubles per attempt (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`
}

// RankWeights are the composite-score weights of the weighted ranker.
type RankWeights struct {
	Authority     float64 `json:"authority" yaml:"authority" mapstructure:"authority"`
	Recency       float64 `json:"recency" yaml:"recency" mapstructure:"recency"`
	SourceQuality float64 `json:"source_quality" yaml:"source_quality" mapstructure:"source_quality"`
}

// RankConfig holds the ranker constants.
type RankConfig struct {
	Weights RankWeights `json:"weights" yaml:"weights" mapstructure:"weights"`

	// SourceQuality is the static trust prior per provider.
	SourceQuality map[Source]float64 `json:"source_quality" yaml:"source_quality" mapstructure:"source_quality"`

	// UnknownSourceQuality applies to sources missing from SourceQuality.
	UnknownSourceQuality float64 `json:"unknown_source_quality" yaml:"unknown_source_quality" mapstructure:"unknown_source_quality"`

	// RecencyHorizonYears is the age at which the recency score reaches 0 (default 20).
	RecencyHorizonYears int `json:"recency_horizon_years" yaml:"recency_horizon_years" mapstructure:"recency_horizon_years"`

	// UnknownYearRecency is the recency score for papers without a year (default 0.3).
	UnknownYearRecency float64 `json:"unknown_year_recency" yaml:"unknown_year_recency" mapstructure:"unknown_year_recency"`
}

// EngineConfig holds the round controller constants.
type EngineConfig struct {
	// TargetCount is the number of unique papers that ends the search early (default 10).
	TargetCount int `json:"target_count" yaml:"target_count" mapstructure:"target_count"`

	// Deadline is the overall wall-clock budget of one search (default 20s).
	Deadline time.Duration `json:"deadline" yaml:"deadline" mapstructure:"deadline"`

	// MaxRounds caps the number of fan-out rounds (default 3).
	MaxRounds int `json:"max_rounds" yaml:"max_rounds" mapstructure:"max_rounds"`

	// RoundDelay is the pause between rounds (default 1s).
	RoundDelay time.Duration `json:"round_delay" yaml:"round_delay" mapstructure:"round_delay"`

	// Workers caps the adapters a round runs at once (default 64). Each
	// round of each search gets its own pool of this size.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	Rank RankConfig `json:"rank" yaml:"rank" mapstructure:"rank"`
}

// SemanticScholarConfig holds settings for the citation-graph backend.
type SemanticScholarConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// APIKey is optional; it raises the provider's rate limit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Limit is the number of papers requested per round (default 15).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// PubMedConfig holds settings for the biomedical index backend.
type PubMedConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`
	Retry      RetryConfig `json:"retry" yaml:"retry" mapstructure:"retry"`

	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// APIKey is an optional NCBI E-utilities key.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Limit is the number of record identifiers requested per round (default 10).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// StepTimeout bounds each of the two E-utilities calls (default 8s).
	StepTimeout time.Duration `json:"step_timeout" yaml:"step_timeout" mapstructure:"step_timeout"`
}

// KnowledgeBaseConfig holds settings for the curated knowledge base.
type KnowledgeBaseConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file. Empty means unconfigured.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Limit is the number of articles returned per round (default 5).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`

	// CandidateLimit caps the rows scored per query (default 500).
	CandidateLimit int `json:"candidate_limit" yaml:"candidate_limit" mapstructure:"candidate_limit"`
}

// KeywordConfig holds settings for the keyword extractor's completion backend.
type KeywordConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the completion API: "openai" (any OpenAI-compatible
	// endpoint) or "claude".
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the credential. Without it the local tokenizer is used.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxInputChars truncates the query before it is sent (default 500).
	MaxInputChars int `json:"max_input_chars" yaml:"max_input_chars" mapstructure:"max_input_chars"`

	// MaxTokens caps the completion length (default 64).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig holds settings for the HTTP surface.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// Config groups all settings. It is built once and never mutated by the engine.
type Config struct {
	Engine          EngineConfig          `json:"engine" yaml:"engine" mapstructure:"engine"`
	SemanticScholar SemanticScholarConfig `json:"semantic_scholar" yaml:"semantic_scholar" mapstructure:"semantic_scholar"`
	PubMed          PubMedConfig          `json:"pubmed" yaml:"pubmed" mapstructure:"pubmed"`
	KnowledgeBase   KnowledgeBaseConfig   `json:"knowledge_base" yaml:"knowledge_base" mapstructure:"knowledge_base"`
	Keywords        KeywordConfig         `json:"keywords" yaml:"keywords" mapstructure:"keywords"`
	Server          ServerConfig          `json:"server" yaml:"server" mapstructure:"server"`
}

const defaultUserAgent = "evidence-engine/0.1"

// DefaultRankConfig returns the ranker constants: weights 0.4/0.3/0.3 and
// source quality pubmed 1.0, semantic_scholar 0.8, healthline 0.7.
func DefaultRankConfig() RankConfig {
	return RankConfig{
		Weights: RankWeights{Authority: 0.4, Recency: 0.3, SourceQuality: 0.3},
		SourceQuality: map[Source]float64{
			SourcePubMed:          1.0,
			SourceSemanticScholar: 0.8,
			SourceHealthline:      0.7,
		},
		UnknownSourceQuality: 0.5,
		RecencyHorizonYears:  20,
		UnknownYearRecency:   0.3,
	}
}

// DefaultEngineConfig returns the round controller constants.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		TargetCount: 10,
		Deadline:    20 * time.Second,
		MaxRounds:   3,
		RoundDelay:  time.Second,
		Workers:     64,
		Rank:        DefaultRankConfig(),
	}
}

// DefaultConfig returns a complete configuration with every backend enabled.
// Credentials and the knowledge base path are left empty.
func DefaultConfig() Config {
	retry := RetryConfig{MaxRetries: 2, BaseDelay: time.Second}
	return Config{
		Engine: DefaultEngineConfig(),
		SemanticScholar: SemanticScholarConfig{
			HTTPConfig: HTTPConfig{Timeout: 15 * time.Second, UserAgent: defaultUserAgent},
			Retry:      retry,
			Enabled:    true,
			Limit:      15,
		},
		PubMed: PubMedConfig{
			HTTPConfig:  HTTPConfig{Timeout: 15 * time.Second, UserAgent: defaultUserAgent},
			Retry:       retry,
			Enabled:     true,
			Limit:       10,
			StepTimeout: 8 * time.Second,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			Enabled:        true,
			Limit:          5,
			CandidateLimit: 500,
		},
		Keywords: KeywordConfig{
			HTTPConfig:    HTTPConfig{Timeout: 10 * time.Second, UserAgent: defaultUserAgent},
			Provider:      "openai",
			Model:         "claude-sonnet-4-5-20250929",
			MaxInputChars: 500,
			MaxTokens:     64,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
		},
	}
}
