// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: semantic-scholar-api-key, pubmed-api-key, openai-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Key file names.
const (
	SemanticScholarKey = "semantic-scholar-api-key"
	PubMedKey          = "pubmed-api-key"
	OpenAIKey          = "openai-api-key"
	AnthropicKey       = "anthropic-api-key"
)

// Environment variables honoured by Apply.
const (
	EnvSemanticScholarKey = "SEMANTIC_SCHOLAR_API_KEY"
	EnvPubMedKey          = "NCBI_API_KEY"
	EnvOpenAIKey          = "OPENAI_API_KEY"
	EnvOpenAIBase         = "OPENAI_API_BASE"
	EnvOpenAIModel        = "OPENAI_MODEL"
	EnvAnthropicKey       = "ANTHROPIC_API_KEY"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "err", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Apply fills empty credentials in cfg. A value already in the
// configuration wins, then the environment, then the secrets file.
// OPENAI_API_BASE and OPENAI_MODEL override the keyword endpoint and model
// whenever they are set. getenv is usually os.Getenv.
func Apply(cfg *types.Config, secrets map[string]string, getenv func(string) string) {
	pick := func(current, env, file string) string {
		if current != "" {
			return current
		}
		if v := strings.TrimSpace(getenv(env)); v != "" {
			return v
		}
		return secrets[file]
	}

	cfg.SemanticScholar.APIKey = pick(cfg.SemanticScholar.APIKey, EnvSemanticScholarKey, SemanticScholarKey)
	cfg.PubMed.APIKey = pick(cfg.PubMed.APIKey, EnvPubMedKey, PubMedKey)

	switch cfg.Keywords.Provider {
	case "claude":
		cfg.Keywords.APIKey = pick(cfg.Keywords.APIKey, EnvAnthropicKey, AnthropicKey)
	default:
		cfg.Keywords.APIKey = pick(cfg.Keywords.APIKey, EnvOpenAIKey, OpenAIKey)
		if v := strings.TrimSpace(getenv(EnvOpenAIBase)); v != "" {
			cfg.Keywords.BaseURL = v
		}
		if v := strings.TrimSpace(getenv(EnvOpenAIModel)); v != "" {
			cfg.Keywords.Model = v
		}
	}
}
