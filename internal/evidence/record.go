// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package evidence

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// Record is the on-disk representation of a search and its result. A saved
// record can be rendered again later without re-querying the providers.
type Record struct {
	Query     string             `yaml:"query"`
	Config    RecordConfig       `yaml:"config"`
	Result    types.SearchResult `yaml:"result"`
	Timestamp time.Time          `yaml:"timestamp"`
}

// RecordConfig stores the engine settings that produced the result.
type RecordConfig struct {
	TargetCount int           `yaml:"target_count"`
	Deadline    time.Duration `yaml:"deadline"`
	MaxRounds   int           `yaml:"max_rounds"`
	Sources     []string      `yaml:"sources"`
}

// WriteRecord saves query and result to a YAML file.
func WriteRecord(path, query string, cfg types.Config, r types.SearchResult) error {
	rec := Record{
		Query: query,
		Config: RecordConfig{
			TargetCount: cfg.Engine.TargetCount,
			Deadline:    cfg.Engine.Deadline,
			MaxRounds:   cfg.Engine.MaxRounds,
			Sources:     enabledSources(cfg),
		},
		Result:    r,
		Timestamp: time.Now().UTC(),
	}

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("marshaling search record: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadRecord loads a previously saved search record from disk.
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading search record: %w", err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing search record: %w", err)
	}
	return &rec, nil
}

func enabledSources(cfg types.Config) []string {
	var out []string
	if cfg.SemanticScholar.Enabled {
		out = append(out, string(types.SourceSemanticScholar))
	}
	if cfg.PubMed.Enabled {
		out = append(out, string(types.SourcePubMed))
	}
	if cfg.KnowledgeBase.Enabled {
		out = append(out, string(types.SourceHealthline))
	}
	return out
}
