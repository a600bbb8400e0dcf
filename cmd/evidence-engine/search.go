// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/evidence"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [question]",
	Short: "Search for ranked evidence on a health question",
	Long: `Search extracts keywords from the question, queries every enabled
provider in parallel rounds until the target paper count, the round cap or
the deadline is reached, then ranks the unique papers and scores their
consensus.

Use --save to write the query and result to a YAML record and --load to
render a saved record without querying the providers again.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Bool("json", false, "output the result as JSON")
	searchCmd.Flags().Bool("csl", false, "output the ranked papers as CSL-YAML")
	searchCmd.Flags().String("save", "", "save the query and result to a YAML file")
	searchCmd.Flags().String("load", "", "render a saved search record instead of searching")
	searchCmd.Flags().Int("target", 0, "number of unique papers that ends the search (default 10)")
	searchCmd.Flags().Duration("deadline", 0, "overall search budget (default 20s)")
	searchCmd.Flags().Int("max-rounds", 0, "maximum number of fan-out rounds (default 3)")
	searchCmd.Flags().String("sources", "", "comma-separated providers to query: semantic_scholar, pubmed, healthline")
	searchCmd.Flags().String("db", "", "curated knowledge base path")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	cslOut, _ := cmd.Flags().GetBool("csl")
	if jsonOut && cslOut {
		return fmt.Errorf("--json and --csl are mutually exclusive")
	}
	out := cmd.OutOrStdout()

	if loadPath, _ := cmd.Flags().GetString("load"); loadPath != "" {
		rec, err := evidence.ReadRecord(loadPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Query: %s (saved %s)\n\n", rec.Query, rec.Timestamp.Format("2006-01-02 15:04"))
		return writeResult(cmd, rec.Result, jsonOut, cslOut)
	}

	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a question to search for")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applySearchFlags(cmd, &cfg); err != nil {
		return err
	}

	engine, err := evidence.New(cfg)
	if err != nil {
		return err
	}
	defer engine.Close()

	result := engine.Search(context.Background(), query)

	if savePath, _ := cmd.Flags().GetString("save"); savePath != "" {
		if err := evidence.WriteRecord(savePath, query, cfg, result); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved search to %s\n", savePath)
	}
	return writeResult(cmd, result, jsonOut, cslOut)
}

func writeResult(cmd *cobra.Command, r types.SearchResult, jsonOut, cslOut bool) error {
	out := cmd.OutOrStdout()
	switch {
	case jsonOut:
		return evidence.FormatJSON(r, out)
	case cslOut:
		return evidence.FormatCSL(r, out)
	default:
		evidence.FormatTable(r, out)
		return nil
	}
}

// applySearchFlags overrides cfg with the search flags that were set.
func applySearchFlags(cmd *cobra.Command, cfg *types.Config) error {
	if v, _ := cmd.Flags().GetInt("target"); v > 0 {
		cfg.Engine.TargetCount = v
	}
	if v, _ := cmd.Flags().GetDuration("deadline"); v > 0 {
		cfg.Engine.Deadline = v
	}
	if v, _ := cmd.Flags().GetInt("max-rounds"); v > 0 {
		cfg.Engine.MaxRounds = v
	}

	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.KnowledgeBase.Path = v
	} else if cfg.KnowledgeBase.Path == "" {
		if _, err := os.Stat(defaultKnowledgePath); err == nil {
			cfg.KnowledgeBase.Path = defaultKnowledgePath
		}
	}

	sources, _ := cmd.Flags().GetString("sources")
	if sources == "" {
		return nil
	}
	cfg.SemanticScholar.Enabled = false
	cfg.PubMed.Enabled = false
	cfg.KnowledgeBase.Enabled = false
	for _, s := range strings.Split(sources, ",") {
		switch types.Source(strings.TrimSpace(strings.ToLower(s))) {
		case types.SourceSemanticScholar:
			cfg.SemanticScholar.Enabled = true
		case types.SourcePubMed:
			cfg.PubMed.Enabled = true
		case types.SourceHealthline:
			cfg.KnowledgeBase.Enabled = true
		default:
			return fmt.Errorf("unknown source %q: use semantic_scholar, pubmed or healthline", s)
		}
	}
	return nil
}
