// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the evidence-engine CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/internal/secrets"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// defaultKnowledgePath is used by the knowledge commands when the
// configuration names no database.
const defaultKnowledgePath = "knowledge/articles.db"

// rootCmd is the base command for the evidence-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "evidence-engine",
	Short: "Find and rank scientific evidence for health questions",
	Long: `evidence-engine turns a free-text health question into search keywords,
queries Semantic Scholar, PubMed and a curated article knowledge base in
parallel rounds, ranks the unique papers and estimates how strongly they
agree.

Use search to run a query, knowledge to manage the curated articles, and
serve to expose the engine over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbose, _ := cmd.Flags().GetBool("verbose")
		setupLogger(verbose)

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			slog.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./evidence-engine.yaml or ~/.config/evidence-engine/evidence-engine.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("evidence-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "evidence-engine"))
		}
	}

	configureEnv(viper.GetViper())
	if err := setDefaults(viper.GetViper(), types.DefaultConfig()); err != nil {
		fmt.Fprintln(os.Stderr, "Seeding config defaults:", err)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setupLogger(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// configureEnv maps EVIDENCE_ENGINE_<SECTION>_<KEY> variables onto config
// keys, e.g. EVIDENCE_ENGINE_ENGINE_DEADLINE onto engine.deadline.
func configureEnv(v *viper.Viper) {
	v.SetEnvPrefix("EVIDENCE_ENGINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// credentialKeys are omitted from the YAML form of the defaults but must
// still be known to viper so the environment can set them.
var credentialKeys = []string{
	"semantic_scholar.api_key",
	"pubmed.api_key",
	"keywords.api_key",
	"keywords.base_url",
}

// setDefaults registers every leaf of cfg as a viper default. AutomaticEnv
// only consults the environment for keys viper already knows, so without
// this an override that is not also in the config file would be ignored.
func setDefaults(v *viper.Viper, cfg types.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("reading defaults: %w", err)
	}
	setLeaves(v, "", tree)
	for _, k := range credentialKeys {
		if !v.IsSet(k) {
			v.SetDefault(k, "")
		}
	}
	return nil
}

func setLeaves(v *viper.Viper, prefix string, node map[string]any) {
	for k, val := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if child, ok := val.(map[string]any); ok {
			setLeaves(v, key, child)
			continue
		}
		v.SetDefault(key, val)
	}
}

// loadConfig unmarshals the viper configuration over the defaults and fills
// credentials from the environment and the secrets directory.
func loadConfig() (types.Config, error) {
	cfg, err := decodeConfig(viper.GetViper())
	if err != nil {
		return cfg, err
	}
	secrets.Apply(&cfg, loadedSecrets, os.Getenv)
	return cfg, nil
}

func decodeConfig(v *viper.Viper) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
