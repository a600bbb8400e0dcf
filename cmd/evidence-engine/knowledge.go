// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/evidence-engine/internal/knowledge"
	"github.com/pdiddy/evidence-engine/internal/search"
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the curated article knowledge base",
	Long: `Knowledge manages the local SQLite database of curated health articles
that backs the healthline provider. Articles can be imported from YAML files,
fetched from web pages or read from RSS/Atom feeds, and exported or queried.`,
}

// --- import subcommand ---

var knowledgeImportCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Import articles from YAML files",
	Long: `Import reads YAML article files and upserts every article. Unchanged
articles are skipped on subsequent runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKnowledgeImport,
}

func runKnowledgeImport(cmd *cobra.Command, args []string) error {
	store, err := openKnowledge(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		summary, err := store.ImportFile(context.Background(), path, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		failed += summary.Failed
	}
	if failed > 0 {
		return fmt.Errorf("%d article(s) failed import", failed)
	}
	return nil
}

// --- fetch subcommand ---

var knowledgeFetchCmd = &cobra.Command{
	Use:   "fetch [urls...]",
	Short: "Fetch article pages and store their main content",
	Long: `Fetch downloads each article page, extracts the title, summary, tags
and main text, and upserts the result. Failed pages are reported and do not
stop the run.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runKnowledgeFetch,
}

func runKnowledgeFetch(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openKnowledge(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	client := &http.Client{Timeout: timeout}
	out := cmd.OutOrStdout()

	var articles []knowledge.Article
	failed := 0
	for _, u := range args {
		a, err := knowledge.FetchPage(context.Background(), client, u, source, cfg.SemanticScholar.UserAgent)
		if err != nil {
			fmt.Fprintf(out, "failed    %s: %v\n", u, err)
			failed++
			continue
		}
		articles = append(articles, a)
	}

	summary, err := store.Import(context.Background(), articles, out)
	if err != nil {
		return err
	}
	if failed+summary.Failed > 0 {
		return fmt.Errorf("%d page(s) failed", failed+summary.Failed)
	}
	return nil
}

// --- feed subcommand ---

var knowledgeFeedCmd = &cobra.Command{
	Use:   "feed [feed-url]",
	Short: "Import articles from an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeFeed,
}

func runKnowledgeFeed(cmd *cobra.Command, args []string) error {
	source, _ := cmd.Flags().GetString("source")

	store, err := openKnowledge(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	articles, err := knowledge.FetchFeed(context.Background(), args[0], source)
	if err != nil {
		return err
	}
	summary, err := store.Import(context.Background(), articles, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d article(s) failed import", summary.Failed)
	}
	return nil
}

// --- export subcommand ---

var knowledgeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the knowledge base to YAML or JSON",
	Long: `Export writes every article to stdout or --out. YAML output can be
imported again with knowledge import.`,
	RunE: runKnowledgeExport,
}

func runKnowledgeExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	store, err := openKnowledge(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	var w io.Writer = cmd.OutOrStdout()
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "yaml", "":
		err = store.ExportYAML(context.Background(), w)
	case "json":
		err = store.ExportJSON(context.Background(), w)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	if outPath != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", outPath)
	}
	return nil
}

// --- query subcommand ---

var knowledgeQueryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Query the knowledge base",
	Long: `Query lists articles matching the text, keyword and source filters.
With --score the text is scored the way the healthline provider scores a
search instead.`,
	RunE: runKnowledgeQuery,
}

func runKnowledgeQuery(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	keyword, _ := cmd.Flags().GetString("keyword")
	source, _ := cmd.Flags().GetString("source")
	limit, _ := cmd.Flags().GetInt("limit")
	score, _ := cmd.Flags().GetBool("score")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	store, err := openKnowledge(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if score {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		papers, err := search.NewCuratedBackend(store, cfg.KnowledgeBase).Search(context.Background(), text, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeIndentedJSON(out, papers)
		}
		if len(papers) == 0 {
			fmt.Fprintln(out, "No results found.")
			return nil
		}
		for i, p := range papers {
			fmt.Fprintf(out, "%-4d  %-60s  %s\n", i+1, p.Title, p.URL)
		}
		return nil
	}

	opts := knowledge.QueryOptions{Text: text, Keyword: keyword, Source: source, Limit: limit}
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide text, --keyword, or --source")
	}
	articles, err := store.Query(context.Background(), opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeIndentedJSON(out, articles)
	}
	return formatArticles(out, articles)
}

func formatArticles(w io.Writer, articles []knowledge.Article) error {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No results found.")
		return nil
	}

	fmt.Fprintf(w, "%-12s  %-50s  %-4s  %-12s  %s\n", "ID", "Title", "Year", "Source", "Keywords")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, a := range articles {
		title := a.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		year := ""
		if a.Year > 0 {
			year = fmt.Sprintf("%d", a.Year)
		}
		fmt.Fprintf(w, "%-12s  %-50s  %-4s  %-12s  %s\n",
			a.ID, title, year, a.Source, strings.Join(a.Keywords, ", "))
	}
	fmt.Fprintf(w, "\n%d results\n", len(articles))
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- shared helpers ---

// openKnowledge opens the database named by --db, the configuration or the
// default path, in that order.
func openKnowledge(cmd *cobra.Command) (*knowledge.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	kb := cfg.KnowledgeBase
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		kb.Path = p
	}
	if kb.Path == "" {
		kb.Path = defaultKnowledgePath
	}
	return knowledge.Open(kb)
}

func init() {
	knowledgeCmd.PersistentFlags().String("db", "", "knowledge base path (default knowledge/articles.db)")

	knowledgeFetchCmd.Flags().String("source", "", "publisher tag (default: derived from the host)")
	knowledgeFetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (0 = none)")

	knowledgeFeedCmd.Flags().String("source", "", "publisher tag (default: derived from each item's host)")

	knowledgeExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	knowledgeExportCmd.Flags().String("out", "", "output file (default stdout)")

	knowledgeQueryCmd.Flags().String("keyword", "", "filter by stored keyword")
	knowledgeQueryCmd.Flags().String("source", "", "filter by publisher")
	knowledgeQueryCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	knowledgeQueryCmd.Flags().Bool("score", false, "rank by healthline provider scoring")
	knowledgeQueryCmd.Flags().Bool("json", false, "output results as JSON")

	knowledgeCmd.AddCommand(knowledgeImportCmd)
	knowledgeCmd.AddCommand(knowledgeFetchCmd)
	knowledgeCmd.AddCommand(knowledgeFeedCmd)
	knowledgeCmd.AddCommand(knowledgeExportCmd)
	knowledgeCmd.AddCommand(knowledgeQueryCmd)

	rootCmd.AddCommand(knowledgeCmd)
}
