package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
)

var (
	flagDiscoverK        int
	flagDiscoverMinScore float64
	flagDiscoverJSON     bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover <query>",
	Short: "Find the frameworks most relevant to a free-text question",
	Long: `Resolve a natural-language query against the catalog and print the most
relevant frameworks, deduplicated and ranked by cosine similarity.

An empty result set means nothing in the library was similar enough; it is
not an error.

Example:
  fwassist discover "client has high employee turnover"
  fwassist discover --k 3 --min-score 0.7 "low conversion rates"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&flagDiscoverK, "k", 0, "Number of results (default from config)")
	discoverCmd.Flags().Float64Var(&flagDiscoverMinScore, "min-score", 0, "Minimum cosine similarity (default from config)")
	discoverCmd.Flags().BoolVar(&flagDiscoverJSON, "json", false, "Emit results as JSON")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	if cmd.Flags().Changed("k") {
		cfg.Discovery.FinalK = flagDiscoverK
	}
	if cmd.Flags().Changed("min-score") {
		cfg.Discovery.MinScore = flagDiscoverMinScore
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, _, err := buildEngine(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// The in-memory index is a derived view; rebuild it from the persisted
	// cache. With a current cache this costs no provider calls.
	if _, err := engine.Refresh(ctx); err != nil && engine.IndexSize() == 0 {
		return fmt.Errorf("cannot build index: %w", err)
	}

	query := strings.Join(args, " ")
	results, err := engine.Discover(ctx, query)
	if err != nil {
		return err
	}

	if flagDiscoverJSON {
		return printDiscoverJSON(query, results)
	}
	printDiscoverResults(query, results)
	return nil
}

func printDiscoverResults(query string, results []discover.Result) {
	fmt.Printf("\nfwassist discover %q\n\n", query)
	if len(results) == 0 {
		fmt.Println("No sufficiently similar framework found.")
		return
	}
	fmt.Printf("Results (%d found):\n\n", len(results))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for i, r := range results {
		fmt.Fprintf(w, "  %d.\t[%.3f]\t%s\t(id %d)\n", i+1, r.Score, r.CanonicalName, r.Record.ID)
		if uc := strings.TrimSpace(r.Record.UseCase); uc != "" {
			fmt.Fprintf(w, "  \t\t%s\n", uc)
		}
		if len(r.MergedIDs) > 0 {
			note := fmt.Sprintf("merged duplicate rows: %v", r.MergedIDs)
			if r.Ambiguous {
				note += " (use cases differ beyond the matched prefix; review)"
			}
			fmt.Fprintf(w, "  \t\t%s\n", note)
		}
	}
	_ = w.Flush()
}

type discoverJSONResult struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	CanonicalName string  `json:"canonical_name"`
	Score         float64 `json:"score"`
	UseCase       string  `json:"use_case,omitempty"`
	MergedIDs     []int64 `json:"merged_ids,omitempty"`
	Ambiguous     bool    `json:"ambiguous,omitempty"`
}

func printDiscoverJSON(query string, results []discover.Result) error {
	out := struct {
		Query   string               `json:"query"`
		Results []discoverJSONResult `json:"results"`
	}{Query: query, Results: []discoverJSONResult{}}

	for _, r := range results {
		out.Results = append(out.Results, discoverJSONResult{
			ID:            r.Record.ID,
			Name:          r.Record.Name,
			CanonicalName: r.CanonicalName,
			Score:         r.Score,
			UseCase:       r.Record.UseCase,
			MergedIDs:     r.MergedIDs,
			Ambiguous:     r.Ambiguous,
		})
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
