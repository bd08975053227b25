package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
	"github.com/consultkit/fwassist/internal/embeddings"
	"github.com/consultkit/fwassist/internal/embeddings/cache"
)

var rootCmd = &cobra.Command{
	Use:          "fwassist",
	Short:        "fwassist — navigate a consulting framework library by natural language",
	SilenceUsage: true, // don't print usage on operational errors
	Long: `fwassist manages a catalog of consulting frameworks in a local SQLite
database and answers natural-language questions about it using semantic
search over cached embeddings.`,
}

// Execute is called by main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore opens the catalog database from config. Callers own Close.
func openStore(cfg *config.Config) (*catalog.SQLiteStore, error) {
	store, err := catalog.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("cannot open catalog: %w\nRun 'fwassist init' first.", err)
	}
	return store, nil
}

// buildEngine wires store, embedding cache, and provider into a discovery
// engine using the configured tuning knobs.
func buildEngine(cfg *config.Config, store catalog.Store) (*discover.Engine, *cache.Cache, error) {
	embCfg, err := embeddings.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	prov, err := embeddings.NewFromConfig(embCfg)
	if err != nil {
		return nil, nil, err
	}

	c, err := cache.Open(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	if c.Recovered() {
		printWarn("", "embedding cache was unreadable and has been reset")
	}

	// The config value is passed by pointer so an explicit --min-score 0
	// survives; nil would fall back to the engine default.
	opts := discover.Options{
		FinalK:         cfg.Discovery.FinalK,
		MinScore:       &cfg.Discovery.MinScore,
		RawKMultiplier: cfg.Discovery.RawKMultiplier,
	}
	return discover.New(store, c, prov, opts), c, nil
}
