package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
)

var (
	flagIndexTimeout time.Duration
	flagIndexForce   bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Refresh the embedding cache and similarity index",
	Long: `Fingerprint every catalog record, embed the ones whose content changed
since the last run, and prune cache entries for removed records. Unchanged
records are served from the cache and cost no provider calls.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().DurationVar(&flagIndexTimeout, "timeout", 10*time.Minute, "Overall embedding refresh timeout")
	indexCmd.Flags().BoolVar(&flagIndexForce, "force", false, "Discard the embedding cache and re-embed every record")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, c, err := buildEngine(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), flagIndexTimeout)
	defer cancel()

	printSection("Index")
	if flagIndexForce {
		dropped := c.Prune(map[string]struct{}{})
		printInfo("", fmt.Sprintf("--force: %d cached embedding(s) discarded", dropped))
	}
	stats, err := engine.Refresh(ctx)
	if err != nil && stats == nil {
		if discover.Unavailable(err) {
			return fmt.Errorf("embedding provider unavailable, index not rebuilt: %w", err)
		}
		return err
	}

	printOK("", fmt.Sprintf("%d record(s) indexed (%d cache hit(s), %d embedded)",
		stats.Indexed, stats.CacheHits, stats.Embedded))
	if stats.Skipped > 0 {
		printWarn("", fmt.Sprintf("%d malformed record(s) skipped", stats.Skipped))
	}
	if stats.Pruned > 0 {
		printInfo("", fmt.Sprintf("%d stale cache entr(ies) pruned", stats.Pruned))
	}
	if err != nil {
		printWarn("", fmt.Sprintf("index rebuilt, but the cache could not be persisted: %v", err))
		return nil
	}
	printOK("", fmt.Sprintf("embedding cache written: %s", cfg.CachePath))
	return nil
}
