package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/embeddings"
	"github.com/consultkit/fwassist/internal/embeddings/cache"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show catalog, cache, and configuration health",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	printSection("Status")

	cfg, err := config.Load()
	if err != nil {
		printErr("config", fmt.Sprintf("not loadable: %v", err))
		printInfo("", "Run 'fwassist init' to set up.")
		return nil
	}
	cfgPath, _ := config.ConfigPath()
	printOK("config", cfgPath)

	// Catalog.
	if _, err := os.Stat(cfg.DBPath); err != nil {
		printErr("catalog", fmt.Sprintf("missing: %s", cfg.DBPath))
	} else {
		store, err := openStore(cfg)
		if err != nil {
			printErr("catalog", err.Error())
		} else {
			records, err := store.List(cmd.Context())
			store.Close()
			if err != nil {
				printErr("catalog", err.Error())
			} else {
				printOK("catalog", fmt.Sprintf("%d record(s) in %s", len(records), cfg.DBPath))
			}
		}
	}

	// Embedding cache.
	c, err := cache.Open(cfg.CachePath)
	switch {
	case err != nil:
		printErr("cache", err.Error())
	case c.Recovered():
		printWarn("cache", "file was corrupt and will be rebuilt on next index run")
	case c.Len() == 0:
		printSkip("cache", "empty (run 'fwassist index')")
	default:
		printOK("cache", fmt.Sprintf("%d embedding(s) in %s", c.Len(), cfg.CachePath))
	}

	// Provider configuration.
	embCfg, err := embeddings.LoadConfig()
	if err != nil {
		printErr("embeddings", err.Error())
	} else if embCfg.APIKey == "" {
		printWarn("embeddings", "no API key configured (set FWASSIST_EMBEDDINGS_API_KEY)")
	} else {
		printOK("embeddings", fmt.Sprintf("%s via %s", embCfg.Model, embCfg.BaseURL))
	}

	return nil
}
