package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap ~/.fwassist with config, catalog database and .env template",
	Long: `Initialize fwassist's working directory at ~/.fwassist/:

  config.yaml    tuning knobs (paths, final_k, min_score, ...)
  frameworks.db  empty SQLite catalog (fill it with 'fwassist import')
  .env           credentials template for embeddings and chat`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(_ *cobra.Command, _ []string) error {
	dir, err := config.AppDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	printOK("", fmt.Sprintf("fwassist directory ready: %s", dir))

	cfgPath, err := config.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		cfg, err := config.DefaultConfig()
		if err != nil {
			return err
		}
		if err := config.Save(cfg); err != nil {
			return err
		}
		printOK("", fmt.Sprintf("Config written: %s", cfgPath))
	} else {
		printSkip("", fmt.Sprintf("Config already exists: %s", cfgPath))
	}

	if err := config.EnsureDotEnvTemplate(); err != nil {
		return err
	}
	envPath, _ := config.DotEnvPath()
	printOK("", fmt.Sprintf("Credentials template ready: %s", envPath))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	store, err := catalog.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	printOK("", fmt.Sprintf("Catalog database ready: %s", cfg.DBPath))

	printInfo("", "Next: fill in the API key in .env, then 'fwassist import <file.csv>'")
	return nil
}
