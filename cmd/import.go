package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/config"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Load framework records from a CSV export into the catalog",
	Long: `Import framework rows from a CSV file. The first row must be a header;
a 'name' column is required. Recognized columns:

  name, type, business_domains, difficulty_level, use_case, description,
  diagnostic_questions, red_flag_indicators, levers, related_frameworks

Unknown columns are dropped. Rows missing both use_case and description are
counted as malformed and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	printSection("Import")
	res, err := catalog.ImportCSV(cmd.Context(), store, args[0])
	if err != nil {
		return err
	}
	printOK("", fmt.Sprintf("%d framework(s) imported", res.Imported))
	if res.Malformed > 0 {
		printWarn("", fmt.Sprintf("%d malformed row(s) skipped", res.Malformed))
	}
	printInfo("", "Run 'fwassist index' to refresh the semantic index.")
	return nil
}
