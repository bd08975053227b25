package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
)

var flagCleanApply bool

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Strip trailing disambiguation numbers from framework names",
	Long: `Rewrite polluted names in the catalog ("IT Strategy Framework 4" →
"IT Strategy Framework"). Dry-run by default; pass --apply to write changes.

A rename is ambiguous when the cleaned name already belongs to a row with a
different use case: the trailing number might be meaningful there. Ambiguous
renames are reported and skipped, never applied silently.

Cleaning changes record content, so cleaned rows are re-embedded on the next
'fwassist index' run.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().BoolVar(&flagCleanApply, "apply", false, "Write the renames to the catalog")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	records, err := store.List(ctx)
	if err != nil {
		return err
	}

	policy := discover.DefaultCanonicalPolicy()

	// Use case per cleaned name, to detect collisions where the suffix may
	// be load-bearing.
	useCaseByClean := map[string]string{}
	for _, r := range records {
		clean := strings.ToLower(policy.CleanName(r.Name))
		if _, ok := useCaseByClean[clean]; !ok {
			useCaseByClean[clean] = strings.TrimSpace(r.UseCase)
		}
	}

	printSection("Clean")
	renamed, ambiguous, unchanged := 0, 0, 0
	for _, r := range records {
		cleaned := policy.CleanName(r.Name)
		if cleaned == strings.Join(strings.Fields(r.Name), " ") {
			unchanged++
			continue
		}

		firstUC := useCaseByClean[strings.ToLower(cleaned)]
		if strings.TrimSpace(r.UseCase) != firstUC {
			ambiguous++
			printWarn("skip", fmt.Sprintf("id %d: %q — same name stem but different use case; review manually", r.ID, r.Name))
			continue
		}

		if flagCleanApply {
			if err := store.UpdateName(ctx, r.ID, cleaned); err != nil {
				return err
			}
			printOK("", fmt.Sprintf("id %d: %q → %q", r.ID, r.Name, cleaned))
		} else {
			printInfo("", fmt.Sprintf("id %d: %q → %q", r.ID, r.Name, cleaned))
		}
		renamed++
	}

	if flagCleanApply {
		printOK("", fmt.Sprintf("%d name(s) cleaned, %d unchanged, %d ambiguous skipped", renamed, unchanged, ambiguous))
		if renamed > 0 {
			printInfo("", "Run 'fwassist index' to re-embed the cleaned records.")
		}
	} else {
		printInfo("", fmt.Sprintf("%d rename(s) planned, %d unchanged, %d ambiguous. Re-run with --apply to write.", renamed, unchanged, ambiguous))
	}
	return nil
}
