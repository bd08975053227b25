package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Report data-quality issues in the catalog",
	Long: `Scan the catalog for the defects that degrade discovery results:
names with trailing disambiguation numbers, generic structural names, and
use cases shared by multiple rows. Read-only; use 'fwassist clean' to fix
name pollution.`,
	Args: cobra.NoArgs,
	RunE: runDiagnose,
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}

var genericNameRe = regexp.MustCompile(`(?i)\b(layer \d+|framework \d*$|module|component)\b`)

func runDiagnose(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	printSection("Catalog diagnostic")
	printInfo("", fmt.Sprintf("%d record(s) loaded", len(records)))
	policy := discover.DefaultCanonicalPolicy()
	issues := 0

	// Names with trailing disambiguation numbers.
	var suffixed []string
	for _, r := range records {
		if policy.CleanName(r.Name) != strings.Join(strings.Fields(r.Name), " ") {
			suffixed = append(suffixed, fmt.Sprintf("id %d: %q", r.ID, r.Name))
		}
	}
	if len(suffixed) > 0 {
		issues++
		printWarn("names", fmt.Sprintf("%d name(s) carry a trailing number:", len(suffixed)))
		for _, s := range head(suffixed, 10) {
			fmt.Printf("        %s\n", s)
		}
	} else {
		printOK("names", "no trailing-number pollution")
	}

	// Generic structural names.
	var generic []string
	for _, r := range records {
		if genericNameRe.MatchString(r.Name) {
			generic = append(generic, fmt.Sprintf("id %d: %q", r.ID, r.Name))
		}
	}
	if len(generic) > 0 {
		issues++
		printWarn("names", fmt.Sprintf("%d generic structural name(s):", len(generic)))
		for _, s := range head(generic, 10) {
			fmt.Printf("        %s\n", s)
		}
	} else {
		printOK("names", "no generic structural names")
	}

	// Use cases shared by multiple rows.
	byUseCase := map[string][]int64{}
	for _, r := range records {
		uc := strings.TrimSpace(r.UseCase)
		if uc == "" {
			continue
		}
		byUseCase[uc] = append(byUseCase[uc], r.ID)
	}
	shared := 0
	for uc, ids := range byUseCase {
		if len(ids) > 1 {
			shared++
			if shared <= 5 {
				printWarn("use-case", fmt.Sprintf("shared by ids %v: %q", ids, truncate(uc, 70)))
			}
		}
	}
	if shared > 0 {
		issues++
		if shared > 5 {
			printInfo("use-case", fmt.Sprintf("... and %d more shared use case(s)", shared-5))
		}
	} else {
		printOK("use-case", "all use cases unique")
	}

	// Rows missing embeddable text.
	malformed := 0
	for _, r := range records {
		if r.Validate() != nil {
			malformed++
		}
	}
	if malformed > 0 {
		issues++
		printWarn("fields", fmt.Sprintf("%d record(s) missing required text fields", malformed))
	} else {
		printOK("fields", "all records embeddable")
	}

	if issues == 0 {
		printOK("", "no data-quality issues found")
	} else {
		printInfo("", "Run 'fwassist clean' to fix name pollution. Duplicate rows are merged at query time either way.")
	}
	return nil
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
