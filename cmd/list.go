package cmd

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog, deduplicated by canonical name",
	Long: `Print every logical framework in the library, grouped alphabetically.
Rows that differ only by a trailing disambiguation number are shown once,
with the ids they cover.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
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

	policy := discover.DefaultCanonicalPolicy()
	type entry struct {
		name string
		ids  []int64
	}
	seen := map[discover.CanonicalKey]*entry{}
	var entries []*entry
	for _, rec := range records {
		key := policy.Key(rec.Name, rec.UseCase)
		if e, ok := seen[key]; ok {
			e.ids = append(e.ids, rec.ID)
			continue
		}
		e := &entry{name: policy.CleanName(rec.Name), ids: []int64{rec.ID}}
		seen[key] = e
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return strings.ToUpper(entries[i].name) < strings.ToUpper(entries[j].name)
	})

	fmt.Printf("\n%d logical framework(s) across %d row(s):\n", len(entries), len(records))
	lastLetter := rune(0)
	for _, e := range entries {
		letter := firstLetter(e.name)
		if letter != lastLetter {
			fmt.Printf("\n%c\n", letter)
			lastLetter = letter
		}
		if len(e.ids) > 1 {
			fmt.Printf("  %s  (ids %v)\n", e.name, e.ids)
		} else {
			fmt.Printf("  %s  (id %d)\n", e.name, e.ids[0])
		}
	}
	return nil
}

func firstLetter(s string) rune {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return unicode.ToUpper(r)
		}
	}
	return '#'
}
