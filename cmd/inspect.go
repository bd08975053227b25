package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/catalog"
	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/discover"
	"github.com/consultkit/fwassist/internal/llm"
)

var flagInspectExplain bool

var inspectCmd = &cobra.Command{
	Use:   "inspect <id|name>",
	Short: "Show the full record for one framework",
	Long: `Display every stored field of a framework, looked up by catalog id or by
name (trailing disambiguation numbers are ignored when matching).

With --explain the configured chat model summarizes the framework: what it
is, when to use it, and who should apply it.

Example:
  fwassist inspect 42
  fwassist inspect "SPIN Selling"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&flagInspectExplain, "explain", false, "Summarize the framework with the chat model")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := lookupRecord(cmd.Context(), store, strings.Join(args, " "))
	if err != nil {
		return err
	}

	policy := discover.DefaultCanonicalPolicy()
	printSection(policy.CleanName(rec.Name))
	fields := []struct{ label, value string }{
		{"ID", strconv.FormatInt(rec.ID, 10)},
		{"Stored name", rec.Name},
		{"Type", rec.Type},
		{"Domains", rec.BusinessDomains},
		{"Difficulty", rec.DifficultyLevel},
		{"Use case", rec.UseCase},
		{"Description", rec.Description},
		{"Diagnostic questions", rec.DiagnosticQuestions},
		{"Red flags", rec.RedFlagIndicators},
		{"Levers", rec.Levers},
		{"Related", rec.RelatedFrameworks},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		fmt.Printf("  %-22s %s\n", f.label+":", f.value)
	}

	if flagInspectExplain {
		return explainRecord(cmd.Context(), cfg, rec)
	}
	return nil
}

func explainRecord(ctx context.Context, cfg *config.Config, rec catalog.Record) error {
	chat, err := llm.NewFromConfig(cfg.ChatModel)
	if err != nil {
		return err
	}
	if chat == nil {
		printWarn("", "no chat API key configured; cannot explain (set FWASSIST_CHAT_API_KEY)")
		return nil
	}
	system, user := llm.DetailsPrompt(rec)
	answer, err := chat.Chat(ctx, system, user)
	if err != nil {
		return fmt.Errorf("cannot summarize framework: %w", err)
	}
	fmt.Printf("\n%s\n", answer)
	return nil
}

// lookupRecord resolves a framework by numeric id or by canonical name match.
func lookupRecord(ctx context.Context, store catalog.Store, arg string) (catalog.Record, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return store.Get(ctx, id)
	}

	records, err := store.List(ctx)
	if err != nil {
		return catalog.Record{}, err
	}
	policy := discover.DefaultCanonicalPolicy()
	want := strings.ToLower(policy.CleanName(arg))
	for _, rec := range records {
		if strings.ToLower(policy.CleanName(rec.Name)) == want {
			return rec, nil
		}
	}
	return catalog.Record{}, fmt.Errorf("no framework named %q: %w", arg, catalog.ErrNotFound)
}
