package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/llm"
)

var compareCmd = &cobra.Command{
	Use:   "compare <id|name> <id|name>",
	Short: "Compare two frameworks with the chat model",
	Long: `Look up two frameworks by id or name and have the configured chat model
compare them: what each is for, how they differ, and when to pick which.

Requires a chat API key (FWASSIST_CHAT_API_KEY or the embeddings key).

Example:
  fwassist compare "SWOT Analysis" "Porter's Five Forces"
  fwassist compare 12 47`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
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
	a, err := lookupRecord(ctx, store, args[0])
	if err != nil {
		return err
	}
	b, err := lookupRecord(ctx, store, args[1])
	if err != nil {
		return err
	}
	if a.ID == b.ID {
		return fmt.Errorf("%q and %q are the same record (id %d)", args[0], args[1], a.ID)
	}

	chat, err := llm.NewFromConfig(cfg.ChatModel)
	if err != nil {
		return err
	}
	if chat == nil {
		return fmt.Errorf("no chat API key configured (set FWASSIST_CHAT_API_KEY)")
	}

	system, user := llm.ComparisonPrompt(a, b)
	answer, err := chat.Chat(ctx, system, user)
	if err != nil {
		return fmt.Errorf("cannot compare frameworks: %w", err)
	}
	fmt.Println(answer)
	return nil
}
