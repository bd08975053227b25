package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/consultkit/fwassist/internal/config"
	"github.com/consultkit/fwassist/internal/llm"
	"github.com/consultkit/fwassist/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat shell",
	Long: `Start a conversational session over the framework library. Answers are
phrased by the configured chat model when FWASSIST_CHAT_API_KEY (or the
embeddings key) is set; otherwise matches are shown as plain cards.`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w\nRun 'fwassist init' first.", err)
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine, _, err := buildEngine(cfg, store)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	if _, err := engine.Refresh(ctx); err != nil && engine.IndexSize() == 0 {
		cancel()
		return fmt.Errorf("cannot build index: %w", err)
	}
	cancel()

	chat, err := llm.NewFromConfig(cfg.ChatModel)
	if err != nil {
		return err
	}
	if chat == nil {
		printInfo("", "no chat API key configured; answers will be plain result cards")
	}

	model := tui.New(engine, chat)
	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}
