package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lore/internal/generator"
	"lore/internal/images"
	"lore/internal/interactive"
	"lore/internal/llm"
	"lore/internal/logger"
)

// NewChatCmd creates the reflective chat command.
func NewChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <story-id>",
		Short: "Reflect on a saved story in an interactive chat",
		Long: `Start an interactive chat session grounded in the knowledge cards of
one saved story. The story ID comes from "lore stories list".`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			if err := runChat(args[0]); err != nil {
				logger.Error("Chat session failed", err, nil)
				os.Exit(1)
			}
		},
	}
}

func runChat(rowID string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	storyStore, err := openStore()
	if err != nil {
		return err
	}
	stored, err := storyStore.GetStory(rowID)
	closeStore(storyStore)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("no story with ID %s", rowID)
	}
	if len(stored.Story.Chunks) == 0 {
		return fmt.Errorf("story %q has no knowledge cards; regenerate it without --stories-only", stored.Story.Title)
	}

	textClient, err := llm.NewClient(llm.Config{
		APIKey:      cfg.AI.DeepSeek.APIKey,
		BaseURL:     cfg.AI.DeepSeek.BaseURL,
		Model:       cfg.AI.DeepSeek.Model,
		Temperature: cfg.AI.DeepSeek.Temperature,
		MaxTokens:   cfg.AI.DeepSeek.MaxTokens,
	})
	if err != nil {
		return err
	}

	// Chat never resolves images, so the resolver runs offline.
	gen := generator.New(textClient, images.NewResolver(nil))

	handler := interactive.NewChatHandler(gen, stored.Story)
	return handler.Run(context.Background())
}
