package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"lore/internal/config"
	"lore/internal/core"
	"lore/internal/generator"
	"lore/internal/history"
	"lore/internal/images"
	"lore/internal/llm"
	"lore/internal/logger"
	"lore/internal/store"
)

// NewGenerateCmd creates the story generation command.
func NewGenerateCmd() *cobra.Command {
	generateCmd := &cobra.Command{
		Use:   "generate [file]",
		Short: "Generate stories with knowledge cards from browsing history",
		Long: `Read URLs from a file (markdown or plain text) or stdin, filter out
noise like login pages and trackers, group the rest into themed
stories, and expand each story into five knowledge cards.

With --payload the input is treated as a collector JSON payload
instead of free text.`,
		Args: cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			payload, _ := cmd.Flags().GetBool("payload")
			storiesOnly, _ := cmd.Flags().GetBool("stories-only")
			noSave, _ := cmd.Flags().GetBool("no-save")
			asJSON, _ := cmd.Flags().GetBool("json")

			if err := runGenerate(args, payload, storiesOnly, noSave, asJSON); err != nil {
				logger.Error("Generation failed", err, nil)
				os.Exit(1)
			}
		},
	}

	generateCmd.Flags().Bool("payload", false, "Treat input as a collector JSON payload")
	generateCmd.Flags().Bool("stories-only", false, "Stop after story grouping, skip knowledge cards")
	generateCmd.Flags().Bool("no-save", false, "Do not persist the generated stories")
	generateCmd.Flags().Bool("json", false, "Print the result as JSON instead of a summary")

	return generateCmd
}

func runGenerate(args []string, payload, storiesOnly, noSave, asJSON bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	urls, err := readURLs(args, payload)
	if err != nil {
		return err
	}

	kept, stats := history.NewFilter().Apply(urls)
	fmt.Printf("🔍 Filtered %d URLs down to %d (%d removed)\n", stats.Total, stats.Filtered, stats.Removed)
	if len(kept) == 0 {
		return fmt.Errorf("no usable URLs left after filtering")
	}

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	var stories []core.Story
	if storiesOnly {
		fmt.Println("📚 Grouping history into stories...")
		stories, err = gen.GenerateStoriesFromHistory(ctx, kept)
	} else {
		stories, err = gen.GenerateStoriesWithChunks(ctx, kept, printProgress)
	}
	if err != nil {
		return err
	}

	if !noSave {
		if err := saveStories(cfg, stories); err != nil {
			return err
		}
	}

	if asJSON {
		return printJSON(stories)
	}
	printSummary(stories)
	return nil
}

// readURLs reads the raw URL list from the file argument or stdin.
func readURLs(args []string, payload bool) ([]string, error) {
	var (
		data []byte
		err  error
	)
	if len(args) > 0 {
		data, err = os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to read input file: %w", err)
		}
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
	}

	if payload {
		parsed, err := history.ParsePayload(data)
		if err != nil {
			return nil, err
		}
		return parsed.URLs, nil
	}
	return history.ExtractURLs(string(data)), nil
}

// buildGenerator assembles the pipeline from configuration. A missing
// Unsplash key is not an error; image resolution falls back to
// deterministic placeholder URLs.
func buildGenerator(cfg *config.Config) (*generator.Generator, error) {
	textClient, err := llm.NewClient(llm.Config{
		APIKey:      cfg.AI.DeepSeek.APIKey,
		BaseURL:     cfg.AI.DeepSeek.BaseURL,
		Model:       cfg.AI.DeepSeek.Model,
		Temperature: cfg.AI.DeepSeek.Temperature,
		MaxTokens:   cfg.AI.DeepSeek.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	var searcher images.Searcher
	if key := cfg.Images.Unsplash.AccessKey; key != "" {
		searcher = images.NewClient(key)
	} else {
		logger.Warn("no Unsplash access key configured, using placeholder images", nil)
	}

	return generator.New(textClient, images.NewResolver(searcher)), nil
}

func printProgress(p core.GenerationProgress) {
	switch p.Phase {
	case core.PhaseStories:
		if p.Current == 0 {
			fmt.Println("📚 Grouping history into stories...")
		} else {
			fmt.Println("📚 Stories grouped")
		}
	case core.PhaseChunks:
		if p.StoryTitle != "" {
			fmt.Printf("📝 [%d/%d] %s\n", p.Current, p.Total, p.StoryTitle)
		}
	}
}

func saveStories(cfg *config.Config, stories []core.Story) error {
	storyStore, err := store.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open story store: %w", err)
	}
	defer func() {
		if err := storyStore.Close(); err != nil {
			logger.Error("Failed to close story store", err, nil)
		}
	}()

	stored, err := storyStore.SaveStories(stories)
	if err != nil {
		return err
	}
	fmt.Printf("💾 Saved %d stories (lore stories list)\n", len(stored))
	return nil
}

func printJSON(stories []core.Story) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(stories)
}

func printSummary(stories []core.Story) {
	fmt.Printf("\n✨ Generated %d stories\n\n", len(stories))
	for _, story := range stories {
		fmt.Printf("• %s\n  %s\n  %d related URLs, %d cards\n\n",
			story.Title, story.Description, len(story.RelatedURLs), len(story.Chunks))
	}
}
