package handlers

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lore/internal/logger"
	"lore/internal/store"
)

// NewStoriesCmd creates the stored story management command.
func NewStoriesCmd() *cobra.Command {
	storiesCmd := &cobra.Command{
		Use:   "stories",
		Short: "Browse and manage saved stories",
		Long:  `List, inspect and clear the stories saved by previous generation runs.`,
	}

	storiesCmd.AddCommand(newStoriesListCmd())
	storiesCmd.AddCommand(newStoriesShowCmd())
	storiesCmd.AddCommand(newStoriesClearCmd())

	return storiesCmd
}

func newStoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved stories, most recent first",
		Run: func(cmd *cobra.Command, args []string) {
			if err := runStoriesList(); err != nil {
				logger.Error("Failed to list stories", err, nil)
				os.Exit(1)
			}
		},
	}
}

func newStoriesShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show <story-id>",
		Short: "Show one saved story with its knowledge cards",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			asJSON, _ := cmd.Flags().GetBool("json")
			if err := runStoriesShow(args[0], asJSON); err != nil {
				logger.Error("Failed to show story", err, nil)
				os.Exit(1)
			}
		},
	}

	showCmd.Flags().Bool("json", false, "Print the story as JSON")
	return showCmd
}

func newStoriesClearCmd() *cobra.Command {
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all saved stories",
		Run: func(cmd *cobra.Command, args []string) {
			confirm, _ := cmd.Flags().GetBool("confirm")
			if err := runStoriesClear(confirm); err != nil {
				logger.Error("Failed to clear stories", err, nil)
				os.Exit(1)
			}
		},
	}

	clearCmd.Flags().Bool("confirm", false, "Skip confirmation prompt")
	return clearCmd
}

func runStoriesList() error {
	storyStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(storyStore)

	stored, err := storyStore.ListStories()
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		fmt.Println("No saved stories yet. Run: lore generate <file>")
		return nil
	}

	for _, item := range stored {
		fmt.Printf("%s  %s  (%d cards, saved %s)\n",
			item.RowID, item.Story.Title, len(item.Story.Chunks),
			item.SavedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runStoriesShow(rowID string, asJSON bool) error {
	storyStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(storyStore)

	stored, err := storyStore.GetStory(rowID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("no story with ID %s", rowID)
	}

	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(stored)
	}

	story := stored.Story
	fmt.Printf("# %s\n\n%s\n\n", story.Title, story.Description)
	fmt.Printf("Image: %s\n\n", story.Image)
	if len(story.RelatedURLs) > 0 {
		fmt.Println("Related URLs:")
		for _, u := range story.RelatedURLs {
			fmt.Printf("  - %s\n", u)
		}
		fmt.Println()
	}
	for _, chunk := range story.Chunks {
		fmt.Printf("%d. %s\n   %s\n\n", chunk.ID, chunk.Title, chunk.Content)
	}
	return nil
}

func runStoriesClear(confirm bool) error {
	if !confirm {
		fmt.Print("⚠️  This will remove all saved stories. Continue? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" && response != "yes" {
			fmt.Println("Clear cancelled")
			return nil
		}
	}

	storyStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(storyStore)

	if err := storyStore.ClearStories(); err != nil {
		return err
	}
	fmt.Println("✅ All saved stories removed")
	return nil
}

func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	storyStore, err := store.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open story store: %w", err)
	}
	return storyStore, nil
}

func closeStore(s *store.Store) {
	if err := s.Close(); err != nil {
		logger.Error("Failed to close story store", err, nil)
	}
}
