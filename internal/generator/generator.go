// Package generator runs the two-phase story generation pipeline:
// phase 1 groups history URLs into stories, phase 2 expands each story
// into knowledge chunks in parallel, attaching images and isolating
// per-story failures.
package generator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"lore/internal/core"
	"lore/internal/images"
	"lore/internal/llm"
	"lore/internal/logger"
	"lore/internal/recovery"
)

// TextClient sends prompt messages to the remote completion endpoint.
type TextClient interface {
	SendCompletion(ctx context.Context, messages []llm.Message) (string, error)
}

// ImageResolver maps keywords to an image URL and never fails.
type ImageResolver interface {
	Resolve(ctx context.Context, keywords string, size images.Size) string
}

// ProgressFunc receives ephemeral progress notifications while a
// generation run executes.
type ProgressFunc func(core.GenerationProgress)

// Generator owns the injected collaborators for one pipeline instance.
type Generator struct {
	text   TextClient
	images ImageResolver
	now    func() time.Time
}

// New creates a Generator with explicit collaborators.
func New(text TextClient, resolver ImageResolver) *Generator {
	return &Generator{
		text:   text,
		images: resolver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// storyRecord is the flat record shape the grouping prompt asks for.
// The legacy "image" field held keywords in older model output and is
// honored after "imageKeywords".
type storyRecord struct {
	ID            int      `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Image         string   `json:"image"`
	ImageKeywords string   `json:"imageKeywords"`
	RelatedURLs   []string `json:"relatedUrls"`
}

// chunkRecord is the flat record shape the expansion prompt asks for.
type chunkRecord struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	Image         string `json:"image"`
	ImageKeywords string `json:"imageKeywords"`
}

// chatRecord is the single-object array shape the chat prompt asks for.
type chatRecord struct {
	Reply string `json:"reply"`
}

// GenerateStoriesWithChunks runs the full two-phase pipeline. It only
// fails if phase 1 (story grouping) fails; a story whose chunk
// expansion fails is completed with the deterministic mock chunk set
// instead, so no returned story is ever missing chunks.
func (g *Generator) GenerateStoriesWithChunks(ctx context.Context, urls []string, onProgress ProgressFunc) ([]core.Story, error) {
	emit := func(p core.GenerationProgress) {
		if onProgress != nil {
			onProgress(p)
		}
	}

	emit(core.GenerationProgress{Phase: core.PhaseStories, Current: 0, Total: 1})
	stories, err := g.groupStories(ctx, urls)
	if err != nil {
		return nil, err
	}
	emit(core.GenerationProgress{Phase: core.PhaseStories, Current: 1, Total: 1})

	total := len(stories)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex // serializes progress emission and the completion counter
		completed int
	)

	for i := range stories {
		wg.Add(1)
		go func(story *core.Story) {
			defer wg.Done()

			mu.Lock()
			emit(core.GenerationProgress{Phase: core.PhaseChunks, Current: completed, Total: total, StoryTitle: story.Title})
			mu.Unlock()

			// Failure is converted to the mock set inside the branch,
			// before the join, so the overall run still succeeds.
			chunks, err := g.expandChunks(ctx, *story)
			if err != nil {
				logger.Warn("chunk generation failed, using mock chunks", map[string]any{
					"story": story.Title,
					"error": err.Error(),
				})
				chunks = MockChunks(story.Title)
			}
			story.Chunks = chunks

			mu.Lock()
			completed++
			emit(core.GenerationProgress{Phase: core.PhaseChunks, Current: completed, Total: total, StoryTitle: story.Title})
			mu.Unlock()
		}(&stories[i])
	}
	wg.Wait()

	return stories, nil
}

// GenerateStoriesFromHistory runs phase 1 only: stories with resolved
// images but no chunks. Failures propagate to the caller.
func (g *Generator) GenerateStoriesFromHistory(ctx context.Context, urls []string) ([]core.Story, error) {
	return g.groupStories(ctx, urls)
}

// GenerateChunksFromStory runs phase 2 for one already-known story.
// Failures propagate; no mock fallback is applied.
func (g *Generator) GenerateChunksFromStory(ctx context.Context, story core.Story) ([]core.Chunk, error) {
	return g.expandChunks(ctx, story)
}

// GenerateChatResponse performs a single reflective-chat turn over a
// story's chunks. Failures propagate; the caller supplies its own
// fallback text.
func (g *Generator) GenerateChatResponse(ctx context.Context, message string, history []llm.Message, chunks []core.Chunk) (string, error) {
	raw, err := g.text.SendCompletion(ctx, llm.BuildChatMessages(message, history, chunks))
	if err != nil {
		return "", err
	}

	records, err := recovery.ParseArray[chatRecord](raw)
	if err != nil {
		return "", err
	}
	if len(records) == 0 || records[0].Reply == "" {
		return "", fmt.Errorf("chat response contained no reply")
	}
	return records[0].Reply, nil
}

// groupStories calls the grouping prompt, parses the records and
// assembles stories with resolved images.
func (g *Generator) groupStories(ctx context.Context, urls []string) ([]core.Story, error) {
	raw, err := g.text.SendCompletion(ctx, llm.BuildStoryMessages(urls))
	if err != nil {
		return nil, err
	}

	records, err := recovery.ParseArray[storyRecord](raw)
	if err != nil {
		return nil, err
	}

	stories := make([]core.Story, 0, len(records))
	for _, rec := range records {
		keywords := firstNonEmpty(rec.ImageKeywords, rec.Image, rec.Title)
		related := rec.RelatedURLs
		if related == nil {
			related = []string{}
		}
		stories = append(stories, core.Story{
			ID:            rec.ID,
			Title:         rec.Title,
			Description:   rec.Description,
			Image:         g.images.Resolve(ctx, keywords, images.SizeRegular),
			ImageKeywords: keywords,
			RelatedURLs:   related,
			CreatedAt:     g.now(),
		})
	}
	return stories, nil
}

// expandChunks calls the expansion prompt for one story and resolves
// each chunk's image concurrently before returning.
func (g *Generator) expandChunks(ctx context.Context, story core.Story) ([]core.Chunk, error) {
	raw, err := g.text.SendCompletion(ctx, llm.BuildChunkMessages(story.Title, story.Description, story.RelatedURLs))
	if err != nil {
		return nil, err
	}

	records, err := recovery.ParseArray[chunkRecord](raw)
	if err != nil {
		return nil, err
	}

	chunks := make([]core.Chunk, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		keywords := firstNonEmpty(rec.ImageKeywords, rec.Image, story.ImageKeywords)
		chunks[i] = core.Chunk{
			ID:            rec.ID,
			Title:         rec.Title,
			Content:       rec.Content,
			ImageKeywords: keywords,
		}

		wg.Add(1)
		go func(i int, keywords string) {
			defer wg.Done()
			chunks[i].Image = g.images.Resolve(ctx, keywords, images.SizeSmall)
		}(i, keywords)
	}
	wg.Wait()

	return chunks, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
