package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"lore/internal/core"
	"lore/internal/images"
	"lore/internal/llm"
	"lore/internal/recovery"
)

// stubText routes prompts to canned responses based on the message
// contents.
type stubText struct {
	respond func(messages []llm.Message) (string, error)
}

func (s *stubText) SendCompletion(ctx context.Context, messages []llm.Message) (string, error) {
	return s.respond(messages)
}

// stubResolver returns a synthetic URL derived from the keywords.
type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, keywords string, size images.Size) string {
	return fmt.Sprintf("img://%s/%s", size, keywords)
}

func isChunkPrompt(messages []llm.Message) bool {
	return strings.HasPrefix(messages[len(messages)-1].Content, "Story: ")
}

func storyJSON(titles ...string) string {
	var sb strings.Builder
	sb.WriteString("[")
	for i, title := range titles {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf(`{"id":%d,"title":"%s","description":"about %s","imageKeywords":"kw %d","relatedUrls":["https://a.example/%d"]}`,
			i+1, title, title, i+1, i+1))
	}
	sb.WriteString("]")
	return sb.String()
}

func chunkJSON() string {
	var sb strings.Builder
	sb.WriteString("[")
	for i := 1; i <= 5; i++ {
		if i > 1 {
			sb.WriteString(",")
		}
		sb.WriteString(fmt.Sprintf(`{"id":%d,"title":"Model Chunk %d","content":"body %d","imageKeywords":"chunk kw %d"}`, i, i, i, i))
	}
	sb.WriteString("]")
	return sb.String()
}

func TestGenerateStoriesWithChunks_EndToEnd(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		if isChunkPrompt(messages) {
			return chunkJSON(), nil
		}
		return `[{"id":1,"title":"Web Curiosity","description":"two pages","imageKeywords":"curiosity","relatedUrls":["https://a.example/x","https://b.example/y"]}]`, nil
	}}

	gen := New(text, stubResolver{})

	stories, err := gen.GenerateStoriesWithChunks(context.Background(), []string{"https://a.example/x", "https://b.example/y"}, nil)
	if err != nil {
		t.Fatalf("GenerateStoriesWithChunks failed: %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("Expected 1 story, got %d", len(stories))
	}

	story := stories[0]
	if len(story.RelatedURLs) != 2 {
		t.Errorf("Expected 2 related URLs, got %d", len(story.RelatedURLs))
	}
	if len(story.Chunks) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(story.Chunks))
	}
	for i, chunk := range story.Chunks {
		if chunk.Image == "" {
			t.Errorf("Chunk %d image must be resolved, never empty", i+1)
		}
	}
	if story.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if story.Image == "" {
		t.Error("Story image must be resolved")
	}
}

func TestGenerateStoriesWithChunks_PerStoryFallback(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		if isChunkPrompt(messages) {
			if strings.Contains(messages[len(messages)-1].Content, "Story B") {
				return "", &llm.RemoteServiceError{StatusCode: 500, Message: "boom"}
			}
			return chunkJSON(), nil
		}
		return storyJSON("Story A", "Story B", "Story C"), nil
	}}

	gen := New(text, stubResolver{})

	stories, err := gen.GenerateStoriesWithChunks(context.Background(), []string{"https://a.example/1"}, nil)
	if err != nil {
		t.Fatalf("Run must succeed despite one failing branch: %v", err)
	}
	if len(stories) != 3 {
		t.Fatalf("Expected exactly 3 stories, got %d", len(stories))
	}

	for _, story := range stories {
		if len(story.Chunks) != 5 {
			t.Errorf("Story %q must have 5 chunks, got %d", story.Title, len(story.Chunks))
		}
	}

	// The failed story carries the deterministic mock set.
	storyB := stories[1]
	want := MockChunks("Story B")
	for i, chunk := range storyB.Chunks {
		if chunk.Title != want[i].Title {
			t.Errorf("Mock chunk %d title mismatch: got %q, want %q", i+1, chunk.Title, want[i].Title)
		}
		if chunk.Image == "" {
			t.Errorf("Mock chunk %d must still have an image", i+1)
		}
	}

	// The healthy stories carry model-sourced chunks.
	for _, story := range []core.Story{stories[0], stories[2]} {
		if !strings.HasPrefix(story.Chunks[0].Title, "Model Chunk") {
			t.Errorf("Story %q should carry model chunks, got %q", story.Title, story.Chunks[0].Title)
		}
	}
}

func TestGenerateStoriesWithChunks_ProgressOrdering(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		if isChunkPrompt(messages) {
			return chunkJSON(), nil
		}
		return storyJSON("One", "Two", "Three"), nil
	}}

	gen := New(text, stubResolver{})

	var events []core.GenerationProgress
	_, err := gen.GenerateStoriesWithChunks(context.Background(), []string{"https://a.example/1"}, func(p core.GenerationProgress) {
		events = append(events, p)
	})
	if err != nil {
		t.Fatalf("GenerateStoriesWithChunks failed: %v", err)
	}

	if len(events) != 8 {
		t.Fatalf("Expected 2 stories events + 6 chunks events, got %d", len(events))
	}

	if events[0].Phase != core.PhaseStories || events[0].Current != 0 || events[0].Total != 1 {
		t.Errorf("First event should be stories 0/1, got %+v", events[0])
	}
	if events[1].Phase != core.PhaseStories || events[1].Current != 1 {
		t.Errorf("Second event should be stories 1/1, got %+v", events[1])
	}

	prev := 0
	for i, ev := range events[2:] {
		if ev.Phase != core.PhaseChunks {
			t.Errorf("Event %d should be a chunks event, got %+v", i+2, ev)
		}
		if ev.Total != 3 {
			t.Errorf("Chunks total should stay fixed at the story count, got %d", ev.Total)
		}
		if ev.Current < prev {
			t.Errorf("Current must be monotonically non-decreasing, got %d after %d", ev.Current, prev)
		}
		prev = ev.Current
	}
	if last := events[len(events)-1]; last.Current != 3 {
		t.Errorf("Final chunks event should report 3 stories completed, got %d", last.Current)
	}
}

func TestGenerateStoriesWithChunks_PhaseOneFailurePropagates(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return "", &llm.RemoteServiceError{StatusCode: 503, Message: "unavailable"}
	}}

	gen := New(text, stubResolver{})

	_, err := gen.GenerateStoriesWithChunks(context.Background(), []string{"https://a.example/1"}, nil)
	var remote *llm.RemoteServiceError
	if !errors.As(err, &remote) {
		t.Fatalf("Phase-1 failure must propagate uncaught, got %v", err)
	}
}

func TestGenerateStoriesWithChunks_PhaseOneMalformedPropagates(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return "no json here, just an unbalanced {", nil
	}}

	gen := New(text, stubResolver{})

	_, err := gen.GenerateStoriesWithChunks(context.Background(), []string{"https://a.example/1"}, nil)
	var malformed *recovery.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedResponseError from phase 1, got %v", err)
	}
}

func TestGroupStories_KeywordPrecedence(t *testing.T) {
	testCases := []struct {
		name     string
		record   string
		wantKeys string
	}{
		{
			name:     "imageKeywords wins",
			record:   `{"id":1,"title":"T","description":"d","imageKeywords":"kw","image":"legacy","relatedUrls":[]}`,
			wantKeys: "kw",
		},
		{
			name:     "legacy image field second",
			record:   `{"id":1,"title":"T","description":"d","image":"legacy","relatedUrls":[]}`,
			wantKeys: "legacy",
		},
		{
			name:     "title as last resort",
			record:   `{"id":1,"title":"T","description":"d","relatedUrls":[]}`,
			wantKeys: "T",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := &stubText{respond: func(messages []llm.Message) (string, error) {
				return "[" + tc.record + "]", nil
			}}
			gen := New(text, stubResolver{})

			stories, err := gen.GenerateStoriesFromHistory(context.Background(), []string{"https://a.example/1"})
			if err != nil {
				t.Fatalf("GenerateStoriesFromHistory failed: %v", err)
			}
			if got := stories[0].ImageKeywords; got != tc.wantKeys {
				t.Errorf("Expected keywords %q, got %q", tc.wantKeys, got)
			}
			wantImage := fmt.Sprintf("img://regular/%s", tc.wantKeys)
			if stories[0].Image != wantImage {
				t.Errorf("Expected image %q, got %q", wantImage, stories[0].Image)
			}
		})
	}
}

func TestGroupStories_MissingRelatedURLsDefaultsEmpty(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return `[{"id":1,"title":"T","description":"d"}]`, nil
	}}
	gen := New(text, stubResolver{})

	stories, err := gen.GenerateStoriesFromHistory(context.Background(), []string{"https://a.example/1"})
	if err != nil {
		t.Fatalf("GenerateStoriesFromHistory failed: %v", err)
	}
	if stories[0].RelatedURLs == nil {
		t.Error("RelatedURLs should default to an empty slice, not nil")
	}
	if len(stories[0].RelatedURLs) != 0 {
		t.Errorf("Expected empty related URLs, got %v", stories[0].RelatedURLs)
	}
}

func TestGenerateChunksFromStory_NoFallback(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return "", &llm.RemoteServiceError{StatusCode: 500, Message: "boom"}
	}}
	gen := New(text, stubResolver{})

	_, err := gen.GenerateChunksFromStory(context.Background(), core.Story{Title: "T"})
	if err == nil {
		t.Fatal("GenerateChunksFromStory must propagate failures, not substitute mocks")
	}
}

func TestGenerateChunksFromStory_ChunkKeywordsFallBackToStory(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return `[{"id":1,"title":"C","content":"b"}]`, nil
	}}
	gen := New(text, stubResolver{})

	chunks, err := gen.GenerateChunksFromStory(context.Background(), core.Story{
		Title:         "T",
		ImageKeywords: "story kw",
	})
	if err != nil {
		t.Fatalf("GenerateChunksFromStory failed: %v", err)
	}
	if chunks[0].ImageKeywords != "story kw" {
		t.Errorf("Chunk without keywords should inherit the story's, got %q", chunks[0].ImageKeywords)
	}
	if chunks[0].Image != "img://small/story kw" {
		t.Errorf("Chunk image should resolve from inherited keywords, got %q", chunks[0].Image)
	}
}

func TestGenerateChatResponse(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return `[{"reply":"Nice work walking through all five cards."}]`, nil
	}}
	gen := New(text, stubResolver{})

	reply, err := gen.GenerateChatResponse(context.Background(), "What did I learn?", nil, []core.Chunk{{ID: 1, Title: "A", Content: "a"}})
	if err != nil {
		t.Fatalf("GenerateChatResponse failed: %v", err)
	}
	if reply != "Nice work walking through all five cards." {
		t.Errorf("Unexpected reply: %q", reply)
	}
}

func TestGenerateChatResponse_EmptyReply(t *testing.T) {
	text := &stubText{respond: func(messages []llm.Message) (string, error) {
		return `[]`, nil
	}}
	gen := New(text, stubResolver{})

	_, err := gen.GenerateChatResponse(context.Background(), "hi", nil, nil)
	if err == nil {
		t.Fatal("Expected error for a reply-less response")
	}
}

func TestMockChunks_Shape(t *testing.T) {
	chunks := MockChunks("Gardening")

	if len(chunks) != 5 {
		t.Fatalf("Expected 5 mock chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.ID != i+1 {
			t.Errorf("Chunk %d has id %d", i, chunk.ID)
		}
		if !strings.Contains(chunk.Title, "Gardening") {
			t.Errorf("Chunk title should be parameterized by the story title, got %q", chunk.Title)
		}
		if chunk.Image == "" || chunk.ImageKeywords == "" {
			t.Errorf("Chunk %d must carry a fallback image and keywords", i+1)
		}
		if !strings.HasPrefix(chunk.Image, "https://picsum.photos/seed/") {
			t.Errorf("Mock chunk image must be an offline fallback URL, got %q", chunk.Image)
		}
	}

	// Deterministic across calls.
	again := MockChunks("Gardening")
	for i := range chunks {
		if chunks[i] != again[i] {
			t.Errorf("MockChunks must be deterministic, chunk %d differs", i+1)
		}
	}
}
