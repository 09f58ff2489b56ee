package llm

import (
	"fmt"
	"strings"

	"lore/internal/core"
)

// MaxStoryPromptURLs bounds how many history URLs the grouping prompt
// shows the model. Longer lists blow up the response and cascade into
// truncated JSON.
const MaxStoryPromptURLs = 50

const storySystemPrompt = `You are an editor who turns a reader's browsing history into themed "stories" — groups of related pages that share one topic the reader has been exploring.

Group the URLs below into 3 to 6 stories. For each story provide:
- "id": the story number, starting at 1
- "title": a short, engaging title for the theme
- "description": one or two sentences describing what the reader was exploring
- "imageKeywords": 2-4 plain English words suitable for an image search
- "relatedUrls": the URLs belonging to this story, copied verbatim from the list

Respond with ONLY a JSON array of story objects. Do not wrap the array in markdown code fences. Do not add any text before or after the array.`

const chunkSystemPrompt = `You are a patient teacher writing short knowledge cards ("chunks") for a story a reader has been exploring.

Write exactly 5 chunks that together teach the essentials of the story's topic, ordered from foundational to advanced. For each chunk provide:
- "id": the card number, 1 through 5
- "title": a short card title
- "content": 2-4 sentences of clear, self-contained explanation
- "imageKeywords": 2-4 plain English words suitable for an image search

Respond with ONLY a JSON array of 5 chunk objects. Do not wrap the array in markdown code fences. Do not add any text before or after the array.`

const chatSystemPrompt = `You are a reflective learning companion. The reader has just studied the five knowledge cards below and wants to talk through what they learned.

%s

Ground your reply in these cards, be encouraging and concrete, and keep it under 150 words.

Respond with ONLY a JSON array containing a single object of the form {"reply": "your response"}. Do not wrap the array in markdown code fences. Do not add any text before or after the array.`

// BuildStoryMessages builds the story-grouping prompt over the URL
// list. The list is truncated to MaxStoryPromptURLs; when truncated the
// prompt states how many of the total URLs are shown.
func BuildStoryMessages(urls []string) []Message {
	shown := urls
	if len(shown) > MaxStoryPromptURLs {
		shown = shown[:MaxStoryPromptURLs]
	}

	var sb strings.Builder
	if len(shown) < len(urls) {
		sb.WriteString(fmt.Sprintf("Showing the first %d of %d visited URLs.\n\n", len(shown), len(urls)))
	}
	sb.WriteString("Visited URLs:\n")
	for i, u := range shown {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, u))
	}

	return []Message{
		{Role: RoleSystem, Content: storySystemPrompt},
		{Role: RoleUser, Content: sb.String()},
	}
}

// BuildChunkMessages builds the chunk-expansion prompt for one story.
func BuildChunkMessages(title, description string, relatedURLs []string) []Message {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Story: %s\n", title))
	sb.WriteString(fmt.Sprintf("Description: %s\n", description))
	if len(relatedURLs) > 0 {
		sb.WriteString("Pages the reader visited:\n")
		for _, u := range relatedURLs {
			sb.WriteString(fmt.Sprintf("- %s\n", u))
		}
	}

	return []Message{
		{Role: RoleSystem, Content: chunkSystemPrompt},
		{Role: RoleUser, Content: sb.String()},
	}
}

// BuildChatMessages builds a reflective-chat prompt: system context with
// the five chunks, prior turns, then the user's message.
func BuildChatMessages(message string, history []Message, chunks []core.Chunk) []Message {
	var cards strings.Builder
	cards.WriteString("Knowledge cards:\n")
	for _, chunk := range chunks {
		cards.WriteString(fmt.Sprintf("%d. %s — %s\n", chunk.ID, chunk.Title, chunk.Content))
	}

	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{
		Role:    RoleSystem,
		Content: fmt.Sprintf(chatSystemPrompt, cards.String()),
	})
	messages = append(messages, history...)
	messages = append(messages, Message{Role: RoleUser, Content: message})
	return messages
}
