package generator

import (
	"fmt"

	"lore/internal/core"
	"lore/internal/images"
)

// mockChunkTemplates are the fixed offline substitute cards used when a
// story's remote expansion fails. Each template carries a pre-assigned
// fallback image keyword.
var mockChunkTemplates = []struct {
	title    string
	content  string
	keywords string
}{
	{
		title:    "Getting Started with %s",
		content:  "This card introduces %s. Revisit the pages you explored on this topic and note the ideas that come up again and again — those are the foundations worth anchoring first.",
		keywords: "open book study",
	},
	{
		title:    "Key Ideas in %s",
		content:  "Every topic has a handful of load-bearing concepts, and %s is no exception. Try to name the two or three ideas that the pages you read kept circling back to.",
		keywords: "lightbulb idea",
	},
	{
		title:    "%s in Practice",
		content:  "Knowledge about %s sticks when it is applied. Pick one small, concrete thing from your reading and try it out — even a rough first attempt teaches more than another article.",
		keywords: "tools workshop",
	},
	{
		title:    "Common Pitfalls in %s",
		content:  "Newcomers to %s tend to stumble in predictable places. Look back over what you read for warnings, caveats and 'gotcha' sections — they mark the pitfalls worth sidestepping.",
		keywords: "warning maze",
	},
	{
		title:    "Where to Go Next with %s",
		content:  "You have a foothold in %s now. Choose the single open question that most interests you from your browsing and make it the starting point of your next session.",
		keywords: "road horizon",
	},
}

// MockChunks builds the deterministic, fully offline chunk set for a
// story whose remote expansion failed. Images are fallback URLs, never
// remote lookups.
func MockChunks(storyTitle string) []core.Chunk {
	chunks := make([]core.Chunk, 0, len(mockChunkTemplates))
	for i, tpl := range mockChunkTemplates {
		chunks = append(chunks, core.Chunk{
			ID:            i + 1,
			Title:         fmt.Sprintf(tpl.title, storyTitle),
			Content:       fmt.Sprintf(tpl.content, storyTitle),
			Image:         images.FallbackURL(tpl.keywords, images.SizeSmall),
			ImageKeywords: tpl.keywords,
		})
	}
	return chunks
}
