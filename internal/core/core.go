package core

import "time"

// Story represents a thematic grouping of related browsing-history URLs
// with a title, description, illustrative image and expanded chunks.
type Story struct {
	ID            int       `json:"id"`                      // Identifier taken from the model's own enumeration (not globally unique across runs)
	Title         string    `json:"title"`                   // Story title
	Description   string    `json:"description"`             // Short description of the theme
	Image         string    `json:"image"`                   // Resolved image URL (never a bare keyword)
	ImageKeywords string    `json:"imageKeywords,omitempty"` // Keywords used to resolve the image
	RelatedURLs   []string  `json:"relatedUrls"`             // Subset of the input URL list the story was grouped from
	Chunks        []Chunk   `json:"chunks,omitempty"`        // Knowledge cards; empty until expansion completes
	CreatedAt     time.Time `json:"createdAt,omitempty"`     // Timestamp when the story was assembled
}

// Chunk represents one short educational card belonging to a Story.
type Chunk struct {
	ID            int    `json:"id"`                      // Position within the story, nominally 1..5
	Title         string `json:"title"`                   // Chunk title
	Content       string `json:"content"`                 // Card body text
	Image         string `json:"image"`                   // Resolved image URL
	ImageKeywords string `json:"imageKeywords,omitempty"` // Keywords used to resolve the image
}

// Phase identifies which stage of the generation pipeline a progress
// event belongs to.
type Phase string

const (
	// PhaseStories is the initial grouping of URLs into stories.
	PhaseStories Phase = "stories"
	// PhaseChunks is the per-story chunk expansion stage.
	PhaseChunks Phase = "chunks"
)

// GenerationProgress is an ephemeral notification emitted while the
// pipeline runs. During PhaseChunks, Total is the number of stories
// being expanded and Current counts stories completed, not chunks.
type GenerationProgress struct {
	Phase      Phase  `json:"phase"`
	Current    int    `json:"current"`
	Total      int    `json:"total"`
	StoryTitle string `json:"storyTitle,omitempty"`
}
