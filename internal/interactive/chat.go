// Package interactive runs the reflective chat session over a
// generated story's knowledge chunks.
package interactive

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lore/internal/core"
	"lore/internal/generator"
	"lore/internal/llm"
)

// fallbackReply is shown when the remote chat turn fails; the session
// keeps going rather than dying on one bad response.
const fallbackReply = "I couldn't reach the model just now — but keep going: which of the five cards stood out to you most, and why?"

// ChatHandler manages a reflective chat session grounded in one story.
type ChatHandler struct {
	gen     *generator.Generator
	scanner *bufio.Scanner
	out     io.Writer
	story   core.Story
	history []llm.Message
}

// NewChatHandler creates a chat handler for the given story.
func NewChatHandler(gen *generator.Generator, story core.Story) *ChatHandler {
	return &ChatHandler{
		gen:     gen,
		scanner: bufio.NewScanner(os.Stdin),
		out:     os.Stdout,
		story:   story,
		history: make([]llm.Message, 0),
	}
}

// Run runs the interactive chat loop until the user quits or stdin
// closes.
func (h *ChatHandler) Run(ctx context.Context) error {
	fmt.Fprintf(h.out, "\nReflecting on: %s\n", h.story.Title)
	fmt.Fprintf(h.out, "%s\n\n", h.story.Description)
	fmt.Fprintln(h.out, "Commands: /cards shows the knowledge cards, /save writes the transcript, quit exits.")
	fmt.Fprintln(h.out)

	for {
		fmt.Fprint(h.out, "You: ")
		if !h.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(h.scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			if err := h.handleCommand(input); err != nil {
				fmt.Fprintf(h.out, "Error: %v\n", err)
			}
			continue
		}

		if lower := strings.ToLower(input); lower == "quit" || lower == "exit" {
			fmt.Fprintln(h.out, "Session ended.")
			break
		}

		h.processTurn(ctx, input)
	}

	return h.scanner.Err()
}

// processTurn sends one user message and prints the reply, degrading to
// the fallback text when the remote call fails.
func (h *ChatHandler) processTurn(ctx context.Context, input string) {
	reply, err := h.gen.GenerateChatResponse(ctx, input, h.history, h.story.Chunks)
	if err != nil {
		reply = fallbackReply
	}

	h.history = append(h.history,
		llm.Message{Role: llm.RoleUser, Content: input},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)

	fmt.Fprintf(h.out, "\nCompanion: %s\n\n", reply)
}

func (h *ChatHandler) handleCommand(command string) error {
	parts := strings.Fields(command)
	switch parts[0] {
	case "/cards":
		h.showCards()
	case "/save":
		filename := "reflection.md"
		if len(parts) > 1 {
			filename = strings.Join(parts[1:], " ")
		}
		return h.saveTranscript(filename)
	default:
		fmt.Fprintf(h.out, "Unknown command: %s\n", parts[0])
	}
	return nil
}

func (h *ChatHandler) showCards() {
	fmt.Fprintln(h.out)
	for _, chunk := range h.story.Chunks {
		fmt.Fprintf(h.out, "%d. %s\n   %s\n", chunk.ID, chunk.Title, chunk.Content)
	}
	fmt.Fprintln(h.out)
}

func (h *ChatHandler) saveTranscript(filename string) error {
	var content strings.Builder

	content.WriteString(fmt.Sprintf("# Reflection — %s\n\n", h.story.Title))
	content.WriteString(fmt.Sprintf("**Date:** %s\n\n", time.Now().Format("2006-01-02 15:04:05")))

	content.WriteString("## Knowledge Cards\n\n")
	for _, chunk := range h.story.Chunks {
		content.WriteString(fmt.Sprintf("%d. **%s** — %s\n", chunk.ID, chunk.Title, chunk.Content))
	}

	content.WriteString("\n## Conversation\n\n")
	for _, msg := range h.history {
		if msg.Role == llm.RoleUser {
			content.WriteString(fmt.Sprintf("**You:** %s\n\n", msg.Content))
		} else {
			content.WriteString(fmt.Sprintf("**Companion:** %s\n\n", msg.Content))
		}
	}

	if err := os.WriteFile(filename, []byte(content.String()), 0644); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}

	fmt.Fprintf(h.out, "Transcript saved to: %s\n", filename)
	return nil
}
