package research

import (
	"context"

	"github.com/google/uuid"
)

// Finding is one retrieved piece of knowledge used as research input.
type Finding struct {
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float32 `json:"score"`
}

// KnowledgeTool is the retrieval capability exposed to the research stage:
// Search feeds prior findings into the section prompt, Store grows the
// knowledge base with each drafted section.
type KnowledgeTool interface {
	Search(ctx context.Context, sessionID uuid.UUID, query string, limit int) ([]Finding, error)
	Store(ctx context.Context, sessionID uuid.UUID, sectionIndex int, title, content string) error
}
