package entity

import (
	"time"

	"github.com/google/uuid"
)

type SectionEmbedding struct {
	Id           uuid.UUID
	SessionId    uuid.UUID
	SectionIndex int
	Title        string
	Document     string
	Embedding    []float32
	CreatedAt    time.Time
}

// SectionEmbeddingMatch is a similarity search hit.
type SectionEmbeddingMatch struct {
	SectionEmbedding
	Similarity float64
}
