package contract

import (
	"context"

	"deepresearch-be/internal/entity"

	"github.com/google/uuid"
)

type SectionEmbeddingRepository interface {
	Create(ctx context.Context, embedding *entity.SectionEmbedding) error
	// SearchSimilar returns the closest stored sections for a query vector,
	// scoped to one session, ordered by cosine similarity descending.
	SearchSimilar(ctx context.Context, sessionId uuid.UUID, vector []float32, limit int) ([]*entity.SectionEmbeddingMatch, error)
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
}
