package contract

import (
	"context"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/repository/specification"

	"github.com/google/uuid"
)

type GeneratedFileRepository interface {
	// Upsert writes a file record keyed by (session_id, relative_path);
	// writing the same path twice replaces, never duplicates.
	Upsert(ctx context.Context, file *entity.GeneratedFile) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GeneratedFile, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedFile, error)
	DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error
}
