package contract

import (
	"context"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ResearchSessionRepository interface {
	Create(ctx context.Context, session *entity.ResearchSession) error
	Update(ctx context.Context, session *entity.ResearchSession) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error
	UpdateState(ctx context.Context, id uuid.UUID, stateData []byte, status string, progress int) error
	SetFinalReportFile(ctx context.Context, id uuid.UUID, relativePath string) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
