package implementation

import (
	"context"
	"errors"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/mapper"
	"deepresearch-be/internal/model"
	"deepresearch-be/internal/repository/contract"
	"deepresearch-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ResearchSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ResearchMapper
}

func NewResearchSessionRepository(db *gorm.DB) contract.ResearchSessionRepository {
	return &ResearchSessionRepositoryImpl{
		db:     db,
		mapper: mapper.NewResearchMapper(),
	}
}

func (r *ResearchSessionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ResearchSessionRepositoryImpl) Create(ctx context.Context, session *entity.ResearchSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *ResearchSessionRepositoryImpl) Update(ctx context.Context, session *entity.ResearchSession) error {
	m := r.mapper.SessionToModel(session)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*session = *r.mapper.SessionToEntity(m)
	return nil
}

func (r *ResearchSessionRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string, progress int) error {
	return r.db.WithContext(ctx).
		Model(&model.ResearchSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   status,
			"progress": progress,
		}).Error
}

func (r *ResearchSessionRepositoryImpl) UpdateState(ctx context.Context, id uuid.UUID, stateData []byte, status string, progress int) error {
	return r.db.WithContext(ctx).
		Model(&model.ResearchSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state_data": datatypes.JSON(stateData),
			"status":     status,
			"progress":   progress,
		}).Error
}

func (r *ResearchSessionRepositoryImpl) SetFinalReportFile(ctx context.Context, id uuid.UUID, relativePath string) error {
	return r.db.WithContext(ctx).
		Model(&model.ResearchSession{}).
		Where("id = ?", id).
		Update("final_report_file", relativePath).Error
}

func (r *ResearchSessionRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.ResearchSession{}, id).Error
}

func (r *ResearchSessionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ResearchSession, error) {
	var m model.ResearchSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *ResearchSessionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ResearchSession, error) {
	var models []*model.ResearchSession
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.ResearchSession, len(models))
	for i, m := range models {
		entities[i] = r.mapper.SessionToEntity(m)
	}
	return entities, nil
}

func (r *ResearchSessionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ResearchSession{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
