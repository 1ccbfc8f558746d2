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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GeneratedFileRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ResearchMapper
}

func NewGeneratedFileRepository(db *gorm.DB) contract.GeneratedFileRepository {
	return &GeneratedFileRepositoryImpl{
		db:     db,
		mapper: mapper.NewResearchMapper(),
	}
}

func (r *GeneratedFileRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *GeneratedFileRepositoryImpl) Upsert(ctx context.Context, file *entity.GeneratedFile) error {
	m := r.mapper.FileToModel(file)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "relative_path"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "type", "content", "absolute_path", "size", "is_public", "updated_at",
			}),
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*file = *r.mapper.FileToEntity(m)
	return nil
}

func (r *GeneratedFileRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GeneratedFile, error) {
	var m model.GeneratedFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.FileToEntity(&m), nil
}

func (r *GeneratedFileRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedFile, error) {
	var models []*model.GeneratedFile
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.GeneratedFile, len(models))
	for i, m := range models {
		entities[i] = r.mapper.FileToEntity(m)
	}
	return entities, nil
}

func (r *GeneratedFileRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.GeneratedFile{}).Error
}
