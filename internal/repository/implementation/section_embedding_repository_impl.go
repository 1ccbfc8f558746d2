package implementation

import (
	"context"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/mapper"
	"deepresearch-be/internal/model"
	"deepresearch-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type SectionEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SectionEmbeddingMapper
}

func NewSectionEmbeddingRepository(db *gorm.DB) contract.SectionEmbeddingRepository {
	return &SectionEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewSectionEmbeddingMapper(),
	}
}

func (r *SectionEmbeddingRepositoryImpl) Create(ctx context.Context, embedding *entity.SectionEmbedding) error {
	m := r.mapper.ToModel(embedding)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*embedding = *r.mapper.ToEntity(m)
	return nil
}

type sectionEmbeddingRow struct {
	model.SectionEmbedding
	Similarity float64
}

func (r *SectionEmbeddingRepositoryImpl) SearchSimilar(ctx context.Context, sessionId uuid.UUID, vector []float32, limit int) ([]*entity.SectionEmbeddingMatch, error) {
	queryVector := pgvector.NewVector(vector)

	// Cosine distance in pgvector is 1 - cosine_similarity,
	// so 1 - (embedding_value <=> query_vector) = cosine_similarity
	var rows []sectionEmbeddingRow
	err := r.db.WithContext(ctx).
		Model(&model.SectionEmbedding{}).
		Select("section_embeddings.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("session_id = ?", sessionId).
		Order(gorm.Expr("embedding_value <=> ?", queryVector)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	matches := make([]*entity.SectionEmbeddingMatch, len(rows))
	for i, row := range rows {
		matches[i] = &entity.SectionEmbeddingMatch{
			SectionEmbedding: *r.mapper.ToEntity(&row.SectionEmbedding),
			Similarity:       row.Similarity,
		}
	}
	return matches, nil
}

func (r *SectionEmbeddingRepositoryImpl) DeleteBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionId).Delete(&model.SectionEmbedding{}).Error
}
