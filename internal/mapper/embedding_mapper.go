package mapper

import (
	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/model"

	"github.com/pgvector/pgvector-go"
)

type SectionEmbeddingMapper struct{}

func NewSectionEmbeddingMapper() *SectionEmbeddingMapper {
	return &SectionEmbeddingMapper{}
}

func (m *SectionEmbeddingMapper) ToEntity(e *model.SectionEmbedding) *entity.SectionEmbedding {
	if e == nil {
		return nil
	}
	return &entity.SectionEmbedding{
		Id:           e.Id,
		SessionId:    e.SessionId,
		SectionIndex: e.SectionIndex,
		Title:        e.Title,
		Document:     e.Document,
		Embedding:    e.EmbeddingValue.Slice(),
		CreatedAt:    e.CreatedAt,
	}
}

func (m *SectionEmbeddingMapper) ToModel(e *entity.SectionEmbedding) *model.SectionEmbedding {
	if e == nil {
		return nil
	}
	return &model.SectionEmbedding{
		Id:             e.Id,
		SessionId:      e.SessionId,
		SectionIndex:   e.SectionIndex,
		Title:          e.Title,
		Document:       e.Document,
		EmbeddingValue: pgvector.NewVector(e.Embedding),
		CreatedAt:      e.CreatedAt,
	}
}
