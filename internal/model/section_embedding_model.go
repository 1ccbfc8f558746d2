package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type SectionEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId      uuid.UUID       `gorm:"type:uuid;not null;index"`
	SectionIndex   int             `gorm:"not null"`
	Title          string          `gorm:"type:text;not null"`
	Document       string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
}

func (SectionEmbedding) TableName() string {
	return "section_embeddings"
}
