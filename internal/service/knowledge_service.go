package service

import (
	"context"
	"fmt"

	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/internal/repository/contract"
	"deepresearch-be/pkg/embedding"
	"deepresearch-be/pkg/research"
	"deepresearch-be/pkg/utils"

	"github.com/google/uuid"
)

// KnowledgeService backs the research pipeline's retrieval tool with
// pgvector similarity search over previously drafted sections.
type KnowledgeService struct {
	embedder      embedding.EmbeddingProvider
	embeddingRepo contract.SectionEmbeddingRepository
	log           logger.ILogger
}

var _ research.KnowledgeTool = &KnowledgeService{}

func NewKnowledgeService(
	embedder embedding.EmbeddingProvider,
	embeddingRepo contract.SectionEmbeddingRepository,
	log logger.ILogger,
) *KnowledgeService {
	return &KnowledgeService{
		embedder:      embedder,
		embeddingRepo: embeddingRepo,
		log:           log,
	}
}

func (s *KnowledgeService) Search(ctx context.Context, sessionID uuid.UUID, query string, limit int) ([]research.Finding, error) {
	resp, err := s.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.embeddingRepo.SearchSimilar(ctx, sessionID, resp.Embedding.Values, limit)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}

	findings := make([]research.Finding, len(matches))
	for i, m := range matches {
		findings[i] = research.Finding{
			Title:   m.Title,
			Content: m.Document,
			Score:   float32(m.Similarity),
		}
	}
	return findings, nil
}

// Long sections are split so each embedding stays within model input
// limits while retrieval still returns focused passages.
const (
	embedChunkSize    = 2000
	embedChunkOverlap = 200
)

func (s *KnowledgeService) Store(ctx context.Context, sessionID uuid.UUID, sectionIndex int, title, content string) error {
	chunks := utils.SplitText(content, embedChunkSize, embedChunkOverlap)

	for _, chunk := range chunks {
		resp, err := s.embedder.Generate(title+"\n"+chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return fmt.Errorf("embed section: %w", err)
		}

		err = s.embeddingRepo.Create(ctx, &entity.SectionEmbedding{
			Id:           uuid.New(),
			SessionId:    sessionID,
			SectionIndex: sectionIndex,
			Title:        title,
			Document:     chunk,
			Embedding:    resp.Embedding.Values,
		})
		if err != nil {
			return fmt.Errorf("store embedding: %w", err)
		}
	}

	s.log.Debug("knowledge", "section embedded", map[string]interface{}{
		"session_id":    sessionID.String(),
		"section_index": sectionIndex,
		"chunks":        len(chunks),
	})
	return nil
}
