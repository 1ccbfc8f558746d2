package service

import (
	"context"
	"fmt"
	"time"

	"deepresearch-be/internal/dto"
	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/internal/repository/memory"
	"deepresearch-be/pkg/llm"

	"github.com/google/uuid"
)

// Keeps prompts bounded when a conversation runs long.
const chatHistoryWindow = 20

type IChatbotService interface {
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.ChatRequest) (*dto.ChatResponse, error)
	GetSession(sessionId string) (*entity.ChatSession, bool)
	DeleteSession(sessionId string)
}

type chatbotService struct {
	llmProvider llm.LLMProvider
	sessionRepo *memory.ChatSessionRepository
	log         logger.ILogger
}

func NewChatbotService(
	llmProvider llm.LLMProvider,
	sessionRepo *memory.ChatSessionRepository,
	log logger.ILogger,
) IChatbotService {
	return &chatbotService{
		llmProvider: llmProvider,
		sessionRepo: sessionRepo,
		log:         log,
	}
}

func (s *chatbotService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.ChatRequest) (*dto.ChatResponse, error) {
	sessionId := req.SessionId
	session, found := s.sessionRepo.Get(sessionId)
	if !found {
		if sessionId == "" {
			sessionId = uuid.NewString()
		}
		session = &entity.ChatSession{
			Id:        sessionId,
			UserId:    userId.String(),
			Messages:  make([]llm.Message, 0),
			CreatedAt: time.Now(),
		}
	}

	history := session.Messages
	if len(history) > chatHistoryWindow {
		history = history[len(history)-chatHistoryWindow:]
	}

	prompt := append(append([]llm.Message{}, history...), llm.Message{
		Role:    "user",
		Content: req.Message,
	})

	reply, err := s.llmProvider.Chat(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		s.log.Error("chatbot", "llm chat failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	session.Messages = append(session.Messages,
		llm.Message{Role: "user", Content: req.Message},
		llm.Message{Role: "assistant", Content: reply},
	)
	session.UpdatedAt = time.Now()
	s.sessionRepo.Save(session)

	return &dto.ChatResponse{
		SessionId: sessionId,
		Reply:     reply,
	}, nil
}

func (s *chatbotService) GetSession(sessionId string) (*entity.ChatSession, bool) {
	return s.sessionRepo.Get(sessionId)
}

func (s *chatbotService) DeleteSession(sessionId string) {
	s.sessionRepo.Delete(sessionId)
}
