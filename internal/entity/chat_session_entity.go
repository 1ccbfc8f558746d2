package entity

import (
	"time"

	"deepresearch-be/pkg/llm"
)

// ChatSession holds the rolling message history of one chatbot
// conversation. Sessions live in memory only and expire when idle.
type ChatSession struct {
	Id        string
	UserId    string
	Messages  []llm.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}
