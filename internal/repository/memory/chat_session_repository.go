package memory

import (
	"time"

	"deepresearch-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

type ChatSessionRepository struct {
	cache *cache.Cache
}

func NewChatSessionRepository() *ChatSessionRepository {
	// Create a cache with a default expiration time of 1 hour, and which
	// purges expired items every 10 minutes
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &ChatSessionRepository{
		cache: c,
	}
}

func (r *ChatSessionRepository) Save(session *entity.ChatSession) {
	r.cache.Set(session.Id, session, cache.DefaultExpiration)
}

func (r *ChatSessionRepository) Get(sessionId string) (*entity.ChatSession, bool) {
	if x, found := r.cache.Get(sessionId); found {
		return x.(*entity.ChatSession), true
	}
	return nil, false
}

func (r *ChatSessionRepository) Delete(sessionId string) {
	r.cache.Delete(sessionId)
}
