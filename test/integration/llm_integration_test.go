package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"deepresearch-be/pkg/llm"
	"deepresearch-be/pkg/llm/ollama"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises a local Ollama instance end to end. Skipped unless
// OLLAMA_INTEGRATION=1 is set and a model is pulled locally.
func TestOllamaChat(t *testing.T) {
	if os.Getenv("OLLAMA_INTEGRATION") != "1" {
		t.Skip("Skipping integration test: OLLAMA_INTEGRATION not set")
	}

	baseURL := os.Getenv("OLLAMA_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gemma:2b"
	}

	provider := ollama.NewOllamaProvider(baseURL, model)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	reply, err := provider.Chat(ctx, []llm.Message{
		{Role: "user", Content: "Reply with the single word: pong"},
	}, llm.WithTemperature(0))
	require.NoError(t, err)
	assert.NotEmpty(t, reply)
	t.Logf("Ollama reply: %s", reply)
}
