package factory

import (
	"fmt"

	"deepresearch-be/pkg/llm"
	"deepresearch-be/pkg/llm/gemini"
	"deepresearch-be/pkg/llm/ollama"
)

func NewLLMProvider(providerType, modelName, baseURL, geminiApiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	case "gemini":
		if geminiApiKey == "" {
			return nil, fmt.Errorf("gemini provider requires GOOGLE_GEMINI_API_KEY")
		}
		return gemini.NewGeminiProvider(geminiApiKey, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
