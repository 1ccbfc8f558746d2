package bootstrap

import (
	"context"
	"log"

	"deepresearch-be/internal/config"
	"deepresearch-be/internal/controller"
	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/internal/repository/implementation"
	"deepresearch-be/internal/repository/memory"
	"deepresearch-be/internal/service"
	"deepresearch-be/pkg/embedding"
	"deepresearch-be/pkg/files"
	"deepresearch-be/pkg/llm/factory"

	pktNats "deepresearch-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ResearchController controller.IResearchController
	FileController     controller.IFileController
	ChatbotController  controller.IChatbotController
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	pipelineLogger := logger.NewIsolatedLogger("logs/research.log")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		natsSub = nil
	}

	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// 5. Repositories
	sessionRepo := implementation.NewResearchSessionRepository(db)
	fileRepo := implementation.NewGeneratedFileRepository(db)
	embeddingRepo := implementation.NewSectionEmbeddingRepository(db)
	chatSessionRepo := memory.NewChatSessionRepository()

	fileManager := files.NewFileManager(cfg.Research.OutputDir, fileRepo, sysLogger)

	// 6. Services
	knowledgeService := service.NewKnowledgeService(embeddingProvider, embeddingRepo, sysLogger)

	researchService := service.NewResearchService(
		sessionRepo,
		embeddingRepo,
		fileManager,
		llmProvider,
		knowledgeService,
		pubSub,
		rdb,
		natsPub,
		cfg,
		sysLogger,
		pipelineLogger,
	)

	chatbotService := service.NewChatbotService(
		llmProvider,
		chatSessionRepo,
		sysLogger,
	)

	// Audit Worker
	if natsSub != nil {
		auditService := service.NewAuditService(natsSub, logger.NewIsolatedLogger("logs/audit.log"))
		go auditService.Start()
	}

	// 7. Controllers
	return &Container{
		ResearchController: controller.NewResearchController(researchService),
		FileController:     controller.NewFileController(researchService),
		ChatbotController:  controller.NewChatbotController(chatbotService),
	}
}
