package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"deepresearch-be/internal/config"
	"deepresearch-be/internal/dto"
	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/internal/repository/contract"
	"deepresearch-be/internal/repository/specification"
	"deepresearch-be/pkg/events"
	"deepresearch-be/pkg/files"
	"deepresearch-be/pkg/llm"
	pktNats "deepresearch-be/pkg/nats"
	"deepresearch-be/pkg/research"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrSessionNotFound = errors.New("research session not found")
	ErrSessionFinished = errors.New("research session already completed or cancelled")
	ErrSessionNotOwned = errors.New("research session belongs to another user")
	ErrFileNotFound    = errors.New("generated file not found")
)

const (
	progressTopicPrefix = "research.progress."
	cancelKeyPrefix     = "research:cancel:"
	statusKeyPrefix     = "research:status:"
	statusCacheTTL      = time.Hour
)

type IResearchService interface {
	Start(ctx context.Context, userId uuid.UUID, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error)
	Stream(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (<-chan dto.StreamEvent, *entity.ResearchSession, error)
	Status(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionStatusResponse, error)
	History(ctx context.Context, userId uuid.UUID) (*dto.HistoryResponse, error)
	Cancel(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.CancelResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
	Files(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.FileListResponse, error)
	ReadFile(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, relativePath string) ([]byte, error)
}

type researchService struct {
	sessionRepo    contract.ResearchSessionRepository
	embeddingRepo  contract.SectionEmbeddingRepository
	fileManager    *files.FileManager
	llmProvider    llm.LLMProvider
	knowledge      research.KnowledgeTool
	pubSub         *gochannel.GoChannel
	redisClient    *redis.Client
	eventPublisher *pktNats.Publisher
	cfg            *config.Config
	log            logger.ILogger
	pipelineLog    logger.ILogger

	mu      sync.Mutex
	cancels map[uuid.UUID]context.CancelFunc
	flagged map[uuid.UUID]bool
}

func NewResearchService(
	sessionRepo contract.ResearchSessionRepository,
	embeddingRepo contract.SectionEmbeddingRepository,
	fileManager *files.FileManager,
	llmProvider llm.LLMProvider,
	knowledge research.KnowledgeTool,
	pubSub *gochannel.GoChannel,
	redisClient *redis.Client,
	eventPublisher *pktNats.Publisher,
	cfg *config.Config,
	log logger.ILogger,
	pipelineLog logger.ILogger,
) IResearchService {
	return &researchService{
		sessionRepo:    sessionRepo,
		embeddingRepo:  embeddingRepo,
		fileManager:    fileManager,
		llmProvider:    llmProvider,
		knowledge:      knowledge,
		pubSub:         pubSub,
		redisClient:    redisClient,
		eventPublisher: eventPublisher,
		cfg:            cfg,
		log:            log,
		pipelineLog:    pipelineLog,
		cancels:        make(map[uuid.UUID]context.CancelFunc),
		flagged:        make(map[uuid.UUID]bool),
	}
}

func (s *researchService) Start(ctx context.Context, userId uuid.UUID, req *dto.StartResearchRequest) (*dto.StartResearchResponse, error) {
	sessionId := uuid.New()

	session := &entity.ResearchSession{
		Id:         sessionId,
		UserId:     userId,
		Question:   req.Question,
		Status:     string(research.StatusAnalyzing),
		Progress:   0,
		OutputPath: filepath.Join(s.cfg.Research.OutputDir, sessionId.String()),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create research session: %w", err)
	}

	if err := s.fileManager.EnsureSessionDir(sessionId); err != nil {
		return nil, err
	}

	s.publishLifecycle(events.NewResearchStarted(sessionId.String(), userId.String(), req.Question))

	runCtx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	s.cancels[sessionId] = cancel
	s.mu.Unlock()

	go s.run(runCtx, sessionId, userId, req.Question)

	return &dto.StartResearchResponse{
		SessionId: sessionId.String(),
		Message:   "research session created",
	}, nil
}

// run drives one research pipeline to a terminal status. It owns the
// run context; the service only cancels it.
func (s *researchService) run(ctx context.Context, sessionId, userId uuid.UUID, question string) {
	defer func() {
		s.mu.Lock()
		if cancel, ok := s.cancels[sessionId]; ok {
			cancel()
			delete(s.cancels, sessionId)
		}
		delete(s.flagged, sessionId)
		s.mu.Unlock()
	}()

	runner := &sessionRun{svc: s, sessionId: sessionId, savedSections: make(map[int]bool)}

	pipeline := research.NewPipeline(
		s.llmProvider,
		s.knowledge,
		runner,
		runner,
		s.isCancelled,
		s.pipelineLog,
		research.Temperatures{
			Analysis:   s.cfg.Research.AnalysisTemp,
			Generation: s.cfg.Research.GenerationTemp,
			Search:     s.cfg.Research.SearchTemp,
		},
	)

	st, err := pipeline.Run(ctx, research.NewState(question, sessionId, userId))

	switch {
	case errors.Is(err, research.ErrCancelled) || errors.Is(err, context.Canceled):
		s.finishCancelled(sessionId, userId, st)
	case err != nil:
		// Run infrastructure failed outside any stage boundary.
		s.log.Error("research", "pipeline run failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		s.finishError(sessionId, userId, st, err.Error())
	case st.Status == research.StatusError:
		s.finishError(sessionId, userId, st, st.Error)
	case st.Status == research.StatusCompleted:
		s.finishCompleted(ctx, sessionId, userId, st, runner)
	}
}

func (s *researchService) finishCompleted(ctx context.Context, sessionId, userId uuid.UUID, st *research.State, runner *sessionRun) {
	title := st.Question
	if st.Analysis != nil && st.Analysis.CoreTheme != "" {
		title = st.Analysis.CoreTheme
	}

	persistCtx := context.WithoutCancel(ctx)
	htmlFile, err := s.fileManager.AssembleFinalBundle(persistCtx, sessionId, title, st.FinalReport)
	if err != nil {
		s.log.Error("research", "final bundle assembly failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		s.finishError(sessionId, userId, st, "report assembly failed: "+err.Error())
		return
	}

	if err := s.sessionRepo.SetFinalReportFile(persistCtx, sessionId, htmlFile); err != nil {
		s.log.Error("research", "failed to record final report file", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	tree, err := s.fileManager.FileTree(persistCtx, sessionId)
	if err != nil {
		s.log.Warn("research", "failed to build file tree", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}

	s.publishStream(sessionId, dto.StreamEvent{
		Type:        "completed",
		SessionId:   sessionId.String(),
		Status:      string(research.StatusCompleted),
		Progress:    research.ProgressCompleted,
		FinalReport: st.FinalReport,
		HtmlFile:    htmlFile,
		FileTree:    tree,
	})

	s.publishLifecycle(events.NewResearchCompleted(sessionId.String(), userId.String(), htmlFile))
}

func (s *researchService) finishError(sessionId, userId uuid.UUID, st *research.State, reason string) {
	progress := 0
	if st != nil {
		progress = st.Progress
	}

	// The row must reflect the failure even when a stage already
	// checkpointed a later status, so polling observers see it.
	if err := s.sessionRepo.UpdateStatus(context.Background(), sessionId, string(research.StatusError), progress); err != nil {
		s.log.Error("research", "failed to mark session errored", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
	s.cacheStatus(sessionId, string(research.StatusError), progress)

	s.publishStream(sessionId, dto.StreamEvent{
		Type:      "error",
		SessionId: sessionId.String(),
		Status:    string(research.StatusError),
		Progress:  progress,
		Error:     reason,
	})

	s.publishLifecycle(events.NewResearchFailed(sessionId.String(), userId.String(), reason))
}

func (s *researchService) finishCancelled(sessionId, userId uuid.UUID, st *research.State) {
	progress := 0
	if st != nil {
		progress = st.Progress
	}

	// Progress keeps its last checkpointed value.
	if err := s.sessionRepo.UpdateStatus(context.Background(), sessionId, string(research.StatusCancelled), progress); err != nil {
		s.log.Error("research", "failed to mark session cancelled", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
	s.cacheStatus(sessionId, string(research.StatusCancelled), progress)

	s.publishStream(sessionId, dto.StreamEvent{
		Type:      "cancelled",
		SessionId: sessionId.String(),
		Status:    string(research.StatusCancelled),
		Progress:  progress,
	})
}

func (s *researchService) Stream(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (<-chan dto.StreamEvent, *entity.ResearchSession, error) {
	session, err := s.ownedSession(ctx, userId, sessionId)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.pubSub.Subscribe(ctx, progressTopicPrefix+sessionId.String())
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe progress topic: %w", err)
	}

	out := make(chan dto.StreamEvent)
	go func() {
		defer close(out)
		for msg := range messages {
			var event dto.StreamEvent
			if err := json.Unmarshal(msg.Payload, &event); err != nil {
				s.log.Warn("research", "dropping malformed progress message", map[string]interface{}{
					"session_id": sessionId.String(),
					"error":      err.Error(),
				})
				msg.Ack()
				continue
			}
			msg.Ack()

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}

			if event.Type == "completed" || event.Type == "error" || event.Type == "cancelled" {
				return
			}
		}
	}()

	return out, session, nil
}

func (s *researchService) Status(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.SessionStatusResponse, error) {
	session, err := s.ownedSession(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}

	var st *research.State
	if len(session.StateData) > 0 {
		st = &research.State{}
		if err := json.Unmarshal(session.StateData, st); err != nil {
			s.log.Warn("research", "failed to decode persisted state", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
			st = nil
		}
	}

	tree, err := s.fileManager.FileTree(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	fileList, err := s.fileManager.List(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	resp := &dto.SessionStatusResponse{
		SessionId:     session.Id.String(),
		UserId:        session.UserId.String(),
		Question:      session.Question,
		Status:        session.Status,
		Progress:      session.Progress,
		OutputPath:    session.OutputPath,
		FinalHtmlFile: session.FinalReportFile,
		CreatedAt:     session.CreatedAt,
		UpdatedAt:     session.UpdatedAt,
		State:         st,
		FileTree:      tree,
		Files:         toFileSummaries(fileList),
	}
	return resp, nil
}

func (s *researchService) History(ctx context.Context, userId uuid.UUID) (*dto.HistoryResponse, error) {
	sessions, err := s.sessionRepo.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.SessionSummary, len(sessions))
	for i, session := range sessions {
		summaries[i] = dto.SessionSummary{
			Id:        session.Id.String(),
			Question:  session.Question,
			Status:    session.Status,
			Progress:  session.Progress,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		}
	}

	return &dto.HistoryResponse{Sessions: summaries, Total: len(summaries)}, nil
}

func (s *researchService) Cancel(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.CancelResponse, error) {
	session, err := s.ownedSession(ctx, userId, sessionId)
	if err != nil {
		return nil, err
	}

	status := research.Status(session.Status)
	if status == research.StatusCompleted || status == research.StatusCancelled {
		return nil, ErrSessionFinished
	}

	s.mu.Lock()
	s.flagged[sessionId] = true
	cancel, running := s.cancels[sessionId]
	s.mu.Unlock()

	if s.redisClient != nil {
		if err := s.redisClient.Set(ctx, cancelKeyPrefix+sessionId.String(), "1", statusCacheTTL).Err(); err != nil {
			s.log.Warn("research", "failed to set cancel flag in redis", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}

	if running {
		cancel()
	} else {
		// No live run in this process; mark the row directly.
		if err := s.sessionRepo.UpdateStatus(ctx, sessionId, string(research.StatusCancelled), session.Progress); err != nil {
			return nil, err
		}
		s.cacheStatus(sessionId, string(research.StatusCancelled), session.Progress)
		s.publishStream(sessionId, dto.StreamEvent{
			Type:      "cancelled",
			SessionId: sessionId.String(),
			Status:    string(research.StatusCancelled),
			Progress:  session.Progress,
		})
	}

	s.publishLifecycle(events.NewResearchCancelled(sessionId.String(), userId.String()))

	return &dto.CancelResponse{
		SessionId: sessionId.String(),
		Message:   "research cancelled",
	}, nil
}

func (s *researchService) Delete(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	session, err := s.ownedSession(ctx, userId, sessionId)
	if err != nil {
		return err
	}

	s.mu.Lock()
	cancel, running := s.cancels[sessionId]
	if running {
		s.flagged[sessionId] = true
	}
	s.mu.Unlock()
	if running {
		cancel()
	}

	if err := s.fileManager.DeleteAll(ctx, sessionId); err != nil {
		return err
	}
	if err := s.embeddingRepo.DeleteBySessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := s.sessionRepo.Delete(ctx, sessionId); err != nil {
		return err
	}

	if s.redisClient != nil {
		s.redisClient.Del(ctx, cancelKeyPrefix+sessionId.String(), statusKeyPrefix+sessionId.String())
	}

	s.publishLifecycle(events.NewResearchDeleted(sessionId.String(), session.UserId.String()))
	return nil
}

func (s *researchService) Files(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.FileListResponse, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	fileList, err := s.fileManager.List(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	tree, err := s.fileManager.FileTree(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	return &dto.FileListResponse{
		SessionId: sessionId.String(),
		Files:     toFileSummaries(fileList),
		FileTree:  tree,
	}, nil
}

func (s *researchService) ReadFile(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, relativePath string) ([]byte, error) {
	if _, err := s.ownedSession(ctx, userId, sessionId); err != nil {
		return nil, err
	}

	content, err := s.fileManager.Read(sessionId, relativePath)
	if err != nil {
		return nil, err
	}
	if content == nil {
		return nil, ErrFileNotFound
	}
	return content, nil
}

func (s *researchService) ownedSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*entity.ResearchSession, error) {
	session, err := s.sessionRepo.FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.UserId != userId {
		return nil, ErrSessionNotOwned
	}
	return session, nil
}

func (s *researchService) isCancelled(ctx context.Context, sessionId uuid.UUID) bool {
	s.mu.Lock()
	flagged := s.flagged[sessionId]
	s.mu.Unlock()
	if flagged {
		return true
	}

	if s.redisClient == nil {
		return false
	}
	val, err := s.redisClient.Get(ctx, cancelKeyPrefix+sessionId.String()).Result()
	if err != nil {
		return false
	}
	return val == "1"
}

func (s *researchService) publishStream(sessionId uuid.UUID, event dto.StreamEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("research", "failed to marshal stream event", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
		return
	}
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := s.pubSub.Publish(progressTopicPrefix+sessionId.String(), msg); err != nil {
		s.log.Warn("research", "failed to publish stream event", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (s *researchService) publishLifecycle(event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("research", "failed to publish lifecycle event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func (s *researchService) cacheStatus(sessionId uuid.UUID, status string, progress int) {
	if s.redisClient == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"status": status, "progress": progress})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.redisClient.Set(ctx, statusKeyPrefix+sessionId.String(), payload, statusCacheTTL).Err(); err != nil {
		s.log.Debug("research", "status cache write failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func toFileSummaries(fileList []*entity.GeneratedFile) []dto.FileSummary {
	summaries := make([]dto.FileSummary, len(fileList))
	for i, f := range fileList {
		summaries[i] = dto.FileSummary{
			Name:         f.Name,
			Type:         f.Type,
			RelativePath: f.RelativePath,
			Size:         f.Size,
			CreatedAt:    f.CreatedAt,
		}
	}
	return summaries
}

// sessionRun binds one pipeline run to its session row and progress
// topic. It is both the Checkpointer and the Emitter of the run.
type sessionRun struct {
	svc           *researchService
	sessionId     uuid.UUID
	savedSections map[int]bool
}

var (
	_ research.Checkpointer = &sessionRun{}
	_ research.Emitter      = &sessionRun{}
)

func (r *sessionRun) SaveState(ctx context.Context, st *research.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal research state: %w", err)
	}

	persistCtx := context.WithoutCancel(ctx)
	if err := r.svc.sessionRepo.UpdateState(persistCtx, r.sessionId, data, string(st.Status), st.Progress); err != nil {
		return fmt.Errorf("persist research state: %w", err)
	}
	r.svc.cacheStatus(r.sessionId, string(st.Status), st.Progress)

	// Mirror each newly drafted section to a markdown artifact.
	for _, section := range st.GeneratedContent {
		if r.savedSections[section.SectionIndex] {
			continue
		}
		if err := r.svc.fileManager.SaveSection(persistCtx, r.sessionId, section.SectionIndex, section.Title, section.Content); err != nil {
			r.svc.log.Warn("research", "failed to save section artifact", map[string]interface{}{
				"session_id":    r.sessionId.String(),
				"section_index": section.SectionIndex,
				"error":         err.Error(),
			})
			continue
		}
		r.savedSections[section.SectionIndex] = true
	}
	return nil
}

func (r *sessionRun) Emit(st *research.State) {
	r.svc.publishStream(r.sessionId, dto.StreamEvent{
		Type:             "progress",
		SessionId:        r.sessionId.String(),
		Status:           string(st.Status),
		Progress:         st.Progress,
		Analysis:         st.Analysis,
		Plan:             st.Plan,
		GeneratedContent: st.GeneratedContent,
		Error:            st.Error,
	})
}
