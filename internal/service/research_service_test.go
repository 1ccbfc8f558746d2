package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"deepresearch-be/internal/config"
	"deepresearch-be/internal/dto"
	"deepresearch-be/internal/entity"
	"deepresearch-be/internal/repository/specification"
	"deepresearch-be/pkg/files"
	"deepresearch-be/pkg/llm"
	"deepresearch-be/pkg/research"
)

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ResearchSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[uuid.UUID]*entity.ResearchSession)}
}

func (r *fakeSessionRepo) get(id uuid.UUID) *entity.ResearchSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil
	}
	copied := *session
	return &copied
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.ResearchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	copied.CreatedAt = time.Now()
	r.sessions[session.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) Update(_ context.Context, session *entity.ResearchSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Id] = &copied
	return nil
}

func (r *fakeSessionRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	session.Status = status
	session.Progress = progress
	return nil
}

func (r *fakeSessionRepo) UpdateState(_ context.Context, id uuid.UUID, stateData []byte, status string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	session.StateData = stateData
	session.Status = status
	session.Progress = progress
	return nil
}

func (r *fakeSessionRepo) SetFinalReportFile(_ context.Context, id uuid.UUID, relativePath string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[id]
	if !ok {
		return fmt.Errorf("session %s not found", id)
	}
	session.FinalReportFile = &relativePath
	return nil
}

func (r *fakeSessionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, session := range r.sessions {
		if matchSession(session, specs) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.ResearchSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ResearchSession
	for _, session := range r.sessions {
		if matchSession(session, specs) {
			copied := *session
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	sessions, err := r.FindAll(ctx, specs...)
	return int64(len(sessions)), err
}

func matchSession(session *entity.ResearchSession, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if session.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if session.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

type fakeEmbeddingRepo struct {
	deleted []uuid.UUID
}

func (r *fakeEmbeddingRepo) Create(context.Context, *entity.SectionEmbedding) error { return nil }

func (r *fakeEmbeddingRepo) SearchSimilar(context.Context, uuid.UUID, []float32, int) ([]*entity.SectionEmbeddingMatch, error) {
	return nil, nil
}

func (r *fakeEmbeddingRepo) DeleteBySessionId(_ context.Context, sessionId uuid.UUID) error {
	r.deleted = append(r.deleted, sessionId)
	return nil
}

type fakeFileRepo struct {
	mu        sync.Mutex
	records   map[string]*entity.GeneratedFile
	upsertErr error
}

func newFakeFileRepo() *fakeFileRepo {
	return &fakeFileRepo{records: make(map[string]*entity.GeneratedFile)}
}

func (r *fakeFileRepo) failUpserts(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upsertErr = err
}

func (r *fakeFileRepo) Upsert(_ context.Context, file *entity.GeneratedFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.records[file.SessionId.String()+"|"+file.RelativePath] = file
	return nil
}

func (r *fakeFileRepo) FindOne(context.Context, ...specification.Specification) (*entity.GeneratedFile, error) {
	return nil, nil
}

func (r *fakeFileRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.GeneratedFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.GeneratedFile
	for _, file := range r.records {
		keep := true
		for _, spec := range specs {
			if s, ok := spec.(specification.BySessionID); ok && file.SessionId != s.SessionID {
				keep = false
			}
		}
		if keep {
			out = append(out, file)
		}
	}
	return out, nil
}

func (r *fakeFileRepo) DeleteBySessionId(_ context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, file := range r.records {
		if file.SessionId == sessionId {
			delete(r.records, key)
		}
	}
	return nil
}

type scriptedLLM struct {
	mu        sync.Mutex
	responses []string
}

func (s *scriptedLLM) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) == 0 {
		return "", errors.New("scripted llm exhausted")
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func newTestService(t *testing.T, provider llm.LLMProvider) (IResearchService, *fakeSessionRepo, *fakeFileRepo) {
	t.Helper()
	sessionRepo := newFakeSessionRepo()
	fileRepo := newFakeFileRepo()
	cfg := &config.Config{
		Research: config.ResearchConfig{
			OutputDir:      t.TempDir(),
			AnalysisTemp:   0.2,
			GenerationTemp: 0.3,
			SearchTemp:     0.1,
		},
	}
	fileManager := files.NewFileManager(cfg.Research.OutputDir, fileRepo, nopLogger{})
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})

	svc := NewResearchService(
		sessionRepo,
		&fakeEmbeddingRepo{},
		fileManager,
		provider,
		nil,
		pubSub,
		nil,
		nil,
		cfg,
		nopLogger{},
		nopLogger{},
	)
	return svc, sessionRepo, fileRepo
}

func seedSession(repo *fakeSessionRepo, userId uuid.UUID, status string, progress int) uuid.UUID {
	sessionId := uuid.New()
	repo.Create(context.Background(), &entity.ResearchSession{
		Id:       sessionId,
		UserId:   userId,
		Question: "q",
		Status:   status,
		Progress: progress,
	})
	return sessionId
}

func TestCancelFinishedSessionRejected(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	userId := uuid.New()

	tests := []struct {
		name   string
		status string
	}{
		{name: "completed", status: string(research.StatusCompleted)},
		{name: "cancelled", status: string(research.StatusCancelled)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessionId := seedSession(repo, userId, tt.status, 100)
			_, err := svc.Cancel(context.Background(), userId, sessionId)
			if !errors.Is(err, ErrSessionFinished) {
				t.Errorf("Cancel() error = %v, want ErrSessionFinished", err)
			}
		})
	}
}

func TestCancelIdleSessionMarksRowDirectly(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	userId := uuid.New()
	sessionId := seedSession(repo, userId, string(research.StatusExecuting), 53)

	resp, err := svc.Cancel(context.Background(), userId, sessionId)
	if err != nil {
		t.Fatalf("Cancel() error: %v", err)
	}
	if resp.SessionId != sessionId.String() {
		t.Errorf("SessionId = %q", resp.SessionId)
	}

	session := repo.get(sessionId)
	if session.Status != string(research.StatusCancelled) {
		t.Errorf("Status = %q, want cancelled", session.Status)
	}
	if session.Progress != 53 {
		t.Errorf("Progress = %d, want 53 (frozen on cancel)", session.Progress)
	}
}

func TestSessionOwnershipEnforced(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	owner := uuid.New()
	sessionId := seedSession(repo, owner, string(research.StatusCompleted), 100)

	if _, err := svc.Status(context.Background(), uuid.New(), sessionId); !errors.Is(err, ErrSessionNotOwned) {
		t.Errorf("Status() with foreign user error = %v, want ErrSessionNotOwned", err)
	}
	if _, err := svc.Status(context.Background(), owner, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Status() with unknown session error = %v, want ErrSessionNotFound", err)
	}
}

func TestReadFileMissing(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	userId := uuid.New()
	sessionId := seedSession(repo, userId, string(research.StatusCompleted), 100)

	_, err := svc.ReadFile(context.Background(), userId, sessionId, "index.html")
	if !errors.Is(err, ErrFileNotFound) {
		t.Errorf("ReadFile() error = %v, want ErrFileNotFound", err)
	}
}

func completedRunScript() []string {
	return []string{
		`{"coreTheme": "test theme", "keywords": ["k"], "complexity": "simple", "estimatedTime": 5, "researchDirections": ["d"], "sourceTypes": ["docs"]}`,
		`{"title": "t", "description": "d", "objectives": ["o"], "methodology": ["m"], "expectedOutcome": "e", "sections": [` +
			`{"title": "A", "description": "a", "priority": 1},` +
			`{"title": "B", "description": "b", "priority": 2},` +
			`{"title": "C", "description": "c", "priority": 3}]}`,
		"content a", "content b", "content c",
		"# Report\n\nassembled",
	}
}

func TestStartRunsToCompletion(t *testing.T) {
	provider := &scriptedLLM{responses: completedRunScript()}
	svc, repo, _ := newTestService(t, provider)
	userId := uuid.New()

	resp, err := svc.Start(context.Background(), userId, &dto.StartResearchRequest{Question: "how does it work?"})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	sessionId, err := uuid.Parse(resp.SessionId)
	if err != nil {
		t.Fatalf("Start() returned invalid session id %q", resp.SessionId)
	}

	deadline := time.After(5 * time.Second)
	for {
		session := repo.get(sessionId)
		if session != nil && session.FinalReportFile != nil {
			if session.Status != string(research.StatusCompleted) {
				t.Errorf("Status = %q, want completed", session.Status)
			}
			if session.Progress != research.ProgressCompleted {
				t.Errorf("Progress = %d, want %d", session.Progress, research.ProgressCompleted)
			}
			if *session.FinalReportFile != "index.html" {
				t.Errorf("FinalReportFile = %q, want index.html", *session.FinalReportFile)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("run did not complete, last session: %+v", repo.get(sessionId))
		case <-time.After(20 * time.Millisecond):
		}
	}

	status, err := svc.Status(context.Background(), userId, sessionId)
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if status.State == nil || status.State.FinalReport == "" {
		t.Error("persisted state missing final report")
	}
	if len(status.Files) == 0 {
		t.Error("no generated files recorded")
	}

	page, err := svc.ReadFile(context.Background(), userId, sessionId, "index.html")
	if err != nil {
		t.Fatalf("ReadFile(index.html) error: %v", err)
	}
	if len(page) == 0 {
		t.Error("rendered report page is empty")
	}
}

func TestStreamOwnershipEnforced(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	owner := uuid.New()
	sessionId := seedSession(repo, owner, string(research.StatusExecuting), 40)

	if _, _, err := svc.Stream(context.Background(), uuid.New(), sessionId); !errors.Is(err, ErrSessionNotOwned) {
		t.Errorf("Stream() with foreign user error = %v, want ErrSessionNotOwned", err)
	}
	if _, _, err := svc.Stream(context.Background(), owner, uuid.New()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Stream() with unknown session error = %v, want ErrSessionNotFound", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, session, err := svc.Stream(ctx, owner, sessionId)
	if err != nil {
		t.Fatalf("Stream() for owner error: %v", err)
	}
	if session.Question != "q" {
		t.Errorf("Question = %q, want q", session.Question)
	}
}

func TestAssemblyFailureMarksSessionErrored(t *testing.T) {
	provider := &scriptedLLM{responses: completedRunScript()}
	svc, repo, fileRepo := newTestService(t, provider)
	fileRepo.failUpserts(errors.New("insert rejected"))
	userId := uuid.New()

	resp, err := svc.Start(context.Background(), userId, &dto.StartResearchRequest{Question: "how does it work?"})
	if err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	sessionId := uuid.MustParse(resp.SessionId)

	deadline := time.After(5 * time.Second)
	for {
		session := repo.get(sessionId)
		if session != nil && session.Status == string(research.StatusError) {
			if session.FinalReportFile != nil {
				t.Errorf("FinalReportFile = %q, want nil", *session.FinalReportFile)
			}
			if session.Progress != research.ProgressCompleted {
				t.Errorf("Progress = %d, want %d (last checkpoint before assembly)", session.Progress, research.ProgressCompleted)
			}
			return
		}
		select {
		case <-deadline:
			t.Fatalf("session never marked errored, last session: %+v", repo.get(sessionId))
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestStreamClosesOnCancelledFrame(t *testing.T) {
	svc, repo, _ := newTestService(t, &scriptedLLM{})
	userId := uuid.New()
	sessionId := seedSession(repo, userId, string(research.StatusExecuting), 40)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventCh, _, err := svc.Stream(ctx, userId, sessionId)
	if err != nil {
		t.Fatalf("Stream() error: %v", err)
	}

	svc.(*researchService).publishStream(sessionId, dto.StreamEvent{
		Type:      "cancelled",
		SessionId: sessionId.String(),
		Status:    string(research.StatusCancelled),
		Progress:  40,
	})

	select {
	case event := <-eventCh:
		if event.Type != "cancelled" {
			t.Errorf("event type = %q, want cancelled", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled frame never relayed")
	}

	select {
	case _, open := <-eventCh:
		if open {
			t.Error("stream still open after cancelled frame")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after cancelled frame")
	}
}
