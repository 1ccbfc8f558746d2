package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/flyt"

	"deepresearch-be/pkg/llm"
)

// scriptedLLM replays a fixed queue of responses and records every prompt
// it was asked, in call order.
type scriptedLLM struct {
	responses []string
	calls     []string
}

func (s *scriptedLLM) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	if len(history) > 0 {
		s.calls = append(s.calls, history[len(history)-1].Content)
	}
	if len(s.responses) == 0 {
		return "", fmt.Errorf("scripted llm exhausted after %d calls", len(s.calls))
	}
	response := s.responses[0]
	s.responses = s.responses[1:]
	return response, nil
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

// recordingCheckpointer keeps every snapshot's progress and status, and can
// flip an external cancellation flag once progress crosses a threshold.
type recordingCheckpointer struct {
	snapshots []snapshot
	cancelAt  int
	cancelled bool
}

type snapshot struct {
	status   Status
	progress int
}

func (r *recordingCheckpointer) SaveState(_ context.Context, st *State) error {
	r.snapshots = append(r.snapshots, snapshot{status: st.Status, progress: st.Progress})
	if r.cancelAt > 0 && st.Progress >= r.cancelAt {
		r.cancelled = true
	}
	return nil
}

type recordingEmitter struct {
	emitted []snapshot
}

func (r *recordingEmitter) Emit(st *State) {
	r.emitted = append(r.emitted, snapshot{status: st.Status, progress: st.Progress})
}

type recordingKnowledge struct {
	findings []Finding
	stored   []int
}

func (r *recordingKnowledge) Search(context.Context, uuid.UUID, string, int) ([]Finding, error) {
	return r.findings, nil
}

func (r *recordingKnowledge) Store(_ context.Context, _ uuid.UUID, sectionIndex int, _, _ string) error {
	r.stored = append(r.stored, sectionIndex)
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

const analysisResponse = `{
	"coreTheme": "go concurrency",
	"keywords": ["goroutines", "channels"],
	"complexity": "medium",
	"estimatedTime": 15,
	"researchDirections": ["scheduler", "memory model"],
	"sourceTypes": ["docs"]
}`

func planResponse(sections int) string {
	var b strings.Builder
	b.WriteString(`{"title": "Go Concurrency", "description": "d", "objectives": ["o"], "methodology": ["m"], "expectedOutcome": "e", "sections": [`)
	for i := 0; i < sections; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"title": "Section %d", "description": "covers part %d", "priority": %d}`, i, i, i+1)
	}
	b.WriteString("]}")
	return b.String()
}

func newTestRun(responses []string, knowledge KnowledgeTool, check *recordingCheckpointer) (*Pipeline, *scriptedLLM, *recordingEmitter) {
	provider := &scriptedLLM{responses: responses}
	emitter := &recordingEmitter{}
	cancelled := func(context.Context, uuid.UUID) bool { return check.cancelled }
	p := NewPipeline(provider, knowledge, check, emitter, cancelled, nopLogger{}, Temperatures{
		Analysis:   0.3,
		Generation: 0.7,
		Search:     0.5,
	})
	return p, provider, emitter
}

func TestPipelineRunHappyPath(t *testing.T) {
	check := &recordingCheckpointer{}
	knowledge := &recordingKnowledge{}
	p, provider, emitter := newTestRun([]string{
		analysisResponse,
		planResponse(3),
		"Drafted content for section 0.",
		"Drafted content for section 1.",
		"Drafted content for section 2.",
		"# Final Report\n\nEverything assembled.",
	}, knowledge, check)

	st, err := p.Run(context.Background(), NewState("How does Go schedule goroutines?", uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if st.Status != StatusCompleted {
		t.Fatalf("Status = %s, want %s (error: %q)", st.Status, StatusCompleted, st.Error)
	}
	if st.Progress != ProgressCompleted {
		t.Errorf("Progress = %d, want %d", st.Progress, ProgressCompleted)
	}
	if st.FinalReport != "# Final Report\n\nEverything assembled." {
		t.Errorf("FinalReport = %q", st.FinalReport)
	}
	if len(provider.responses) != 0 {
		t.Errorf("%d scripted responses left unconsumed", len(provider.responses))
	}

	if len(st.GeneratedContent) != 3 {
		t.Fatalf("len(GeneratedContent) = %d, want 3", len(st.GeneratedContent))
	}
	seen := map[int]bool{}
	for _, section := range st.GeneratedContent {
		if seen[section.SectionIndex] {
			t.Errorf("duplicate section index %d", section.SectionIndex)
		}
		seen[section.SectionIndex] = true
	}
	for i := 0; i < 3; i++ {
		if !seen[i] {
			t.Errorf("section index %d never drafted", i)
		}
	}

	// One durable snapshot per stage transition, progress never regressing.
	if len(check.snapshots) == 0 {
		t.Fatal("no checkpoints recorded")
	}
	last := -1
	for i, snap := range check.snapshots {
		if snap.progress < last {
			t.Errorf("checkpoint %d progress %d regressed below %d", i, snap.progress, last)
		}
		last = snap.progress
	}
	if final := check.snapshots[len(check.snapshots)-1]; final.status != StatusCompleted || final.progress != ProgressCompleted {
		t.Errorf("final checkpoint = %+v, want completed/100", final)
	}
	if len(emitter.emitted) != len(check.snapshots) {
		t.Errorf("emitted %d frames, checkpointed %d", len(emitter.emitted), len(check.snapshots))
	}

	// Every drafted section fed back into the knowledge store.
	if len(knowledge.stored) != 3 {
		t.Errorf("knowledge.Store called %d times, want 3", len(knowledge.stored))
	}
}

func TestPipelineRunFencedPlanResponse(t *testing.T) {
	check := &recordingCheckpointer{}
	p, _, _ := newTestRun([]string{
		"```json\n" + analysisResponse + "\n```",
		"Of course, here is the plan:\n```json\n" + planResponse(4) + "\n```",
		"s0", "s1", "s2", "s3",
		"final report",
	}, &recordingKnowledge{}, check)

	st, err := p.Run(context.Background(), NewState("q", uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if st.Status != StatusCompleted {
		t.Fatalf("Status = %s, want %s (error: %q)", st.Status, StatusCompleted, st.Error)
	}
	if st.Plan == nil || len(st.Plan.Sections) != 4 {
		t.Fatalf("Plan = %+v, want 4 sections", st.Plan)
	}
}

func TestPipelineRunAnalyzeParseFailure(t *testing.T) {
	check := &recordingCheckpointer{}
	p, _, _ := newTestRun([]string{
		"I am not able to comply with that request.",
	}, &recordingKnowledge{}, check)

	st, err := p.Run(context.Background(), NewState("q", uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("Run() error: %v (stage failures must stay on the state)", err)
	}

	if st.Status != StatusError {
		t.Fatalf("Status = %s, want %s", st.Status, StatusError)
	}
	if !strings.HasPrefix(st.Error, "question analysis failed: ") {
		t.Errorf("Error = %q, want question analysis prefix", st.Error)
	}
	if st.Plan != nil {
		t.Errorf("Plan = %+v, want nil", st.Plan)
	}
	if len(st.GeneratedContent) != 0 {
		t.Errorf("GeneratedContent = %d entries, want none", len(st.GeneratedContent))
	}
}

func TestPipelineRunPlanTooFewSections(t *testing.T) {
	check := &recordingCheckpointer{}
	p, _, _ := newTestRun([]string{
		analysisResponse,
		planResponse(2),
	}, &recordingKnowledge{}, check)

	st, err := p.Run(context.Background(), NewState("q", uuid.New(), uuid.New()))
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if st.Status != StatusError {
		t.Fatalf("Status = %s, want %s", st.Status, StatusError)
	}
	if !strings.HasPrefix(st.Error, "plan generation failed: ") {
		t.Errorf("Error = %q, want plan generation prefix", st.Error)
	}
	if !strings.Contains(st.Error, "need at least 3") {
		t.Errorf("Error = %q, want minimum section count mentioned", st.Error)
	}
	// The analysis stage committed before the failure; its progress sticks.
	if st.Progress != ProgressAnalyzed {
		t.Errorf("Progress = %d, want %d (frozen at last committed stage)", st.Progress, ProgressAnalyzed)
	}
}

func TestPipelineRunCancelledBetweenStages(t *testing.T) {
	// The checkpointer flips the cancellation flag once the analyze stage has
	// committed; the next stage's pre-check must abort the run.
	check := &recordingCheckpointer{cancelAt: ProgressAnalyzed}
	p, _, _ := newTestRun([]string{
		analysisResponse,
		planResponse(3),
	}, &recordingKnowledge{}, check)

	st, err := p.Run(context.Background(), NewState("q", uuid.New(), uuid.New()))
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("Run() error = %v, want ErrCancelled", err)
	}

	if st.Progress != ProgressAnalyzed {
		t.Errorf("Progress = %d, want %d (frozen at cancellation)", st.Progress, ProgressAnalyzed)
	}
	if st.Plan != nil {
		t.Errorf("Plan = %+v, want nil after cancellation", st.Plan)
	}
}

func TestReportPrepOrdersSectionsByIndex(t *testing.T) {
	p, _, _ := newTestRun(nil, &recordingKnowledge{}, &recordingCheckpointer{})
	node := &reportNode{BaseNode: flyt.NewBaseNode(), p: p}

	st := NewState("q", uuid.New(), uuid.New())
	st.GeneratedContent = []ContentSection{
		{SectionIndex: 2, Title: "Third", Content: "c2"},
		{SectionIndex: 0, Title: "First", Content: "c0"},
		{SectionIndex: 1, Title: "Second", Content: "c1"},
	}

	shared := flyt.NewSharedStore()
	shared.Set(keyState, st)

	prepResult, err := node.Prep(context.Background(), shared)
	if err != nil {
		t.Fatalf("Prep() error: %v", err)
	}
	prep := prepResult.(*reportPrep)
	if !prep.valid {
		t.Fatal("Prep() marked prep invalid with drafted sections present")
	}

	first := strings.Index(prep.prompt, "## First")
	second := strings.Index(prep.prompt, "## Second")
	third := strings.Index(prep.prompt, "## Third")
	if first == -1 || second == -1 || third == -1 {
		t.Fatalf("prompt missing section headings: %q", prep.prompt)
	}
	if !(first < second && second < third) {
		t.Errorf("sections out of order in prompt: first=%d second=%d third=%d", first, second, third)
	}

	// Completion order of the state itself is untouched.
	if st.GeneratedContent[0].SectionIndex != 2 {
		t.Error("Prep() mutated GeneratedContent order")
	}
}

func TestSectionExecUsesPriorFindings(t *testing.T) {
	knowledge := &recordingKnowledge{findings: []Finding{
		{Title: "Earlier section", Content: "goroutines are cheap", Score: 0.9},
	}}
	check := &recordingCheckpointer{}
	p, provider, _ := newTestRun([]string{"drafted"}, knowledge, check)
	node := &sectionNode{BaseNode: flyt.NewBaseNode(), p: p}

	st := NewState("q", uuid.New(), uuid.New())
	st.Plan = planOf(3)

	prep := &sectionPrep{st: st, sectionIndex: 0, section: st.Plan.Sections[0]}
	result, err := node.Exec(context.Background(), prep)
	if err != nil {
		t.Fatalf("Exec() error: %v", err)
	}
	if result.(*sectionResult).response != "drafted" {
		t.Errorf("response = %q", result.(*sectionResult).response)
	}

	if len(provider.calls) != 1 {
		t.Fatalf("llm called %d times, want 1", len(provider.calls))
	}
	if !strings.Contains(provider.calls[0], "goroutines are cheap") {
		t.Errorf("prompt does not include retrieved findings: %q", provider.calls[0])
	}
}
