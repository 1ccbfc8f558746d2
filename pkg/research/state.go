package research

import (
	"time"

	"github.com/google/uuid"

	"deepresearch-be/pkg/llm"
)

// Status is the lifecycle phase of a research run.
type Status string

const (
	StatusAnalyzing  Status = "analyzing"
	StatusPlanning   Status = "planning"
	StatusExecuting  Status = "executing"
	StatusGenerating Status = "generating"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether no further stage may run for this status.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

// Progress checkpoints per stage. The executing band (40-80) is interpolated
// over completed sections, see executionProgress.
const (
	ProgressAnalyzed   = 20
	ProgressPlanned    = 30
	ProgressGenerating = 80
	ProgressCompleted  = 100
)

// QuestionAnalysis is the structured output of the analyze stage.
type QuestionAnalysis struct {
	CoreTheme          string   `json:"coreTheme"`
	Keywords           []string `json:"keywords"`
	Complexity         string   `json:"complexity"` // "simple" | "medium" | "complex"
	EstimatedTime      int      `json:"estimatedTime"`
	ResearchDirections []string `json:"researchDirections"`
	SourceTypes        []string `json:"sourceTypes"`
}

// PlanSection is one topical subdivision of the research plan.
type PlanSection struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    int    `json:"priority"`
}

// ResearchPlan is the structured output of the plan stage.
type ResearchPlan struct {
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	Objectives      []string      `json:"objectives"`
	Methodology     []string      `json:"methodology"`
	ExpectedOutcome string        `json:"expectedOutcome"`
	Sections        []PlanSection `json:"sections"`
}

// ContentSection is one drafted section, keyed back to the plan by index.
type ContentSection struct {
	SectionIndex int       `json:"sectionIndex"`
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Timestamp    time.Time `json:"timestamp"`
}

// State is the value threaded through all pipeline stages. It is persisted
// as the session's serialized state blob after every stage.
type State struct {
	Question  string    `json:"question"`
	SessionID uuid.UUID `json:"sessionId"`
	UserID    uuid.UUID `json:"userId"`

	Analysis *QuestionAnalysis `json:"analysis,omitempty"`
	Plan     *ResearchPlan     `json:"plan,omitempty"`

	// Ordered by arrival; at most one entry per plan section index.
	GeneratedContent []ContentSection `json:"generatedContent"`

	FinalReport string `json:"finalReport,omitempty"`

	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`

	// Append-only prompt/response trace, reused as model context within a run.
	Messages []llm.Message `json:"messages"`
}

// NewState creates the initial state for a fresh research run.
func NewState(question string, sessionID, userID uuid.UUID) *State {
	return &State{
		Question:         question,
		SessionID:        sessionID,
		UserID:           userID,
		GeneratedContent: make([]ContentSection, 0),
		Status:           StatusAnalyzing,
		Progress:         0,
		Messages:         make([]llm.Message, 0),
	}
}

// fail freezes the state in the error status. Progress keeps its last value.
func (s *State) fail(message string) {
	s.Status = StatusError
	s.Error = message
}

func (s *State) appendExchange(prompt, response string) {
	s.Messages = append(s.Messages,
		llm.Message{Role: "user", Content: prompt},
		llm.Message{Role: "assistant", Content: response},
	)
}

// completedIndexes returns the set of section indexes already drafted.
func (s *State) completedIndexes() map[int]bool {
	done := make(map[int]bool, len(s.GeneratedContent))
	for _, c := range s.GeneratedContent {
		done[c.SectionIndex] = true
	}
	return done
}

// NextSectionIndex scans plan sections in ascending index order and returns
// the first index without a drafted section, or -1 if every section is done.
// Order is section index ascending, first-missing-wins, not priority order.
func (s *State) NextSectionIndex() int {
	if s.Plan == nil {
		return -1
	}
	done := s.completedIndexes()
	for i := range s.Plan.Sections {
		if !done[i] {
			return i
		}
	}
	return -1
}

// AllSectionsDone reports whether every plan section has a drafted entry.
func (s *State) AllSectionsDone() bool {
	if s.Plan == nil || len(s.Plan.Sections) == 0 {
		return false
	}
	return s.NextSectionIndex() == -1
}

// executionProgress maps completed-sections-over-total onto the 40-80 band.
func executionProgress(completed, total int) int {
	if total <= 0 {
		return ProgressGenerating
	}
	return 40 + int(float64(completed)/float64(total)*40)
}
