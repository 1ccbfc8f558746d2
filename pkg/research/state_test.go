package research

import (
	"testing"

	"github.com/google/uuid"
)

func planOf(n int) *ResearchPlan {
	p := &ResearchPlan{Title: "t"}
	for i := 0; i < n; i++ {
		p.Sections = append(p.Sections, PlanSection{Title: "s", Priority: i + 1})
	}
	return p
}

func TestNextSectionIndex(t *testing.T) {
	tests := []struct {
		name string
		plan *ResearchPlan
		done []int
		want int
	}{
		{name: "no plan", plan: nil, want: -1},
		{name: "nothing drafted", plan: planOf(3), want: 0},
		{name: "first drafted", plan: planOf(3), done: []int{0}, want: 1},
		{name: "gap in the middle", plan: planOf(3), done: []int{0, 2}, want: 1},
		{name: "out of order arrival", plan: planOf(4), done: []int{2, 0}, want: 1},
		{name: "all drafted", plan: planOf(2), done: []int{0, 1}, want: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := NewState("q", uuid.New(), uuid.New())
			st.Plan = tt.plan
			for _, idx := range tt.done {
				st.GeneratedContent = append(st.GeneratedContent, ContentSection{SectionIndex: idx})
			}
			if got := st.NextSectionIndex(); got != tt.want {
				t.Errorf("NextSectionIndex() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAllSectionsDone(t *testing.T) {
	st := NewState("q", uuid.New(), uuid.New())
	if st.AllSectionsDone() {
		t.Error("AllSectionsDone() with no plan = true, want false")
	}

	st.Plan = planOf(2)
	if st.AllSectionsDone() {
		t.Error("AllSectionsDone() with no content = true, want false")
	}

	st.GeneratedContent = []ContentSection{{SectionIndex: 0}, {SectionIndex: 1}}
	if !st.AllSectionsDone() {
		t.Error("AllSectionsDone() with every section drafted = false, want true")
	}

	st.Plan = &ResearchPlan{}
	if st.AllSectionsDone() {
		t.Error("AllSectionsDone() with empty plan = true, want false")
	}
}

func TestExecutionProgress(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{name: "none done", completed: 0, total: 4, want: 40},
		{name: "half done", completed: 2, total: 4, want: 60},
		{name: "one of three", completed: 1, total: 3, want: 53},
		{name: "all done", completed: 3, total: 3, want: 80},
		{name: "zero total clamps high", completed: 0, total: 0, want: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := executionProgress(tt.completed, tt.total)
			if got != tt.want {
				t.Errorf("executionProgress(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
			}
			if got < 40 || got > 80 {
				t.Errorf("executionProgress(%d, %d) = %d, outside the 40-80 band", tt.completed, tt.total, got)
			}
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusAnalyzing:  false,
		StatusPlanning:   false,
		StatusExecuting:  false,
		StatusGenerating: false,
		StatusCompleted:  true,
		StatusError:      true,
		StatusCancelled:  true,
	}
	for status, want := range terminal {
		if got := status.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

func TestStateFailFreezesProgress(t *testing.T) {
	st := NewState("q", uuid.New(), uuid.New())
	st.Status = StatusExecuting
	st.Progress = 60

	st.fail("section research failed: boom")

	if st.Status != StatusError {
		t.Errorf("Status = %s, want %s", st.Status, StatusError)
	}
	if st.Progress != 60 {
		t.Errorf("Progress = %d, want 60 (frozen on error)", st.Progress)
	}
	if st.Error != "section research failed: boom" {
		t.Errorf("Error = %q", st.Error)
	}
}
