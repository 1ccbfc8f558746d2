package research

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/flyt"

	"deepresearch-be/internal/constant"
	"deepresearch-be/pkg/llm"
)

// reportNode assembles every drafted section into the final report document.
type reportNode struct {
	*flyt.BaseNode
	p *Pipeline
}

type reportPrep struct {
	st      *State
	prompt  string
	history []llm.Message
	valid   bool
}

type reportResult struct {
	prompt   string
	response string
}

func (n *reportNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	st := stateFrom(shared)
	if err := n.p.guard(ctx, st); err != nil {
		return nil, err
	}

	if len(st.GeneratedContent) == 0 {
		return &reportPrep{st: st}, nil
	}

	// Sort strictly by section index regardless of completion order so the
	// assembled report is deterministic.
	sorted := append([]ContentSection(nil), st.GeneratedContent...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SectionIndex < sorted[j].SectionIndex
	})

	var sections strings.Builder
	for _, section := range sorted {
		fmt.Fprintf(&sections, "## %s\n%s\n\n", section.Title, section.Content)
	}

	prompt := fmt.Sprintf(constant.GenerateReportPromptTemplate, st.Question, sections.String())
	history := append([]llm.Message(nil), st.Messages...)

	return &reportPrep{st: st, prompt: prompt, history: history, valid: true}, nil
}

func (n *reportNode) Exec(ctx context.Context, prepResult any) (any, error) {
	prep := prepResult.(*reportPrep)

	if !prep.valid {
		return nil, fmt.Errorf("no researched sections to assemble")
	}

	messages := append(prep.history, llm.Message{Role: constant.ChatMessageRoleUser, Content: prep.prompt})
	response, err := n.p.llm.Chat(ctx, messages, llm.WithTemperature(n.p.temps.Generation))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("model returned an empty report")
	}

	return &reportResult{prompt: prep.prompt, response: response}, nil
}

func (n *reportNode) ExecFallback(prepResult any, err error) (any, error) {
	return &stageFailure{err: err}, nil
}

func (n *reportNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	st := stateFrom(shared)

	if failure, ok := execResult.(*stageFailure); ok {
		return n.p.failStage(ctx, st, "report generation", failure.err)
	}

	result := execResult.(*reportResult)
	st.FinalReport = result.response
	st.Status = StatusCompleted
	st.Progress = ProgressCompleted
	st.appendExchange(result.prompt, result.response)

	n.p.log.Info("research", "final report generated", map[string]interface{}{
		"session_id":  st.SessionID.String(),
		"report_size": len(result.response),
	})

	return n.p.commitStage(ctx, st, actionDone)
}
