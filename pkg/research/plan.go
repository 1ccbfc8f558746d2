package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/flyt"

	"deepresearch-be/internal/constant"
	"deepresearch-be/pkg/llm"
)

// planNode turns the question analysis into a sectioned research plan.
type planNode struct {
	*flyt.BaseNode
	p *Pipeline
}

type planPrep struct {
	st      *State
	prompt  string
	history []llm.Message
}

type planResult struct {
	plan     *ResearchPlan
	prompt   string
	response string
}

func (n *planNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	st := stateFrom(shared)
	if err := n.p.guard(ctx, st); err != nil {
		return nil, err
	}

	if st.Analysis == nil {
		// Defensive: routed here without an analysis
		return &planPrep{st: st}, nil
	}

	analysisJson, err := json.MarshalIndent(st.Analysis, "", "  ")
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(constant.GeneratePlanPromptTemplate, st.Question, string(analysisJson))
	history := append([]llm.Message(nil), st.Messages...)

	return &planPrep{st: st, prompt: prompt, history: history}, nil
}

func (n *planNode) Exec(ctx context.Context, prepResult any) (any, error) {
	prep := prepResult.(*planPrep)

	if prep.st.Analysis == nil {
		return nil, fmt.Errorf("missing question analysis")
	}

	messages := append(prep.history, llm.Message{Role: constant.ChatMessageRoleUser, Content: prep.prompt})
	response, err := n.p.llm.Chat(ctx, messages, llm.WithTemperature(n.p.temps.Analysis))
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var plan ResearchPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	if len(plan.Sections) < n.p.minSections {
		return nil, fmt.Errorf("plan has %d sections, need at least %d", len(plan.Sections), n.p.minSections)
	}

	return &planResult{plan: &plan, prompt: prep.prompt, response: response}, nil
}

func (n *planNode) ExecFallback(prepResult any, err error) (any, error) {
	return &stageFailure{err: err}, nil
}

func (n *planNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	st := stateFrom(shared)

	if failure, ok := execResult.(*stageFailure); ok {
		return n.p.failStage(ctx, st, "plan generation", failure.err)
	}

	result := execResult.(*planResult)
	st.Plan = result.plan
	st.Status = StatusExecuting
	st.Progress = ProgressPlanned
	st.appendExchange(result.prompt, result.response)

	n.p.log.Info("research", "plan generated", map[string]interface{}{
		"session_id": st.SessionID.String(),
		"title":      result.plan.Title,
		"sections":   len(result.plan.Sections),
	})

	return n.p.commitStage(ctx, st, actionContinue)
}
