package research

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/flyt"

	"deepresearch-be/internal/constant"
	"deepresearch-be/pkg/llm"
)

// analyzeNode is the pipeline entry: it asks the model for a structured
// assessment of the research question.
type analyzeNode struct {
	*flyt.BaseNode
	p *Pipeline
}

type analyzePrep struct {
	st      *State
	prompt  string
	history []llm.Message
}

type analyzeResult struct {
	analysis *QuestionAnalysis
	prompt   string
	response string
}

func (n *analyzeNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	st := stateFrom(shared)
	if err := n.p.guard(ctx, st); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(constant.AnalyzeQuestionPromptTemplate, st.Question)
	history := append([]llm.Message(nil), st.Messages...)

	return &analyzePrep{st: st, prompt: prompt, history: history}, nil
}

func (n *analyzeNode) Exec(ctx context.Context, prepResult any) (any, error) {
	prep := prepResult.(*analyzePrep)

	messages := append(prep.history, llm.Message{Role: constant.ChatMessageRoleUser, Content: prep.prompt})
	response, err := n.p.llm.Chat(ctx, messages, llm.WithTemperature(n.p.temps.Analysis))
	if err != nil {
		return nil, err
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var analysis QuestionAnalysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}

	return &analyzeResult{analysis: &analysis, prompt: prep.prompt, response: response}, nil
}

func (n *analyzeNode) ExecFallback(prepResult any, err error) (any, error) {
	return &stageFailure{err: err}, nil
}

func (n *analyzeNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	st := stateFrom(shared)

	if failure, ok := execResult.(*stageFailure); ok {
		return n.p.failStage(ctx, st, "question analysis", failure.err)
	}

	result := execResult.(*analyzeResult)
	st.Analysis = result.analysis
	st.Status = StatusPlanning
	st.Progress = ProgressAnalyzed
	st.appendExchange(result.prompt, result.response)

	n.p.log.Info("research", "question analyzed", map[string]interface{}{
		"session_id": st.SessionID.String(),
		"core_theme": result.analysis.CoreTheme,
		"complexity": result.analysis.Complexity,
	})

	return n.p.commitStage(ctx, st, actionContinue)
}
