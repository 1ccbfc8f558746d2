package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/flyt"

	"deepresearch-be/internal/constant"
	"deepresearch-be/pkg/llm"
)

// sectionNode researches exactly one plan section per pass. The flow loops
// back into it until every section index has a drafted entry, then routes to
// the report node. This is the pipeline's only branch point.
type sectionNode struct {
	*flyt.BaseNode
	p *Pipeline
}

type sectionPrep struct {
	st           *State
	sectionIndex int
	section      PlanSection
	// set when every section is already drafted: skip Exec, advance to report
	allDone bool
}

type sectionResult struct {
	content  *ContentSection
	prompt   string
	response string
	skipped  bool
}

func (n *sectionNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	st := stateFrom(shared)
	if err := n.p.guard(ctx, st); err != nil {
		return nil, err
	}

	if st.Plan == nil || len(st.Plan.Sections) == 0 {
		return &sectionPrep{st: st, sectionIndex: -1}, nil
	}

	next := st.NextSectionIndex()
	if next == -1 {
		return &sectionPrep{st: st, allDone: true}, nil
	}

	return &sectionPrep{st: st, sectionIndex: next, section: st.Plan.Sections[next]}, nil
}

func (n *sectionNode) Exec(ctx context.Context, prepResult any) (any, error) {
	prep := prepResult.(*sectionPrep)

	if prep.allDone {
		return &sectionResult{skipped: true}, nil
	}
	if prep.sectionIndex == -1 {
		return nil, fmt.Errorf("missing research plan or section information")
	}

	section := prep.section

	// Retrieval pass: prior findings from the knowledge store feed the
	// combined research prompt as the agent's search results.
	findingsBlock := "(no prior findings available)"
	if n.p.knowledge != nil {
		findings, err := n.p.knowledge.Search(ctx, prep.st.SessionID, section.Title+" "+section.Description, 5)
		if err != nil {
			return nil, fmt.Errorf("knowledge search: %w", err)
		}
		if len(findings) > 0 {
			var b strings.Builder
			for _, f := range findings {
				fmt.Fprintf(&b, "- %s\n%s\n", f.Title, f.Content)
			}
			findingsBlock = b.String()
		}
	}

	prompt := fmt.Sprintf(
		constant.ResearchSectionPromptTemplate,
		section.Title,
		section.Title,
		section.Description,
		section.Priority,
		findingsBlock,
	)

	messages := []llm.Message{
		{Role: constant.ChatMessageRoleSystem, Content: constant.ResearchSectionSystemPrompt},
		{Role: constant.ChatMessageRoleUser, Content: prompt},
	}
	response, err := n.p.llm.Chat(ctx, messages, llm.WithTemperature(n.p.temps.Search))
	if err != nil {
		return nil, err
	}

	content := &ContentSection{
		SectionIndex: prep.sectionIndex,
		Title:        section.Title,
		Content:      response,
		Timestamp:    time.Now(),
	}

	return &sectionResult{content: content, prompt: prompt, response: response}, nil
}

func (n *sectionNode) ExecFallback(prepResult any, err error) (any, error) {
	return &stageFailure{err: err}, nil
}

func (n *sectionNode) Post(ctx context.Context, shared *flyt.SharedStore, prepResult, execResult any) (flyt.Action, error) {
	st := stateFrom(shared)

	if failure, ok := execResult.(*stageFailure); ok {
		return n.p.failStage(ctx, st, "section research", failure.err)
	}

	result := execResult.(*sectionResult)

	if result.skipped {
		// Re-entered with every section already drafted: advance the phase
		st.Status = StatusGenerating
		st.Progress = ProgressGenerating
		return n.p.commitStage(ctx, st, actionReport)
	}

	st.GeneratedContent = append(st.GeneratedContent, *result.content)
	st.Progress = executionProgress(len(st.GeneratedContent), len(st.Plan.Sections))
	st.appendExchange(result.prompt, result.response)

	// Grow the knowledge store with the drafted section. Best effort: a
	// storage failure must not fail a successfully researched section.
	if n.p.knowledge != nil {
		if err := n.p.knowledge.Store(ctx, st.SessionID, result.content.SectionIndex, result.content.Title, result.content.Content); err != nil {
			n.p.log.Warn("research", "failed to store section findings", map[string]interface{}{
				"session_id":    st.SessionID.String(),
				"section_index": result.content.SectionIndex,
				"error":         err.Error(),
			})
		}
	}

	n.p.log.Info("research", "section researched", map[string]interface{}{
		"session_id":    st.SessionID.String(),
		"section_index": result.content.SectionIndex,
		"completed":     len(st.GeneratedContent),
		"total":         len(st.Plan.Sections),
	})

	if st.AllSectionsDone() {
		st.Status = StatusGenerating
		st.Progress = ProgressGenerating
		return n.p.commitStage(ctx, st, actionReport)
	}

	return n.p.commitStage(ctx, st, actionResearch)
}
