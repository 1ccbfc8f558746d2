package research

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mark3labs/flyt"

	"deepresearch-be/internal/pkg/logger"
	"deepresearch-be/pkg/llm"
)

// ErrCancelled aborts a run between stages after an external cancellation.
var ErrCancelled = errors.New("research run cancelled")

// Checkpointer persists a state snapshot after every stage transition. The
// snapshot must be durable before the next stage begins so a crashed run can
// be reconstructed by polling the session store.
type Checkpointer interface {
	SaveState(ctx context.Context, st *State) error
}

// Emitter relays one stage-transition snapshot to the streaming boundary.
// Delivery is at-most-once; reconnecting clients re-fetch from the store.
type Emitter interface {
	Emit(st *State)
}

// CancelCheck reports whether the session was cancelled externally. It is
// consulted before every stage.
type CancelCheck func(ctx context.Context, sessionID uuid.UUID) bool

// Temperatures carries the per-use-case sampling temperatures.
type Temperatures struct {
	Analysis   float64
	Generation float64
	Search     float64
}

// Pipeline drives the four-stage research flow over a flyt graph:
//
//	analyze -> plan -> section -(research)-> section ... -(report)-> report
//
// Stage failures never escape a node; they are converted into the error
// status on the state, which routes to no transition and ends the flow.
type Pipeline struct {
	llm         llm.LLMProvider
	knowledge   KnowledgeTool
	checkpoint  Checkpointer
	emitter     Emitter
	cancelled   CancelCheck
	log         logger.ILogger
	temps       Temperatures
	minSections int
}

func NewPipeline(
	provider llm.LLMProvider,
	knowledge KnowledgeTool,
	checkpoint Checkpointer,
	emitter Emitter,
	cancelled CancelCheck,
	log logger.ILogger,
	temps Temperatures,
) *Pipeline {
	return &Pipeline{
		llm:         provider,
		knowledge:   knowledge,
		checkpoint:  checkpoint,
		emitter:     emitter,
		cancelled:   cancelled,
		log:         log,
		temps:       temps,
		minSections: 3,
	}
}

const keyState = "research_state"

// Routing actions between nodes.
const (
	actionContinue flyt.Action = "continue"
	actionResearch flyt.Action = "research"
	actionReport   flyt.Action = "report"
	actionDone     flyt.Action = "done"
	actionError    flyt.Action = "error" // no transition registered: flow ends
)

// Run executes the flow to a terminal state. The returned state is always
// usable even when err != nil (cancellation, context expiry). Stage-level
// failures are not returned as errors; they are recorded on the state.
func (p *Pipeline) Run(ctx context.Context, st *State) (*State, error) {
	shared := flyt.NewSharedStore()
	shared.Set(keyState, st)

	err := p.buildFlow().Run(ctx, shared)

	final := stateFrom(shared)
	return final, err
}

func (p *Pipeline) buildFlow() *flyt.Flow {
	analyze := &analyzeNode{BaseNode: flyt.NewBaseNode(), p: p}
	plan := &planNode{BaseNode: flyt.NewBaseNode(), p: p}
	section := &sectionNode{BaseNode: flyt.NewBaseNode(), p: p}
	report := &reportNode{BaseNode: flyt.NewBaseNode(), p: p}

	flow := flyt.NewFlow(analyze)
	flow.Connect(analyze, actionContinue, plan)
	flow.Connect(plan, actionContinue, section)
	flow.Connect(section, actionResearch, section) // the only branch point
	flow.Connect(section, actionReport, report)
	return flow
}

func stateFrom(shared *flyt.SharedStore) *State {
	v, ok := shared.Get(keyState)
	if !ok {
		return nil
	}
	st, _ := v.(*State)
	return st
}

// guard runs the shared pre-stage checks: external cancellation and an
// already-terminal state (defensive, the routing should prevent the latter).
func (p *Pipeline) guard(ctx context.Context, st *State) error {
	if p.cancelled != nil && p.cancelled(ctx, st.SessionID) {
		return ErrCancelled
	}
	return nil
}

// stageFailure is produced by a node's ExecFallback so failures surface as
// the error status instead of escaping the stage boundary.
type stageFailure struct {
	err error
}

// failStage freezes the state in error status and checkpoints the result.
func (p *Pipeline) failStage(ctx context.Context, st *State, stage string, err error) (flyt.Action, error) {
	st.fail(stage + " failed: " + err.Error())
	p.log.Error("research", "stage failed", map[string]interface{}{
		"session_id": st.SessionID.String(),
		"stage":      stage,
		"error":      err.Error(),
	})
	if saveErr := p.checkpoint.SaveState(ctx, st); saveErr != nil {
		p.log.Error("research", "checkpoint failed after stage error", map[string]interface{}{
			"session_id": st.SessionID.String(),
			"error":      saveErr.Error(),
		})
	}
	if p.emitter != nil {
		p.emitter.Emit(st)
	}
	return actionError, nil
}

// commitStage persists the post-stage snapshot and pushes it to the stream.
func (p *Pipeline) commitStage(ctx context.Context, st *State, action flyt.Action) (flyt.Action, error) {
	if err := p.checkpoint.SaveState(ctx, st); err != nil {
		return "", err
	}
	if p.emitter != nil {
		p.emitter.Emit(st)
	}
	return action, nil
}
