// Package agent implements the plan-act execution loop: the executor
// alternates between asking the planner for a decision and executing the tool
// calls it requests, threading every tool result back into the next planning
// step through the run's scratchpad, until the planner emits a final answer
// or the iteration budget runs out.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/logging"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
	"github.com/coolkidhugh/streamlit-medrax-agent/tool"
)

// Defaults bounding a run. MaxIterations guarantees termination against a
// planner that never stops requesting tools; PlannerTimeout guarantees a hung
// backend surfaces as a failed run instead of blocking the turn forever.
const (
	DefaultMaxIterations  = 15
	DefaultPlannerTimeout = 60 * time.Second
)

// Options configure an Executor.
type Options struct {
	Instruction    Instruction
	MaxIterations  int
	PlannerTimeout time.Duration
	Logger         logging.Logger
}

// Executor runs the plan-act loop to completion for one run. It is stateless
// between runs and safe to share across sessions; all per-run state lives in
// the RunContext.
type Executor struct {
	planner        planner.Planner
	registry       *tool.Registry
	instruction    Instruction
	maxIterations  int
	plannerTimeout time.Duration
	logger         logging.Logger
}

// NewExecutor builds an Executor over a planner and tool registry.
func NewExecutor(p planner.Planner, registry *tool.Registry, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Instruction:    NewInstructionFromText(SystemInstructions),
		MaxIterations:  DefaultMaxIterations,
		PlannerTimeout: DefaultPlannerTimeout,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		planner:        p,
		registry:       registry,
		instruction:    opts.Instruction,
		maxIterations:  opts.MaxIterations,
		plannerTimeout: opts.PlannerTimeout,
		logger:         opts.Logger,
	}
}

// Result is the outcome of a finished run.
type Result struct {
	FinalAnswer string
	Iterations  int
	Artifacts   []string // artifact ids saved by tools during the run
}

// Run executes the loop for one user turn. history is the conversation
// memory snapshot taken before this turn was staged. Exactly one of (Result,
// error) is non-nil. The scratchpad accumulated on runCtx is discarded with
// the run context regardless of outcome; only the final answer outlives it.
func (e *Executor) Run(runCtx *core.RunContext, history []core.Content) (*Result, error) {
	// The orchestrator already gates on a missing image; this is the
	// executor's own invariant check.
	if runCtx.ImagePath == "" {
		runCtx.Status = core.RunFailed
		return nil, core.ErrMissingImage
	}

	instructions, err := e.instruction.Resolve(runCtx)
	if err != nil {
		runCtx.Status = core.RunFailed
		return nil, fmt.Errorf("resolving instructions: %w", err)
	}

	defs := e.registry.Definitions()

	runCtx.LogDebug("agent.run.start",
		"run", runCtx.RunID,
		"session", runCtx.SessionID,
		"tools", len(defs),
	)

	for iteration := 1; iteration <= e.maxIterations; iteration++ {
		req := planner.Request{
			Instructions: instructions,
			Contents:     e.buildContents(runCtx, history),
			Tools:        defs,
		}

		decision, err := e.plan(runCtx.Context, req, iteration)
		if err != nil {
			runCtx.Status = core.RunFailed
			return nil, fmt.Errorf("%w: %v", core.ErrPlanner, err)
		}

		if decision.IsFinal() {
			runCtx.Status = core.RunFinished
			runCtx.LogInfo("agent.run.finished",
				"run", runCtx.RunID,
				"iterations", iteration,
				"tool_calls", runCtx.Scratchpad.Len(),
			)
			return &Result{
				FinalAnswer: decision.FinalAnswer,
				Iterations:  iteration,
				Artifacts:   runCtx.SavedArtifacts(),
			}, nil
		}

		// Execute requested calls in the order the planner returned them;
		// each (call, result) pair lands on the scratchpad before the next
		// planning step sees it.
		for _, call := range decision.ToolCalls {
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			toolCtx := core.NewToolContext(runCtx, call.ID)

			start := time.Now()
			result := e.registry.Invoke(toolCtx, call)
			logging.LogToolCall(e.logger, call.Name, time.Since(start), !result.Failed(), result.Err)

			runCtx.Scratchpad.Append(call, result)
		}
	}

	runCtx.Status = core.RunFailed
	runCtx.LogWarn("agent.run.iteration_limit",
		"run", runCtx.RunID,
		"max_iterations", e.maxIterations,
	)
	return nil, fmt.Errorf("%w after %d iterations", core.ErrIterationLimit, e.maxIterations)
}

// plan performs one bounded planner call.
func (e *Executor) plan(ctx context.Context, req planner.Request, iteration int) (planner.Decision, error) {
	planCtx := ctx
	var cancel context.CancelFunc
	if e.plannerTimeout > 0 {
		planCtx, cancel = context.WithTimeout(ctx, e.plannerTimeout)
		defer cancel()
	}

	info := e.planner.Info()
	start := time.Now()
	decision, err := e.planner.Plan(planCtx, req)
	logging.LogPlannerCall(e.logger, info.Provider, info.Name, iteration, time.Since(start), err)

	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return planner.Decision{}, fmt.Errorf("planner timed out after %s", e.plannerTimeout)
	}
	return decision, err
}

// buildContents assembles the planner's view for one iteration: the
// conversation so far, the current input with its image reference, then the
// full scratchpad. Appending the scratchpad last keeps result ordering the
// sole signal for recency.
func (e *Executor) buildContents(runCtx *core.RunContext, history []core.Content) []core.Content {
	contents := make([]core.Content, 0, len(history)+1+runCtx.Scratchpad.Len()*2)
	contents = append(contents, history...)

	contents = append(contents, core.Content{
		Role: core.RoleUser,
		Parts: []core.Part{
			core.TextPart{Text: runCtx.Input},
			core.FilePart{Path: runCtx.ImagePath},
		},
	})

	contents = append(contents, runCtx.Scratchpad.Contents()...)
	return contents
}
