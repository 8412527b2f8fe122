package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/runner"
	"github.com/himatts/LimePipeline-sub001/internal/suggest"
)

type refineOp struct {
	p       *Pipeline
	s       *models.Session
	runID   string
	targets []int
	next    int
	pending *runner.Call[suggest.Suggestion]
	failed  bool
	done    bool
}

// Refine asks again for a name for every selected adoptable item, passing the
// hint and the previous suggestion. It stops at the first naming failure.
func (p *Pipeline) Refine(ctx context.Context, s *models.Session) (Operation, error) {
	if s.Phase == models.PhaseIdle {
		return nil, fmt.Errorf("%w: analyze first", ErrWrongPhase)
	}
	if err := p.requireNaming(ctx, s); err != nil {
		return nil, err
	}

	var targets []int
	for i, it := range s.Items {
		if it.Selected && !it.ReadOnly && it.Classification.Adoptable() && !it.Status.Terminal() {
			targets = append(targets, i)
		}
	}
	slog.Info("Refining names", "session", s.ID, "items", len(targets))
	return &refineOp{p: p, s: s, runID: uuid.NewString(), targets: targets}, nil
}

func (op *refineOp) Next(ctx context.Context) (runner.StepResult, error) {
	if op.done {
		return op.progress(), nil
	}
	if op.pending != nil {
		if !op.pending.Ready() {
			res := op.progress()
			res.Wait = op.pending.Done()
			return res, nil
		}
		op.collect()
		if op.failed {
			return op.finish()
		}
		return op.progress(), nil
	}
	if op.next >= len(op.targets) {
		return op.finish()
	}

	it := &op.s.Items[op.targets[op.next]]
	prior := it.RefinedSuggestion
	if prior == "" {
		prior = it.InitialSuggestion
	}
	req := request(it, op.s.Sources[it.ID].Usages, prior)
	namer := op.p.namer
	op.pending = runner.Start(ctx, func(ctx context.Context) (suggest.Suggestion, error) {
		return namer.Suggest(ctx, req)
	})
	res := op.progress()
	res.Wait = op.pending.Done()
	return res, nil
}

func (op *refineOp) collect() {
	sug, err := op.pending.Result()
	op.pending = nil
	it := &op.s.Items[op.targets[op.next]]
	if err == nil {
		it.RefinedSuggestion = sug.Stem
		err = op.p.adopt(it, sug)
	}
	if err != nil {
		it.LastError = err.Error()
		op.block()
		slog.Warn("Naming failed, refine stopped", "item", it.ID, "error", err)
		return
	}
	op.next++
	op.s.Recount()
	slog.Info("Refined texture name", "item", it.ID, "filename", it.FinalFilename)
}

// block marks the session and every remaining target as AI_BLOCKED.
func (op *refineOp) block() {
	op.failed = true
	op.s.AIBlocked = true
	for _, idx := range op.targets[op.next:] {
		it := &op.s.Items[idx]
		if !it.Status.Terminal() {
			it.Status = models.StatusAIBlocked
		}
	}
	op.s.Recount()
}

func (op *refineOp) finish() (runner.StepResult, error) {
	op.done = true
	if !op.failed {
		op.s.Phase = models.PhaseRefined
	}
	op.s.Recount()
	op.writeReport(false)
	slog.Info("Refine complete", "session", op.s.ID, "refined", op.next, "ai_blocked", op.s.AIBlocked)
	return op.progress(), nil
}

// Abort keeps the names refined so far; the phase is left unchanged.
func (op *refineOp) Abort() error {
	if op.done {
		return nil
	}
	op.done = true
	op.pending = nil
	op.s.Recount()
	op.writeReport(true)
	slog.Warn("Refine cancelled", "session", op.s.ID, "completed", op.next, "total", len(op.targets))
	return nil
}

func (op *refineOp) Summary() string {
	if op.failed {
		return fmt.Sprintf("refined %d of %d names, naming blocked", op.next, len(op.targets))
	}
	return fmt.Sprintf("refined %d of %d names", op.next, len(op.targets))
}

func (op *refineOp) writeReport(cancelled bool) {
	if op.p.reports == nil {
		return
	}
	path, err := op.p.reports.WriteRefine(op.p.phaseReport(op.s, op.runID, cancelled))
	if err != nil {
		slog.Warn("Failed to write refine report", "error", err)
		return
	}
	op.s.Reports.Refine = path
}

func (op *refineOp) progress() runner.StepResult {
	label := "refining"
	if op.next < len(op.targets) {
		label = op.s.Items[op.targets[op.next]].ImageName
	}
	return runner.StepResult{
		Done:      op.done,
		Completed: op.next,
		Total:     len(op.targets),
		Label:     label,
	}
}
