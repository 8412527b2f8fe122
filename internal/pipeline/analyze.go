package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/naming"
	"github.com/himatts/LimePipeline-sub001/internal/runner"
	"github.com/himatts/LimePipeline-sub001/internal/suggest"
)

type analyzeOp struct {
	p       *Pipeline
	s       *models.Session
	runID   string
	entries []models.SourceEntry
	next    int
	pending *runner.Call[suggest.Suggestion]
	done    bool
}

// Analyze scans the scene in scope, rebuilds the session table and asks for one
// name per adoptable item. The scan happens before the table is cleared, so a
// scan failure leaves the previous session intact.
func (p *Pipeline) Analyze(ctx context.Context, s *models.Session, scope models.Scope) (Operation, error) {
	entries, err := p.scene.Scan(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to scan scene: %w", err)
	}

	s.Reset()
	s.ID = uuid.NewString()
	s.Scope = scope
	s.Sources = make(map[string]models.SourceEntry, len(entries))
	s.Items = make([]models.PlanItem, 0, len(entries))

	slog.Info("Analyzing scene", "session", s.ID, "scope", scope, "images", len(entries))
	return &analyzeOp{p: p, s: s, runID: uuid.NewString(), entries: entries}, nil
}

func (op *analyzeOp) Next(ctx context.Context) (runner.StepResult, error) {
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
		return op.progress(), nil
	}
	if op.next >= len(op.entries) {
		return op.finish()
	}

	entry := op.entries[op.next]
	tag, reasons := op.p.classify(entry)
	item := models.NewPlanItem(entry.Image, tag, reasons, naming.ResolveRole(entry.Usages), materialSummary(entry.Usages))
	op.s.Sources[item.ID] = entry
	op.s.Items = append(op.s.Items, item)
	it := &op.s.Items[len(op.s.Items)-1]

	switch {
	case !tag.Adoptable():
		op.advance()
	case op.s.AIBlocked || op.p.namer == nil:
		it.Status = models.StatusAIBlocked
		op.s.AIBlocked = true
		op.advance()
	default:
		req := request(it, entry.Usages, "")
		namer := op.p.namer
		op.pending = runner.Start(ctx, func(ctx context.Context) (suggest.Suggestion, error) {
			return namer.Suggest(ctx, req)
		})
		res := op.progress()
		res.Wait = op.pending.Done()
		return res, nil
	}
	return op.progress(), nil
}

// collect applies the finished naming call to the newest item.
func (op *analyzeOp) collect() {
	sug, err := op.pending.Result()
	op.pending = nil
	it := &op.s.Items[len(op.s.Items)-1]
	if err == nil {
		it.InitialSuggestion = sug.Stem
		err = op.p.adopt(it, sug)
	}
	if err != nil {
		it.Status = models.StatusAIBlocked
		it.LastError = err.Error()
		op.s.AIBlocked = true
		slog.Warn("Naming failed, blocking further naming calls", "item", it.ID, "error", err)
	} else {
		slog.Info("Named texture", "item", it.ID, "filename", it.FinalFilename)
	}
	op.advance()
}

func (op *analyzeOp) advance() {
	op.next++
	op.s.Recount()
}

func (op *analyzeOp) finish() (runner.StepResult, error) {
	op.done = true
	if len(op.s.Items) > 0 {
		op.s.Phase = models.PhaseAnalyzed
	}
	op.s.Recount()
	op.writeReport(false)
	slog.Info("Analysis complete",
		"session", op.s.ID,
		"total", op.s.Counts.Total,
		"adoptable", op.s.Counts.Adoptable,
		"protected", op.s.Counts.Protected,
		"missing", op.s.Counts.Missing,
		"ai_blocked", op.s.AIBlocked)
	return op.progress(), nil
}

// Abort keeps the rows analyzed so far and records a cancelled report. Any
// rows move the session to ANALYZED so the later phases can use them.
// A naming call still in flight is abandoned.
func (op *analyzeOp) Abort() error {
	if op.done {
		return nil
	}
	op.done = true
	op.pending = nil
	if len(op.s.Items) > 0 {
		op.s.Phase = models.PhaseAnalyzed
	}
	op.s.Recount()
	op.writeReport(true)
	slog.Warn("Analysis cancelled", "session", op.s.ID, "completed", op.next, "total", len(op.entries))
	return nil
}

func (op *analyzeOp) Summary() string {
	c := op.s.Counts
	out := fmt.Sprintf("%d images: %d adoptable, %d protected, %d missing, %d ready",
		c.Total, c.Adoptable, c.Protected, c.Missing, c.SelectedReady)
	if op.s.AIBlocked {
		out += " (naming blocked)"
	}
	return out
}

func (op *analyzeOp) writeReport(cancelled bool) {
	if op.p.reports == nil {
		return
	}
	path, err := op.p.reports.WriteAnalysis(op.p.phaseReport(op.s, op.runID, cancelled))
	if err != nil {
		slog.Warn("Failed to write analysis report", "error", err)
		return
	}
	op.s.Reports.Analysis = path
}

func (op *analyzeOp) progress() runner.StepResult {
	label := "analyzing"
	if op.next < len(op.entries) {
		label = op.entries[op.next].Image.Name
	}
	return runner.StepResult{
		Done:      op.done,
		Completed: op.next,
		Total:     len(op.entries),
		Label:     label,
	}
}
