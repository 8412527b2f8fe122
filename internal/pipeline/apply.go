package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/report"
	"github.com/himatts/LimePipeline-sub001/internal/runner"
	"github.com/himatts/LimePipeline-sub001/internal/store"
)

type applyOp struct {
	p        *Pipeline
	s        *models.Session
	store    *store.Store
	targets  []int
	next     int
	relinked map[string]string
	manifest report.Manifest
	done     bool
}

// Apply copies every selected READY item into the texture store and relinks
// the scene. Individual failures are recorded on the item and the pass continues.
func (p *Pipeline) Apply(ctx context.Context, s *models.Session) (Operation, error) {
	if s.Phase == models.PhaseIdle {
		return nil, fmt.Errorf("%w: analyze first", ErrWrongPhase)
	}
	if err := p.requireNaming(ctx, s); err != nil {
		return nil, err
	}

	var targets []int
	for i, it := range s.Items {
		if it.Selected && !it.ReadOnly && it.Status == models.StatusReady {
			targets = append(targets, i)
		}
	}
	if len(targets) == 0 {
		return nil, ErrNothingToApply
	}

	st, err := store.Open(p.opts.TextureRoot)
	if err != nil {
		return nil, err
	}

	slog.Info("Applying", "session", s.ID, "items", len(targets), "texture_root", st.Root())
	return &applyOp{
		p:        p,
		s:        s,
		store:    st,
		targets:  targets,
		relinked: make(map[string]string),
		manifest: report.Manifest{
			RunID:       uuid.NewString(),
			Scope:       s.Scope,
			TextureRoot: st.Root(),
			IndexPath:   st.Index().Path(),
			Stats:       report.ApplyStats{SelectedReady: len(targets)},
			Changes:     []report.Change{},
			Skips:       []report.Skip{},
		},
	}, nil
}

func (op *applyOp) Next(ctx context.Context) (runner.StepResult, error) {
	if op.done {
		return op.progress(), nil
	}
	if op.next >= len(op.targets) {
		if err := op.finish(false); err != nil {
			return op.progress(), err
		}
		op.s.Phase = models.PhaseApplied
		op.s.Recount()
		slog.Info("Apply complete",
			"session", op.s.ID,
			"adopted", op.manifest.Stats.Adopted,
			"relinked_existing", op.manifest.Stats.RelinkedExisting,
			"skipped", op.manifest.Stats.Skipped,
			"errors", op.manifest.Stats.Errors)
		return op.progress(), nil
	}

	op.applyItem(&op.s.Items[op.targets[op.next]])
	op.next++
	op.s.Recount()
	return op.progress(), nil
}

func (op *applyOp) applyItem(it *models.PlanItem) {
	entry, ok := op.p.resolve(op.s, it)
	if !ok {
		op.fail(it, "", errors.New("image is no longer part of the analyzed scene"))
		return
	}
	src := entry.Image.AbsPath

	tag, reasons := op.p.classify(entry)
	if tag != it.Classification {
		slog.Info("Texture reclassified", "item", it.ID, "was", it.Classification, "now", tag)
		it.Classification = tag
		it.Issues = reasons
	}
	if !tag.Adoptable() {
		it.ReadOnly = true
		it.Selected = false
		it.Status = models.StatusSkipped
		it.LastError = reasons[0]
		op.manifest.Stats.Skipped++
		op.manifest.Skips = append(op.manifest.Skips, report.Skip{
			ItemID: it.ID, OriginalPath: src, Status: it.Status, Reason: it.LastError,
		})
		slog.Info("Skipped texture", "item", it.ID, "classification", tag, "reason", it.LastError)
		return
	}

	if info, err := os.Stat(src); err != nil || info.IsDir() {
		op.fail(it, src, fmt.Errorf("source file missing: %s", src))
		return
	}

	res, err := op.store.Ingest(src, it.FinalFilename)
	if err != nil {
		op.fail(it, src, err)
		return
	}
	it.DestPreview = res.Path

	change := report.Change{
		ItemID:         it.ID,
		OriginalPath:   src,
		Classification: it.Classification,
		Hash:           res.Hash,
		Bytes:          res.Size,
		Action:         res.Action,
		DestPath:       res.Path,
	}
	if prev, ok := op.relinked[entry.Image.ID]; ok {
		change.Relink = fmt.Sprintf("already relinked to %s", prev)
	} else {
		if err := op.p.scene.Relink(entry.Image.ID, res.Path); err != nil {
			op.fail(it, src, fmt.Errorf("failed to relink %s: %w", entry.Image.ID, err))
			return
		}
		op.relinked[entry.Image.ID] = res.Path
		change.Relink = fmt.Sprintf("%s -> %s", entry.Image.RawPath, res.Path)
	}

	it.Status = models.StatusApplied
	it.LastError = ""
	switch res.Action {
	case store.ActionCopied:
		op.manifest.Stats.Adopted++
	case store.ActionRelinkExisting:
		op.manifest.Stats.RelinkedExisting++
	}
	op.manifest.Changes = append(op.manifest.Changes, change)
	slog.Info("Applied texture", "item", it.ID, "action", res.Action, "dest", res.Path)
}

func (op *applyOp) fail(it *models.PlanItem, src string, err error) {
	it.Status = models.StatusError
	it.LastError = err.Error()
	op.manifest.Stats.Errors++
	op.manifest.Skips = append(op.manifest.Skips, report.Skip{
		ItemID: it.ID, OriginalPath: src, Status: it.Status, Reason: it.LastError,
	})
	slog.Warn("Failed to apply texture", "item", it.ID, "error", err)
}

// finish persists the index and writes the manifest.
func (op *applyOp) finish(cancelled bool) error {
	op.done = true
	op.manifest.Cancelled = cancelled
	if err := op.store.Commit(); err != nil {
		return fmt.Errorf("failed to save hash index: %w", err)
	}
	if op.p.reports == nil {
		return nil
	}
	path, err := op.p.reports.WriteManifest(&op.manifest)
	if err != nil {
		return err
	}
	op.s.Reports.ApplyManifest = path
	return nil
}

// Abort persists the index with the items completed so far and writes a
// cancelled manifest. The phase is left unchanged.
func (op *applyOp) Abort() error {
	if op.done {
		return nil
	}
	op.s.Recount()
	slog.Warn("Apply cancelled", "session", op.s.ID, "completed", op.next, "total", len(op.targets))
	return op.finish(true)
}

func (op *applyOp) Summary() string {
	st := op.manifest.Stats
	return fmt.Sprintf("%d ready: %d adopted, %d relinked to existing files, %d skipped, %d errors",
		st.SelectedReady, st.Adopted, st.RelinkedExisting, st.Skipped, st.Errors)
}

func (op *applyOp) progress() runner.StepResult {
	label := "applying"
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

// resolve finds the scanned entry behind item, first by identity and then by
// its (name, raw path, absolute path) triple.
func (p *Pipeline) resolve(s *models.Session, it *models.PlanItem) (models.SourceEntry, bool) {
	if entry, ok := s.Sources[it.ID]; ok {
		return entry, true
	}
	for _, entry := range s.Sources {
		img := entry.Image
		if img.Name == it.ImageName && img.RawPath == it.RawPath && img.AbsPath == it.AbsPath {
			return entry, true
		}
	}
	return models.SourceEntry{}, false
}
