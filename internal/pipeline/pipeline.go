// Package pipeline runs the Analyze, Refine, Confirm and Apply phases over a
// session, one unit of work per step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/himatts/LimePipeline-sub001/internal/classify"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/naming"
	"github.com/himatts/LimePipeline-sub001/internal/report"
	"github.com/himatts/LimePipeline-sub001/internal/runner"
	"github.com/himatts/LimePipeline-sub001/internal/suggest"
)

var (
	ErrAIBlocked         = errors.New("naming is blocked until the next analyze")
	ErrNamingUnavailable = errors.New("naming service unavailable")
	ErrNothingToApply    = errors.New("no selected items are ready")
	ErrNotReady          = errors.New("selected items are not ready")
	ErrWrongPhase        = errors.New("operation not allowed in current phase")
)

// Scene is the host collaborator: it lists images in scope and accepts relinks
type Scene interface {
	Scan(ctx context.Context, scope models.Scope) ([]models.SourceEntry, error)
	Relink(id string, newPath string) error
}

// Options are the project facts every phase needs
type Options struct {
	ProjectRoot    string
	ProjectToken   string
	TextureRoot    string
	ProtectedRoots []string
}

// Pipeline binds the collaborators of one project
type Pipeline struct {
	opts    Options
	scene   Scene
	namer   suggest.Suggester
	reports *report.Writer
}

// Operation is a phase that can be stepped by a runner. Abort finalizes
// whatever work completed when the driver stops early.
type Operation interface {
	runner.Sequence
	Abort() error
	Summary() string
}

func New(opts Options, scene Scene, namer suggest.Suggester, reports *report.Writer) *Pipeline {
	return &Pipeline{
		opts:    opts,
		scene:   scene,
		namer:   namer,
		reports: reports,
	}
}

// Drain runs op to completion on the calling goroutine.
func Drain(ctx context.Context, op Operation, progress func(runner.StepResult)) error {
	return finish(op, runner.Drain(ctx, op, progress))
}

// Drive resumes op once per interval until it completes or ctx is cancelled.
func Drive(ctx context.Context, op Operation, interval time.Duration, progress func(runner.StepResult)) error {
	return finish(op, runner.Every(ctx, op, interval, progress))
}

func finish(op Operation, err error) error {
	if !errors.Is(err, runner.ErrCancelled) {
		return err
	}
	if abortErr := op.Abort(); abortErr != nil {
		return errors.Join(err, abortErr)
	}
	return err
}

// requireNaming is the session-fatal precondition shared by Refine and Apply.
func (p *Pipeline) requireNaming(ctx context.Context, s *models.Session) error {
	if s.AIBlocked {
		return ErrAIBlocked
	}
	if p.namer == nil {
		return fmt.Errorf("%w: no provider configured", ErrNamingUnavailable)
	}
	if err := p.namer.Available(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrNamingUnavailable, err)
	}
	return nil
}

func (p *Pipeline) classify(entry models.SourceEntry) (models.Tag, []string) {
	return classify.Classify(classify.Input{
		Image:          entry.Image,
		Usages:         entry.Usages,
		AbsPath:        entry.Image.AbsPath,
		RawPath:        entry.Image.RawPath,
		Exists:         entry.Image.Exists,
		ProjectRoot:    p.opts.ProjectRoot,
		ProtectedRoots: p.opts.ProtectedRoots,
		DestRoot:       p.opts.TextureRoot,
	})
}

// filename builds the canonical name for item from stem, keeping the source extension.
func (p *Pipeline) filename(item *models.PlanItem, stem string) string {
	return naming.CanonicalFilename(p.opts.ProjectToken, stem, item.MapRole, sourceExt(item))
}

func (p *Pipeline) preview(name string) string {
	if name == "" {
		return ""
	}
	return filepath.Join(p.opts.TextureRoot, name)
}

func sourceExt(item *models.PlanItem) string {
	for _, candidate := range []string{item.AbsPath, item.RawPath, item.ImageName} {
		if ext := filepath.Ext(candidate); ext != "" {
			return ext
		}
	}
	return ""
}

// Confirm checks that every selected adoptable item is READY, refreshes the
// destination previews and moves the session to READY_TO_APPLY.
func (p *Pipeline) Confirm(s *models.Session) error {
	if s.Phase == models.PhaseIdle {
		return fmt.Errorf("%w: analyze first", ErrWrongPhase)
	}

	var pending []string
	ready := 0
	for i := range s.Items {
		it := &s.Items[i]
		if !it.Selected || it.ReadOnly || it.Status.Terminal() {
			continue
		}
		if it.Status != models.StatusReady || it.FinalFilename == "" {
			pending = append(pending, it.ID)
			continue
		}
		it.DestPreview = p.preview(it.FinalFilename)
		ready++
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %s", ErrNotReady, strings.Join(pending, ", "))
	}
	if ready == 0 {
		return ErrNothingToApply
	}

	s.Phase = models.PhaseReadyToApply
	s.Recount()
	slog.Info("Session confirmed", "session", s.ID, "ready", ready)
	return nil
}

// Clear discards every row and returns the session to IDLE.
func Clear(s *models.Session) {
	s.Reset()
	slog.Info("Session cleared", "session", s.ID)
}

// SetSelected toggles whether an item takes part in Refine and Apply.
func SetSelected(s *models.Session, id string, selected bool) error {
	it, ok := s.Item(id)
	if !ok {
		return fmt.Errorf("item %q not found", id)
	}
	if selected && it.ReadOnly {
		return fmt.Errorf("item %q is %s and cannot be selected", id, it.Classification)
	}
	it.Selected = selected
	s.Recount()
	return nil
}

// SetHint stores free text passed to the naming service on the next Refine.
func SetHint(s *models.Session, id string, hint string) error {
	it, ok := s.Item(id)
	if !ok {
		return fmt.Errorf("item %q not found", id)
	}
	it.Hint = strings.TrimSpace(hint)
	s.UpdatedAt = time.Now()
	return nil
}

// SetActive moves the active row.
func SetActive(s *models.Session, index int) error {
	if index < 0 || index >= len(s.Items) {
		return fmt.Errorf("row %d out of range (0-%d)", index, len(s.Items)-1)
	}
	s.Active = index
	s.UpdatedAt = time.Now()
	return nil
}

// SetFinalName overrides the suggested name of an adoptable item. The item
// becomes READY without a naming call.
func (p *Pipeline) SetFinalName(s *models.Session, id string, name string) error {
	it, ok := s.Item(id)
	if !ok {
		return fmt.Errorf("item %q not found", id)
	}
	if it.ReadOnly {
		return fmt.Errorf("item %q is %s and cannot be renamed", id, it.Classification)
	}
	if it.Status.Terminal() {
		return fmt.Errorf("item %q is already %s", id, it.Status)
	}
	stem := naming.SanitizeStem(name)
	if stem == "" {
		return fmt.Errorf("name %q has no usable characters", name)
	}

	it.RefinedSuggestion = stem
	it.FinalFilename = p.filename(it, stem)
	it.DestPreview = p.preview(it.FinalFilename)
	it.Status = models.StatusReady
	it.LastError = ""
	s.Recount()
	return it.Validate()
}

// materialSummary lists the distinct consuming materials in sorted order.
func materialSummary(usages []models.UsageRecord) string {
	seen := make(map[string]bool)
	var names []string
	for _, u := range usages {
		if u.Material == "" || seen[u.Material] {
			continue
		}
		seen[u.Material] = true
		names = append(names, u.Material)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// request builds the naming request for item from its usages.
func request(item *models.PlanItem, usages []models.UsageRecord, prior string) suggest.Request {
	req := suggest.Request{
		OriginalName: item.ImageName,
		Role:         item.MapRole,
		Hint:         item.Hint,
		Prior:        prior,
	}
	seen := make(map[string]bool)
	for _, u := range usages {
		if req.Material == "" {
			req.Material = u.Material
		}
		for _, t := range u.Targets {
			if !seen[t] {
				seen[t] = true
				req.Targets = append(req.Targets, t)
			}
		}
	}
	return req
}

// adopt records a successful naming answer on item.
func (p *Pipeline) adopt(item *models.PlanItem, sug suggest.Suggestion) error {
	if sug.Role != "" && item.MapRole == models.RoleGeneric {
		item.MapRole = sug.Role
	}
	item.Explanation = sug.Explanation
	item.FinalFilename = p.filename(item, sug.Stem)
	item.DestPreview = p.preview(item.FinalFilename)
	item.Status = models.StatusReady
	item.LastError = ""
	return item.Validate()
}

func (p *Pipeline) phaseReport(s *models.Session, runID string, cancelled bool) *report.PhaseReport {
	return &report.PhaseReport{
		RunID:     runID,
		Scope:     s.Scope,
		AIBlocked: s.AIBlocked,
		Cancelled: cancelled,
		Summary:   s.Counts,
		Items:     report.Items(s.Items),
	}
}
