package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/himatts/LimePipeline-sub001/internal/config"
	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/pipeline"
	"github.com/himatts/LimePipeline-sub001/internal/report"
	"github.com/himatts/LimePipeline-sub001/internal/runner"
	"github.com/himatts/LimePipeline-sub001/internal/scene"
	"github.com/himatts/LimePipeline-sub001/internal/storage"
	"github.com/himatts/LimePipeline-sub001/internal/suggest"
	"github.com/spf13/cobra"
)

const tickInterval = 50 * time.Millisecond

// workspace is everything one command needs for a project
type workspace struct {
	cfg      *config.Config
	sessions *storage.SessionStore
}

func openWorkspace(flags *globalFlags) (*workspace, error) {
	cfg, err := config.Load(flags.project)
	if err != nil {
		return nil, err
	}
	if err := cfg.Override(flags.scene, flags.provider, flags.model); err != nil {
		return nil, err
	}
	slog.Debug("Configuration loaded",
		"project", cfg.ProjectRoot,
		"scene", cfg.Scene,
		"texture_root", cfg.TextureRoot,
		"provider", cfg.Provider)
	return &workspace{
		cfg:      cfg,
		sessions: storage.New(cfg.StateDir()),
	}, nil
}

// session returns the saved session, or a fresh one when create is set.
func (w *workspace) session(create bool) (*models.Session, error) {
	if create {
		return w.sessions.GetOrCreate(uuid.NewString())
	}
	s, err := w.sessions.Get()
	if errors.Is(err, storage.ErrNoSession) {
		return nil, fmt.Errorf("%w: run 'limetex analyze' first", err)
	}
	return s, err
}

// pipeline opens the scene and the naming service.
func (w *workspace) pipeline() (*pipeline.Pipeline, error) {
	sc, err := scene.Open(w.cfg.Scene)
	if err != nil {
		return nil, err
	}
	provider, err := suggest.ProviderFor(w.cfg.Provider)
	if err != nil {
		return nil, err
	}
	model := w.cfg.Model
	if model == "" {
		model = suggest.DefaultModel(w.cfg.Provider)
	}
	opts := pipeline.Options{
		ProjectRoot:    w.cfg.ProjectRoot,
		ProjectToken:   w.cfg.ProjectToken,
		TextureRoot:    w.cfg.TextureRoot,
		ProtectedRoots: w.cfg.ProtectedRoots,
	}
	return pipeline.New(opts, sc, suggest.NewService(provider, model), report.NewWriter(w.cfg.ReportsDir)), nil
}

// run drives op from a ticker, saves the session whatever the outcome and
// prints the phase summary.
func (w *workspace) run(cmd *cobra.Command, s *models.Session, op pipeline.Operation) error {
	err := pipeline.Drive(cmd.Context(), op, tickInterval, progressPrinter(cmd.ErrOrStderr()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if saveErr := w.sessions.Set(s); saveErr != nil {
		return errors.Join(err, saveErr)
	}
	if err != nil {
		if errors.Is(err, runner.ErrCancelled) {
			fmt.Fprintf(cmd.OutOrStdout(), "Cancelled: %s\n", op.Summary())
		}
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), op.Summary())
	return nil
}

// save persists an edited session.
func (w *workspace) save(s *models.Session) error {
	return w.sessions.Set(s)
}

func progressPrinter(out io.Writer) func(runner.StepResult) {
	return func(res runner.StepResult) {
		fmt.Fprintf(out, "\r[%3.0f%%] %d/%d %-40.40s", res.Progress()*100, res.Completed, res.Total, res.Label)
	}
}
