package cmd

import (
	"fmt"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/spf13/cobra"
)

func newAnalyzeCmd(flags *globalFlags) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan the scene, classify every image and propose names",
		Long: `Starts a fresh session: every image used by a material in scope is classified,
and each adoptable image gets one naming suggestion. A naming failure blocks further
naming calls until the next analyze, but classification continues.`,
		Example: `  # Analyze the whole scene
  limetex analyze

  # Only materials selected in the scene snapshot
  limetex analyze --scope selection --provider openai`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := models.ParseScope(scope)
			if err != nil {
				return err
			}
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(true)
			if err != nil {
				return err
			}
			p, err := ws.pipeline()
			if err != nil {
				return err
			}
			op, err := p.Analyze(cmd.Context(), s, sc)
			if err != nil {
				return err
			}
			return ws.run(cmd, s, op)
		},
	}

	cmd.Flags().StringVar(&scope, "scope", "all", "Scan scope (all or selection)")
	return cmd
}

func newRefineCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "refine",
		Short: "Ask again for better names for the selected items",
		Long: `Re-requests a name for every selected adoptable item, passing its hint and the
previous suggestion. The first naming failure stops the pass and blocks naming.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			p, err := ws.pipeline()
			if err != nil {
				return err
			}
			op, err := p.Refine(cmd.Context(), s)
			if err != nil {
				return err
			}
			return ws.run(cmd, s, op)
		},
	}
}

func newConfirmCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Check that every selected item is ready and lock in the plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			p, err := ws.pipeline()
			if err != nil {
				return err
			}
			if err := p.Confirm(s); err != nil {
				return err
			}
			if err := ws.save(s); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d items ready to apply into %s\n", s.Counts.SelectedReady, ws.cfg.TextureRoot)
			return nil
		},
	}
}

func newApplyCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Copy the selected ready items into the texture root and relink the scene",
		Long: `Every selected READY item is re-classified, hashed, copied into the texture root
unless identical content is already there, and relinked in the scene. Item failures
are recorded and the pass continues. The hash index and an apply manifest are written
at the end, also when the pass is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			p, err := ws.pipeline()
			if err != nil {
				return err
			}
			op, err := p.Apply(cmd.Context(), s)
			if err != nil {
				return err
			}
			if err := ws.run(cmd, s, op); err != nil {
				return err
			}
			if s.Reports.ApplyManifest != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Manifest: %s\n", s.Reports.ApplyManifest)
			}
			return nil
		},
	}
}
