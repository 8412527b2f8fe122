package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	project  string
	scene    string
	provider string
	model    string
	verbose  bool
}

func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "limetex",
		Short: "Adopt scene textures into a content-addressed project texture store",
		Long: `Limetex scans the images a scene's materials use, decides which of them are safe
to adopt into the project, proposes canonical filenames with an LLM, and copies the
adopted files into the project's texture root while relinking the scene.

A session moves through analyze, refine, confirm and apply. The session is kept in
<project>/.limetex/session.json between commands.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if flags.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flags.project, "project", "", "Project root (defaults to the working directory)")
	cmd.PersistentFlags().StringVar(&flags.scene, "scene", "", "Scene snapshot file (defaults to scene.yaml in the project)")
	cmd.PersistentFlags().StringVar(&flags.provider, "provider", "", "LLM provider (ollama, openai, or gemini)")
	cmd.PersistentFlags().StringVar(&flags.model, "model", "", "Model name (defaults to provider's default)")
	cmd.PersistentFlags().BoolVar(&flags.verbose, "verbose", false, "Verbose logging")

	cmd.AddCommand(newAnalyzeCmd(flags))
	cmd.AddCommand(newRefineCmd(flags))
	cmd.AddCommand(newConfirmCmd(flags))
	cmd.AddCommand(newApplyCmd(flags))
	cmd.AddCommand(newSelectCmd(flags))
	cmd.AddCommand(newHintCmd(flags))
	cmd.AddCommand(newRenameCmd(flags))
	cmd.AddCommand(newStatusCmd(flags))
	cmd.AddCommand(newClearCmd(flags))
	cmd.AddCommand(newExportCmd(flags))

	return cmd
}
