package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/himatts/LimePipeline-sub001/internal/models"
	"github.com/himatts/LimePipeline-sub001/internal/pipeline"
	"github.com/himatts/LimePipeline-sub001/internal/report"
	"github.com/himatts/LimePipeline-sub001/internal/storage"
	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	row := -1

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the session table and counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			if row >= 0 {
				if err := pipeline.SetActive(s, row); err != nil {
					return err
				}
				if err := ws.save(s); err != nil {
					return err
				}
			}
			printSession(cmd.OutOrStdout(), s)
			if row >= 0 {
				printItem(cmd.OutOrStdout(), &s.Items[s.Active])
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&row, "row", -1, "Make this row active and show its details")
	return cmd
}

func printSession(out io.Writer, s *models.Session) {
	fmt.Fprintf(out, "Session %s  phase=%s  scope=%s", s.ID, s.Phase, s.Scope)
	if s.AIBlocked {
		fmt.Fprint(out, "  NAMING BLOCKED")
	}
	fmt.Fprintln(out)
	c := s.Counts
	fmt.Fprintf(out, "total=%d adoptable=%d protected=%d missing=%d selected-ready=%d\n\n",
		c.Total, c.Adoptable, c.Protected, c.Missing, c.SelectedReady)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\tROW\tID\tSEL\tCLASSIFICATION\tROLE\tSTATUS\tNAME")
	for i, it := range s.Items {
		marker := ""
		if i == s.Active {
			marker = ">"
		}
		sel := ""
		if it.Selected {
			sel = "x"
		}
		name := it.FinalFilename
		if name == "" {
			name = it.ImageName
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker, i, it.ID, sel, it.Classification, it.MapRole, it.Status, name)
	}
	tw.Flush()
}

func printItem(out io.Writer, it *models.PlanItem) {
	fmt.Fprintf(out, "\n%s (%s)\n", it.ImageName, it.ID)
	fmt.Fprintf(out, "  path:        %s\n", it.RawPath)
	fmt.Fprintf(out, "  materials:   %s\n", it.Materials)
	fmt.Fprintf(out, "  issues:      %s\n", strings.Join(it.Issues, "; "))
	if it.Hint != "" {
		fmt.Fprintf(out, "  hint:        %s\n", it.Hint)
	}
	if it.Explanation != "" {
		fmt.Fprintf(out, "  explanation: %s\n", it.Explanation)
	}
	if it.DestPreview != "" {
		fmt.Fprintf(out, "  destination: %s\n", it.DestPreview)
	}
	if it.LastError != "" {
		fmt.Fprintf(out, "  error:       %s\n", it.LastError)
	}
}

func newClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Discard the session table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.sessions.Get()
			if errors.Is(err, storage.ErrNoSession) {
				fmt.Fprintln(cmd.OutOrStdout(), "No session to clear")
				return nil
			}
			if err != nil {
				return err
			}
			pipeline.Clear(s)
			if err := ws.sessions.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session cleared (%s removed)\n", ws.sessions.Path())
			return nil
		},
	}
}

func newExportCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the session table to a .yaml or .parquet file",
		Example: `  limetex export plan.yaml
  limetex export plan.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			if err := report.Export(s, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d items to %s\n", len(s.Items), args[0])
			return nil
		},
	}
}
