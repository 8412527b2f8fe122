package cmd

import (
	"fmt"
	"strings"

	"github.com/himatts/LimePipeline-sub001/internal/pipeline"
	"github.com/spf13/cobra"
)

func newSelectCmd(flags *globalFlags) *cobra.Command {
	var off bool

	cmd := &cobra.Command{
		Use:   "select <item-id>...",
		Short: "Include items in (or with --off, exclude them from) refine and apply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := pipeline.SetSelected(s, id, !off); err != nil {
					return err
				}
			}
			return ws.save(s)
		},
	}

	cmd.Flags().BoolVar(&off, "off", false, "Deselect instead of select")
	return cmd
}

func newHintCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "hint <item-id> <text>",
		Short: "Give the naming service a hint for the next refine",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(flags)
			if err != nil {
				return err
			}
			s, err := ws.session(false)
			if err != nil {
				return err
			}
			if err := pipeline.SetHint(s, args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			return ws.save(s)
		},
	}
}

func newRenameCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <item-id> <name>",
		Short: "Set the final name of an item by hand",
		Long: `Sets the name stem of an adoptable item. The project token, map type and source
extension are added as usual and the item becomes READY without a naming call.`,
		Example: `  limetex rename img_0042 "brushed steel"`,
		Args:    cobra.MinimumNArgs(2),
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
			if err := p.SetFinalName(s, args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			if it, ok := s.Item(args[0]); ok {
				fmt.Fprintln(cmd.OutOrStdout(), it.FinalFilename)
			}
			return ws.save(s)
		},
	}
}
