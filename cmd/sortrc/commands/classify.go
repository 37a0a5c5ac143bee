package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
	"github.com/walteh/sortrc/cmd/sortrc/pkg/ui"
	"github.com/walteh/sortrc/pkg/classify"
	"gitlab.com/tozd/go/errors"
)

// NewClassifyCmd creates a new classify command
func NewClassifyCmd(opts *opts.RootOpts) *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "classify [--list | FILE...]",
		Short: "Show the category and destination of each file",
		Long: `Classify shows where each named file would be sorted to without
touching it. Only the extension is looked at. With --list it prints the
extensions of every category instead.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := opts.LoadConfig(ctx)
			if err != nil {
				return err
			}
			table, err := cfg.Table()
			if err != nil {
				return errors.Errorf("building classification table: %w", err)
			}
			dests, err := cfg.DestinationDirs()
			if err != nil {
				return errors.Errorf("resolving destinations: %w", err)
			}

			user := ui.NewUserLogger(ctx, cmd.OutOrStdout())
			if list {
				cats := make([]ui.CategoryExtensions, 0, len(classify.Categories))
				for _, c := range classify.Categories {
					cats = append(cats, ui.CategoryExtensions{
						Category:    c.String(),
						Extensions:  table.Extensions(c),
						Destination: dests[c],
					})
				}
				user.RenderCategories(cats)
				return nil
			}

			rows := make([]ui.Classification, 0, len(args))
			for _, arg := range args {
				c := table.ClassifyPath(arg)
				rows = append(rows, ui.Classification{
					Name:        filepath.Base(arg),
					Category:    c.String(),
					Destination: dests[c],
				})
			}

			user.RenderClassifications(rows)
			return nil
		},
	}

	cmd.Flags().BoolVar(&list, "list", false, "list the extensions of every category")

	return cmd
}
