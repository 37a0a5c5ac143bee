package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
	"github.com/walteh/sortrc/cmd/sortrc/pkg/ui"
	"github.com/walteh/sortrc/pkg/fileops"
	"github.com/walteh/sortrc/pkg/log"
	"gitlab.com/tozd/go/errors"
)

// NewLsCmd creates a new ls command
func NewLsCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [DIR]",
		Short: "List a folder, the source folder by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var dir string
			if len(args) == 1 {
				dir = args[0]
			} else {
				cfg, err := opts.LoadConfig(ctx)
				if err != nil {
					return err
				}
				dir = cfg.Source
			}
			dir, err := filepath.Abs(dir)
			if err != nil {
				return errors.Errorf("resolving %s: %w", dir, err)
			}

			engine, err := fileops.New(fileops.Options{Logger: log.New(ctx, cmd.ErrOrStderr())})
			if err != nil {
				return errors.Errorf("creating file operations engine: %w", err)
			}
			entries, err := engine.ListDirectory(ctx, dir)
			if err != nil {
				return err
			}

			ui.NewUserLogger(ctx, cmd.OutOrStdout()).RenderListing(dir, entries)
			return nil
		},
	}

	return cmd
}
