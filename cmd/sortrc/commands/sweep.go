package commands

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
	"github.com/walteh/sortrc/cmd/sortrc/pkg/ui"
)

// NewSweepCmd creates a new sweep command
func NewSweepCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sort the source folder once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "sweep").Logger().WithContext(cmd.Context())

			rt, err := opts.NewRuntime(ctx)
			if err != nil {
				return err
			}

			ui.NewUserLogger(ctx, cmd.OutOrStdout()).LogSweep(rt.Session.Sweep(ctx))
			return nil
		},
	}

	return cmd
}
