package commands

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
	"github.com/walteh/sortrc/cmd/sortrc/pkg/ui"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// NewWatchCmd creates a new watch command
func NewWatchCmd(opts *opts.RootOpts) *cobra.Command {
	var (
		metricsAddr  string
		sweepOnStart bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the source folder and sort new files",
		Long: `Watch binds a recursive watcher to the source folder.
Every batch of changes triggers a sweep of the whole folder:
1. Files whose extension maps to a category are moved to its folder
2. Files in a destination folder are left alone
3. Unsupported and ignored files stay where they are`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "watch").Logger().WithContext(cmd.Context())

			rt, err := opts.NewRuntime(ctx)
			if err != nil {
				return err
			}
			user := ui.NewUserLogger(ctx, cmd.OutOrStdout())

			if err := rt.Session.Start(ctx); err != nil {
				return errors.Errorf("starting session: %w", err)
			}
			defer rt.Session.Close()

			user.LogStateChange("Watching " + rt.Session.Dir())
			if sweepOnStart {
				user.LogSweep(rt.Session.Sweep(ctx))
			}

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return rt.Session.Run(ctx, rt.Watcher.Batches())
			})

			if metricsAddr != "" {
				srv := &http.Server{
					Addr:              metricsAddr,
					Handler:           metricsMux(rt.Metrics.Handler()),
					ReadHeaderTimeout: 5 * time.Second,
				}
				g.Go(func() error {
					zerolog.Ctx(ctx).Info().Str("addr", metricsAddr).Msg("serving metrics")
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						return errors.Errorf("serving metrics: %w", err)
					}
					return nil
				})
				g.Go(func() error {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					return srv.Shutdown(shutdownCtx)
				})
			}

			if err := g.Wait(); err != nil {
				return err
			}
			user.LogStateChange("Stopped watching")
			return nil
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address, e.g. :9090")
	cmd.Flags().BoolVar(&sweepOnStart, "sweep-on-start", false, "sort files already in the source folder before watching")

	return cmd
}

func metricsMux(h http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	return mux
}
