package main

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/commands"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
)

// newRootCmd creates the root command with every subcommand attached
func newRootCmd() *cobra.Command {
	rootOpts := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "sortrc",
		Short: "Sort files into category folders as they arrive",
		Long: `sortrc watches a folder and moves each new file into a folder for its
category (image, video, audio, document) based on its extension. It also
offers a small shell to browse, cut, copy, paste and delete files by hand.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := setupLogging(cmd.ErrOrStderr(), rootOpts.Debug)
			cmd.SetContext(logger.WithContext(cmd.Context()))
		},
	}

	addRootFlags(rootCmd, rootOpts)

	rootCmd.AddCommand(
		commands.NewWatchCmd(rootOpts),
		commands.NewSweepCmd(rootOpts),
		commands.NewClassifyCmd(rootOpts),
		commands.NewLsCmd(rootOpts),
		commands.NewShellCmd(rootOpts),
		newVersionCmd(),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", ".sortrc.yaml", "config file path")
	cmd.PersistentFlags().StringVarP(&o.Source, "source", "s", "", "folder to sort, overrides the config file")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
}

// setupLogging configures zerolog based on flags
func setupLogging(w io.Writer, debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(level).With().Timestamp().Logger()
}
