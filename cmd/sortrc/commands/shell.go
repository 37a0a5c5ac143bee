package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/sortrc/cmd/sortrc/opts"
	"github.com/walteh/sortrc/cmd/sortrc/pkg/ui"
	"github.com/walteh/sortrc/pkg/session"
	"github.com/walteh/sortrc/pkg/watcher"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const shellHelp = `commands:
  ls                 list the current folder
  pwd                print the current folder
  cd NAME            open a folder
  back | ..          go to the parent folder
  cut NAME           mark a file to be moved
  copy NAME          mark a file to be copied
  clip               show the clipboard
  paste [DIR]        paste into the current folder or DIR
  rm NAME            delete a file or empty folder (asks first)
  mkdir NAME         create a folder
  open NAME          open a file or folder
  sweep              sort the current folder now
  help               show this help
  quit | exit        leave the shell`

// NewShellCmd creates a new shell command
func NewShellCmd(opts *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Browse and manage files while the watcher keeps sorting",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "shell").Logger().WithContext(cmd.Context())

			if opts.Console == nil {
				opts.Console = cmd.OutOrStdout()
			}
			rt, err := opts.NewRuntime(ctx)
			if err != nil {
				return err
			}

			if err := rt.Session.Start(ctx); err != nil {
				return errors.Errorf("starting session: %w", err)
			}
			defer rt.Session.Close()

			return RunShell(ctx, rt.Session, rt.Watcher.Batches(), cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	return cmd
}

// 🐚 RunShell reads commands from in until quit or EOF while a background
// loop sweeps on every watcher batch
func RunShell(ctx context.Context, sess *session.Session, batches <-chan watcher.Batch, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if batches != nil {
		g.Go(func() error {
			return sess.Run(gctx, batches)
		})
	}

	sh := &shell{
		session: sess,
		user:    ui.NewUserLogger(ctx, out),
		scanner: bufio.NewScanner(in),
		out:     out,
	}
	err := sh.loop(ctx)
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

type shell struct {
	session *session.Session
	user    *ui.UserLogger
	scanner *bufio.Scanner
	out     io.Writer
}

func (sh *shell) loop(ctx context.Context) error {
	for {
		fmt.Fprintf(sh.out, "%s> ", sh.session.Dir())
		if !sh.scanner.Scan() {
			fmt.Fprintln(sh.out)
			return sh.scanner.Err()
		}
		quit, err := sh.exec(ctx, sh.scanner.Text())
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("shell command failed")
		}
		if quit {
			return nil
		}
	}
}

// exec runs one command line. Operation failures are already in the event
// log, so they are only returned for the debug log.
func (sh *shell) exec(ctx context.Context, line string) (quit bool, err error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	name, args := fields[0], fields[1:]
	arg := strings.Join(args, " ")

	needsArg := func() bool {
		if arg == "" {
			sh.user.LogValidation(false, fmt.Sprintf("usage: %s NAME", name), nil)
			return false
		}
		return true
	}

	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(sh.out, shellHelp)
	case "pwd":
		fmt.Fprintln(sh.out, sh.session.Dir())
	case "ls":
		entries, err := sh.session.List(ctx)
		if err != nil {
			return false, err
		}
		sh.user.RenderListing(sh.session.Dir(), entries)
	case "cd":
		if needsArg() {
			return false, sh.session.NavigateInto(ctx, arg)
		}
	case "back", "..":
		return false, sh.session.NavigateBack(ctx)
	case "cut":
		if needsArg() {
			return false, sh.session.Cut(ctx, arg)
		}
	case "copy":
		if needsArg() {
			return false, sh.session.Copy(ctx, arg)
		}
	case "clip":
		if entry, ok := sh.session.Clipboard(); ok {
			fmt.Fprintf(sh.out, "%s %s\n", entry.Action, entry.Path)
		} else {
			fmt.Fprintln(sh.out, "clipboard is empty")
		}
	case "paste":
		return false, sh.session.Paste(ctx, arg)
	case "rm":
		if needsArg() && sh.confirm(fmt.Sprintf("Delete %s?", arg)) {
			return false, sh.session.Delete(ctx, arg)
		}
	case "mkdir":
		if needsArg() {
			_, err := sh.session.CreateFolder(ctx, arg)
			return false, err
		}
	case "open":
		if needsArg() {
			return false, sh.session.Open(ctx, arg)
		}
	case "sweep":
		sh.user.LogSweep(sh.session.Sweep(ctx))
	default:
		sh.user.LogValidation(false, fmt.Sprintf("unknown command %q, try help", name), nil)
	}
	return false, nil
}

func (sh *shell) confirm(question string) bool {
	fmt.Fprintf(sh.out, "%s [y/N] ", question)
	if !sh.scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(sh.scanner.Text()))
	return answer == "y" || answer == "yes"
}
