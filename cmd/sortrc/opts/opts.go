package opts

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/config"
	"github.com/walteh/sortrc/pkg/fileops"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/metrics"
	"github.com/walteh/sortrc/pkg/opener"
	"github.com/walteh/sortrc/pkg/route"
	"github.com/walteh/sortrc/pkg/session"
	"github.com/walteh/sortrc/pkg/watcher"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile string
	Source     string
	Debug      bool

	// Console receives the event log, stdout when nil
	Console io.Writer
	// Opener overrides the system opener, mostly for tests
	Opener opener.Opener
}

// Runtime is everything a running session needs, wired together
type Runtime struct {
	Config  *config.Config
	Logger  *log.Logger
	Metrics *metrics.Metrics
	Engine  *fileops.Engine
	Router  *route.Router
	Gate    *session.Gate
	Watcher *watcher.Watcher
	Session *session.Session
}

// 📝 LoadConfig reads the config file. A missing file is fine when a
// source was given on the command line; --source always wins.
func (o *RootOpts) LoadConfig(ctx context.Context) (*config.Config, error) {
	var cfg *config.Config

	_, statErr := os.Stat(o.ConfigFile)
	switch {
	case statErr == nil:
		loaded, err := config.Load(ctx, o.ConfigFile)
		if err != nil {
			return nil, errors.Errorf("loading config: %w", err)
		}
		cfg = loaded
	case errors.Is(statErr, os.ErrNotExist) && o.Source != "":
		zerolog.Ctx(ctx).Debug().Str("path", o.ConfigFile).Msg("no config file, using defaults")
		cfg = &config.Config{}
	default:
		return nil, errors.Errorf("loading config: %w", statErr)
	}

	if o.Source != "" {
		abs, err := filepath.Abs(o.Source)
		if err != nil {
			return nil, errors.Errorf("resolving --source: %w", err)
		}
		cfg.Source = abs
		if err := cfg.Validate(); err != nil {
			return nil, errors.Errorf("validating config: %w", err)
		}
	}

	return cfg, nil
}

// 🏭 NewRuntime loads the config, creates every destination folder and
// wires the engine, router, watcher and session together
func (o *RootOpts) NewRuntime(ctx context.Context) (*Runtime, error) {
	cfg, err := o.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	console := o.Console
	if console == nil {
		console = os.Stdout
	}

	rt := &Runtime{
		Config:  cfg,
		Logger:  log.New(ctx, console),
		Metrics: metrics.New(),
		Gate:    session.NewGate(),
	}

	rt.Engine, err = fileops.New(fileops.Options{Logger: rt.Logger, Metrics: rt.Metrics})
	if err != nil {
		return nil, errors.Errorf("creating file operations engine: %w", err)
	}

	dests, err := cfg.DestinationDirs()
	if err != nil {
		return nil, errors.Errorf("resolving destinations: %w", err)
	}
	dirs := []string{cfg.Source}
	for _, c := range classify.Categories {
		dirs = append(dirs, dests[c])
	}
	if err := rt.Engine.EnsureDirs(ctx, dirs...); err != nil {
		return nil, errors.Errorf("creating destination folders: %w", err)
	}

	table, err := cfg.Table()
	if err != nil {
		return nil, errors.Errorf("building classification table: %w", err)
	}

	rt.Router, err = route.New(route.Options{
		Table:          table,
		Destinations:   dests,
		IgnorePatterns: cfg.IgnorePatterns,
		Mover:          rt.Engine,
		Gate:           rt.Gate,
		Logger:         rt.Logger,
		Metrics:        rt.Metrics,
	})
	if err != nil {
		return nil, errors.Errorf("creating router: %w", err)
	}

	rt.Watcher = watcher.New(ctx)

	op := o.Opener
	if op == nil {
		op = opener.System{}
	}

	rt.Session, err = session.New(ctx, session.Options{
		Dir:     cfg.Source,
		Gate:    rt.Gate,
		Engine:  rt.Engine,
		Router:  rt.Router,
		Watcher: rt.Watcher,
		Opener:  op,
		Logger:  rt.Logger,
		Metrics: rt.Metrics,
	})
	if err != nil {
		return nil, errors.Errorf("creating session: %w", err)
	}

	return rt, nil
}
