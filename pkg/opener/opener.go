// Package opener hands files to the operating system's default application.
package opener

import (
	"context"
	"io"
	"os"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Opener opens a path with whatever the desktop associates with it
type Opener interface {
	Open(ctx context.Context, path string) error
}

// 🖥️ System opens paths through xdg-open, open or start
type System struct {
	// Output receives the launcher's stdout and stderr, discarded when nil
	Output io.Writer
}

// Open launches the default application for path
func (s System) Open(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return errors.Errorf("opening %s: %w", path, err)
	}

	out := s.Output
	if out == nil {
		out = io.Discard
	}
	browser.Stdout = out
	browser.Stderr = out

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("opening with default application")
	if err := browser.OpenFile(path); err != nil {
		return errors.Errorf("launching default application for %s: %w", path, err)
	}
	return nil
}

// Func adapts a plain function to Opener
type Func func(ctx context.Context, path string) error

// Open calls f
func (f Func) Open(ctx context.Context, path string) error {
	return f(ctx, path)
}
