// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package route decides where a newly arrived file belongs and moves it there.
package route

import (
	"context"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/metrics"
	"gitlab.com/tozd/go/errors"
)

// 🎯 Outcome is the result of one RouteIfEligible call
type Outcome int

const (
	OutcomeMoved Outcome = iota
	OutcomeSuppressed
	OutcomeAlreadySorted
	OutcomeOutOfScope
	OutcomeIgnored
	OutcomeUnsupported
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeMoved:
		return "moved"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeAlreadySorted:
		return "already_sorted"
	case OutcomeOutOfScope:
		return "out_of_scope"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeUnsupported:
		return "unsupported"
	default:
		return "failed"
	}
}

// Gate reports whether auto-routing is currently allowed
type Gate interface {
	Enabled() bool
}

// Mover moves a file into a directory
type Mover interface {
	MoveFile(ctx context.Context, src, destDir string) (string, error)
}

// 🔧 Options configures a Router
type Options struct {
	Table          *classify.Table
	Destinations   map[classify.Category]string
	IgnorePatterns []string
	Mover          Mover
	Gate           Gate
	Logger         *log.Logger
	Metrics        *metrics.Metrics
}

// 🧭 Router classifies files and moves them into their destination directory
type Router struct {
	table        *classify.Table
	destinations map[classify.Category]string
	destDirs     map[string]bool
	ignore       []string
	mover        Mover
	gate         Gate
	logger       *log.Logger
	metrics      *metrics.Metrics
}

// 🏭 New creates a router. Every routable category needs a destination.
func New(opts Options) (*Router, error) {
	if opts.Table == nil {
		return nil, errors.Errorf("table is required")
	}
	if opts.Mover == nil {
		return nil, errors.Errorf("mover is required")
	}
	if opts.Gate == nil {
		return nil, errors.Errorf("gate is required")
	}
	if opts.Logger == nil {
		return nil, errors.Errorf("logger is required")
	}
	for _, pattern := range opts.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	r := &Router{
		table:        opts.Table,
		destinations: make(map[classify.Category]string),
		destDirs:     make(map[string]bool),
		ignore:       opts.IgnorePatterns,
		mover:        opts.Mover,
		gate:         opts.Gate,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
	}
	for _, c := range classify.Categories {
		dir, ok := opts.Destinations[c]
		if !ok || dir == "" {
			return nil, errors.Errorf("destination for %s is required", c)
		}
		dir = filepath.Clean(dir)
		r.destinations[c] = dir
		r.destDirs[dir] = true
	}
	return r, nil
}

// IsDestination reports whether dir is one of the destination directories
func (r *Router) IsDestination(dir string) bool {
	return r.destDirs[filepath.Clean(dir)]
}

// 🚚 RouteIfEligible moves path into its category directory when it is a
// fresh arrival in sourceDir. It makes at most one move attempt and logs at
// most one line.
func (r *Router) RouteIfEligible(ctx context.Context, path, sourceDir string) Outcome {
	category := r.table.ClassifyPath(path)
	outcome := r.route(ctx, path, sourceDir, category)
	r.metrics.ObserveRoute(category.String(), outcome.String())
	zerolog.Ctx(ctx).Debug().
		Str("path", path).
		Str("category", category.String()).
		Str("outcome", outcome.String()).
		Msg("route decision")
	return outcome
}

func (r *Router) route(ctx context.Context, path, sourceDir string, category classify.Category) Outcome {
	if !r.gate.Enabled() {
		return OutcomeSuppressed
	}

	parent := filepath.Dir(path)
	if r.IsDestination(parent) {
		r.logger.Log(ctx, log.Event{
			Kind:    log.EventSkipped,
			Path:    path,
			Message: "Skipped '" + filepath.Base(path) + "', already sorted",
		})
		return OutcomeAlreadySorted
	}

	if parent != filepath.Clean(sourceDir) {
		return OutcomeOutOfScope
	}

	if r.ignored(ctx, path) {
		r.logger.Log(ctx, log.Event{
			Kind:    log.EventSkipped,
			Path:    path,
			Message: "Ignored '" + filepath.Base(path) + "'",
		})
		return OutcomeIgnored
	}

	if category == classify.Unsupported {
		r.logger.Log(ctx, log.Event{Kind: log.EventUnsupported, Path: path})
		return OutcomeUnsupported
	}

	if _, err := r.mover.MoveFile(ctx, path, r.destinations[category]); err != nil {
		return OutcomeFailed
	}
	return OutcomeMoved
}

// 🔍 ignored checks the file name against the ignore patterns
func (r *Router) ignored(ctx context.Context, path string) bool {
	name := filepath.Base(path)
	for _, pattern := range r.ignore {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Str("path", path).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			return true
		}
	}
	return false
}
