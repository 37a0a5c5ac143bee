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

package fileops

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/metrics"
	"gitlab.com/tozd/go/errors"
)

// StaleFunc is told which directories a successful mutation touched
type StaleFunc func(ctx context.Context, dirs ...string)

// 🔧 Options configures an Engine
type Options struct {
	// Logger receives one event per operation
	Logger *log.Logger
	// Metrics counts operations, may be nil
	Metrics *metrics.Metrics
}

// 💾 Engine performs blocking file operations and reports each outcome once.
// Calls are not cancellable and carry no timeout.
type Engine struct {
	logger  *log.Logger
	metrics *metrics.Metrics

	mu    sync.RWMutex
	stale StaleFunc
}

// 🏭 New creates a new engine
func New(opts Options) (*Engine, error) {
	if opts.Logger == nil {
		return nil, errors.Errorf("logger is required")
	}
	return &Engine{
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}, nil
}

// OnStale sets the hook called after a mutation invalidates directory listings
func (e *Engine) OnStale(fn StaleFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stale = fn
}

func (e *Engine) markStale(ctx context.Context, dirs ...string) {
	e.mu.RLock()
	fn := e.stale
	e.mu.RUnlock()
	if fn != nil {
		fn(ctx, dirs...)
	}
}

// 📝 report logs the single event for an operation and counts it
func (e *Engine) report(ctx context.Context, op string, ok log.Event, err error) {
	e.metrics.ObserveOperation(op, err)
	if err == nil {
		e.logger.Log(ctx, ok)
		return
	}

	ev := log.Event{Kind: log.EventError, Path: ok.Path, Dest: ok.Dest, Err: err}
	switch KindOf(err) {
	case KindDestinationConflict, KindAlreadyExists:
		ev.Kind = log.EventConflict
		if ok.Kind == log.EventCreated {
			ev.Message = fmt.Sprintf("Folder already exists: %s", filepath.Base(ok.Path))
		}
	case KindNotFound:
		ev.Message = fmt.Sprintf("File not found: %s", filepath.Base(ok.Path))
	default:
		ev.Message = fmt.Sprintf("Error during %s of '%s': %v", op, filepath.Base(ok.Path), err)
	}
	e.logger.Log(ctx, ev)
}

// 🚚 MoveFile moves src into destDir keeping its name. An existing entry with
// the same name fails with DestinationConflict and nothing is changed.
func (e *Engine) MoveFile(ctx context.Context, src, destDir string) (string, error) {
	dest := filepath.Join(destDir, filepath.Base(src))
	err := move(src, dest)
	e.report(ctx, "move", log.Event{Kind: log.EventMoved, Path: src, Dest: destDir}, err)
	if err != nil {
		return "", err
	}
	zerolog.Ctx(ctx).Debug().Str("src", src).Str("dest", dest).Msg("moved file")
	e.markStale(ctx, filepath.Dir(src), destDir)
	return dest, nil
}

func move(src, dest string) error {
	if _, err := os.Lstat(src); err != nil {
		return newError("move", src, KindIO, err)
	}
	if err := checkFree("move", dest); err != nil {
		return err
	}
	// dest can still appear after checkFree; the rename itself refuses to replace it
	if err := renameNoReplace(src, dest); err != nil {
		return renameError(src, dest, err)
	}
	return nil
}

// renameError classifies a failed rename, an existing dest is a conflict
func renameError(src, dest string, err error) *Error {
	if os.IsExist(err) {
		return newError("move", dest, KindDestinationConflict, err)
	}
	return newError("move", src, KindIO, err)
}

// linkRename moves src by hard-linking it to dest, which fails when dest
// exists, and then unlinking src. Directories cannot be linked and fall back
// to a checked rename.
func linkRename(src, dest string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		if _, err := os.Lstat(dest); err == nil {
			return &os.LinkError{Op: "rename", Old: src, New: dest, Err: fs.ErrExist}
		}
		return os.Rename(src, dest)
	}
	if err := os.Link(src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

// 📋 CopyFile copies src into destDir keeping its name, content, mode and
// modification time. Conflicts behave as for MoveFile.
func (e *Engine) CopyFile(ctx context.Context, src, destDir string) (string, error) {
	dest := filepath.Join(destDir, filepath.Base(src))
	err := copyFile(src, dest)
	e.report(ctx, "copy", log.Event{Kind: log.EventCopied, Path: src, Dest: destDir}, err)
	if err != nil {
		return "", err
	}
	e.markStale(ctx, destDir)
	return dest, nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return newError("copy", src, KindIO, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return newError("copy", src, KindIO, err)
	}
	if !info.Mode().IsRegular() {
		return newError("copy", src, KindIO, errors.Errorf("not a regular file"))
	}
	if err := checkFree("copy", dest); err != nil {
		return err
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		if os.IsExist(err) {
			return newError("copy", dest, KindDestinationConflict, err)
		}
		return newError("copy", dest, KindIO, err)
	}
	defer func() {
		if err != nil {
			os.Remove(dest)
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return newError("copy", src, KindIO, err)
	}
	if err := out.Close(); err != nil {
		return newError("copy", dest, KindIO, err)
	}
	if err := os.Chtimes(dest, info.ModTime(), info.ModTime()); err != nil {
		return newError("copy", dest, KindIO, err)
	}
	return nil
}

// checkFree fails with DestinationConflict if dest exists
func checkFree(op, dest string) error {
	_, err := os.Lstat(dest)
	if err == nil {
		return newError(op, dest, KindDestinationConflict, nil)
	}
	if !os.IsNotExist(err) {
		return newError(op, dest, KindIO, err)
	}
	return nil
}

// 🗑️ DeleteFile removes a file or an empty folder. Confirmation is the caller's job.
func (e *Engine) DeleteFile(ctx context.Context, path string) error {
	err := remove(path)
	e.report(ctx, "delete", log.Event{Kind: log.EventDeleted, Path: path}, err)
	if err != nil {
		return err
	}
	e.markStale(ctx, filepath.Dir(path))
	return nil
}

func remove(path string) error {
	if _, err := os.Lstat(path); err != nil {
		return newError("delete", path, statKind(err), err)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return newError("delete", path, KindNotFound, err)
		}
		return newError("delete", path, KindIO, err)
	}
	return nil
}

// 📁 CreateFolder creates parent/name. An existing entry fails with AlreadyExists.
func (e *Engine) CreateFolder(ctx context.Context, parent, name string) (string, error) {
	path := filepath.Join(parent, name)
	err := mkdir(parent, name)
	e.report(ctx, "mkdir", log.Event{Kind: log.EventCreated, Path: path}, err)
	if err != nil {
		return "", err
	}
	e.markStale(ctx, parent)
	return path, nil
}

func mkdir(parent, name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return newError("mkdir", name, KindIO, errors.Errorf("invalid folder name %q", name))
	}
	path := filepath.Join(parent, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		if os.IsExist(err) {
			return newError("mkdir", path, KindAlreadyExists, err)
		}
		return newError("mkdir", path, statKind(err), err)
	}
	return nil
}

// 🏗️ EnsureDirs creates every directory that does not exist yet
func (e *Engine) EnsureDirs(ctx context.Context, dirs ...string) error {
	for _, dir := range dirs {
		if info, err := os.Stat(dir); err == nil {
			if !info.IsDir() {
				return newError("mkdir", dir, KindAlreadyExists, errors.Errorf("not a directory"))
			}
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			e.metrics.ObserveOperation("mkdir", err)
			return newError("mkdir", dir, statKind(err), err)
		}
		e.metrics.ObserveOperation("mkdir", nil)
		e.logger.Log(ctx, log.Event{Kind: log.EventCreated, Path: dir})
	}
	return nil
}
