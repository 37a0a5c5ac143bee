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

// Package session owns the state a front end works against: the current
// directory, the clipboard and the auto-route gate.
package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/walteh/sortrc/pkg/fileops"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/metrics"
	"github.com/walteh/sortrc/pkg/opener"
	"github.com/walteh/sortrc/pkg/route"
	"gitlab.com/tozd/go/errors"
)

// ✂️ Action is what a paste does with the clipboard entry
type Action int

const (
	ActionCut Action = iota
	ActionCopy
)

func (a Action) String() string {
	if a == ActionCopy {
		return "copy"
	}
	return "cut"
}

// ClipboardEntry is the single pending cut or copy
type ClipboardEntry struct {
	Path   string
	Action Action
}

// FileOps is the part of the file operations engine a session drives
type FileOps interface {
	MoveFile(ctx context.Context, src, destDir string) (string, error)
	CopyFile(ctx context.Context, src, destDir string) (string, error)
	DeleteFile(ctx context.Context, path string) error
	ListDirectory(ctx context.Context, dir string) ([]fileops.FileEntry, error)
	CreateFolder(ctx context.Context, parent, name string) (string, error)
	OnStale(fn fileops.StaleFunc)
}

// Router routes a single file found in the source directory
type Router interface {
	RouteIfEligible(ctx context.Context, path, sourceDir string) route.Outcome
}

// Binder keeps a directory watcher scoped to the current directory
type Binder interface {
	Start(ctx context.Context, dir string) error
	Rebind(ctx context.Context, dir string) error
	Stop() error
}

// 🔧 Options configures a Session
type Options struct {
	Dir     string
	Gate    *Gate
	Engine  FileOps
	Router  Router
	Watcher Binder        // optional
	Opener  opener.Opener // optional
	Logger  *log.Logger
	Metrics *metrics.Metrics
}

// 🧠 Session serializes every manual operation and every sweep on one
// lock. Fields are read under a second short lock that is never held
// across filesystem calls.
type Session struct {
	opMu sync.Mutex

	mu        sync.RWMutex
	dir       string
	clipboard *ClipboardEntry
	listeners []func([]fileops.FileEntry)
	started   bool

	gate    *Gate
	engine  FileOps
	router  Router
	watcher Binder
	opener  opener.Opener
	logger  *log.Logger
	metrics *metrics.Metrics
}

// 🏭 New creates a session rooted at opts.Dir, which must be a directory
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Engine == nil {
		return nil, errors.Errorf("engine is required")
	}
	if opts.Router == nil {
		return nil, errors.Errorf("router is required")
	}
	if opts.Gate == nil {
		return nil, errors.Errorf("gate is required")
	}
	if opts.Logger == nil {
		return nil, errors.Errorf("logger is required")
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, errors.Errorf("resolving source directory: %w", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("reading source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("source %s is not a directory", dir)
	}

	s := &Session{
		dir:     dir,
		gate:    opts.Gate,
		engine:  opts.Engine,
		router:  opts.Router,
		watcher: opts.Watcher,
		opener:  opts.Opener,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	s.engine.OnStale(s.onStale)
	return s, nil
}

// ▶️ Start binds the watcher to the current directory and publishes the first listing
func (s *Session) Start(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.watcher != nil {
		if err := s.watcher.Start(ctx, s.Dir()); err != nil {
			return errors.Errorf("starting watcher: %w", err)
		}
	}
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.refresh(ctx)
	return nil
}

// ⏹️ Close stops the watcher and drops the clipboard and listeners
func (s *Session) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	started := s.started
	s.started = false
	s.clipboard = nil
	s.listeners = nil
	s.mu.Unlock()

	if started && s.watcher != nil {
		if err := s.watcher.Stop(); err != nil {
			return errors.Errorf("stopping watcher: %w", err)
		}
	}
	return nil
}

// Dir returns the current source directory
func (s *Session) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// Gate returns the session's auto-route gate
func (s *Session) Gate() *Gate {
	return s.gate
}

// 📡 OnListingChanged registers fn to receive the new listing after every
// mutation that touches the current directory
func (s *Session) OnListingChanged(fn func([]fileops.FileEntry)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// 📂 List returns a fresh listing of the current directory
func (s *Session) List(ctx context.Context) ([]fileops.FileEntry, error) {
	return s.engine.ListDirectory(ctx, s.Dir())
}

// refresh lists the current directory and notifies listeners
func (s *Session) refresh(ctx context.Context) {
	entries, err := s.engine.ListDirectory(ctx, s.Dir())
	if err != nil {
		return
	}
	s.publish(entries)
}

func (s *Session) publish(entries []fileops.FileEntry) {
	s.mu.RLock()
	listeners := append([]func([]fileops.FileEntry){}, s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(entries)
	}
}

// onStale refreshes the listing when a mutation touched the current directory
func (s *Session) onStale(ctx context.Context, dirs ...string) {
	current := s.Dir()
	for _, d := range dirs {
		if filepath.Clean(d) == current {
			s.refresh(ctx)
			return
		}
	}
}

// resolve makes path absolute relative to the current directory
func (s *Session) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.Errorf("path is required")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return filepath.Join(s.Dir(), path), nil
}

// 📁 NavigateInto makes path (absolute or relative to the current directory)
// the current directory and rescopes the watcher
func (s *Session) NavigateInto(ctx context.Context, path string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	target, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(target)
	if err != nil {
		ferr := &fileops.Error{Op: "navigate", Path: target, Kind: fileops.KindNotFound, Err: err}
		if os.IsPermission(err) {
			ferr.Kind = fileops.KindPermissionDenied
		}
		s.logger.Log(ctx, log.Event{Kind: log.EventError, Path: target, Err: ferr, Message: fmt.Sprintf("Cannot open folder: %s", filepath.Base(target))})
		return ferr
	}
	if !info.IsDir() {
		ferr := &fileops.Error{Op: "navigate", Path: target, Kind: fileops.KindIO, Err: errors.Errorf("not a directory")}
		s.logger.Log(ctx, log.Event{Kind: log.EventError, Path: target, Err: ferr, Message: fmt.Sprintf("Not a folder: %s", filepath.Base(target))})
		return ferr
	}

	if err := s.moveTo(ctx, target); err != nil {
		return err
	}
	s.logger.Log(ctx, log.Event{Kind: log.EventNavigated, Path: target, Message: fmt.Sprintf("Opened folder: %s", filepath.Base(target))})
	s.refresh(ctx)
	return nil
}

// ⬆️ NavigateBack moves to the parent directory. At a root, or when the
// parent is not accessible, it logs a no-op and changes nothing.
func (s *Session) NavigateBack(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	current := s.Dir()
	parent := filepath.Dir(current)
	if parent == current {
		s.logger.Infof(ctx, "Already at root %s, no-op", current)
		return nil
	}
	if info, err := os.Stat(parent); err != nil || !info.IsDir() {
		s.logger.Infof(ctx, "Parent of %s is not accessible, no-op", current)
		return nil
	}

	if err := s.moveTo(ctx, parent); err != nil {
		return err
	}
	s.logger.Log(ctx, log.Event{Kind: log.EventNavigated, Path: parent, Message: fmt.Sprintf("Returned to folder: %s", parent)})
	s.refresh(ctx)
	return nil
}

// moveTo switches the current directory, rebinding the watcher first so a
// failed rebind leaves the old directory watched
func (s *Session) moveTo(ctx context.Context, dir string) error {
	s.mu.RLock()
	started := s.started
	old := s.dir
	s.mu.RUnlock()

	if started && s.watcher != nil {
		if err := s.watcher.Rebind(ctx, dir); err != nil {
			s.logger.Errorf(ctx, err, "Cannot watch %s: %v", dir, err)
			if rerr := s.watcher.Rebind(ctx, old); rerr != nil {
				s.logger.Errorf(ctx, rerr, "Cannot watch %s again: %v", old, rerr)
			}
			return errors.Errorf("rebinding watcher: %w", err)
		}
	}

	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
	return nil
}

// ✂️ Cut puts path on the clipboard to be moved by the next paste
func (s *Session) Cut(ctx context.Context, path string) error {
	return s.setClipboard(ctx, path, ActionCut)
}

// 📋 Copy puts path on the clipboard to be copied by the next paste
func (s *Session) Copy(ctx context.Context, path string) error {
	return s.setClipboard(ctx, path, ActionCopy)
}

func (s *Session) setClipboard(ctx context.Context, path string, action Action) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.clipboard = &ClipboardEntry{Path: abs, Action: action}
	s.mu.Unlock()

	verb := "Cut"
	if action == ActionCopy {
		verb = "Copied"
	}
	s.logger.Log(ctx, log.Event{Kind: log.EventInfo, Path: abs, Message: fmt.Sprintf("%s selected: %s", verb, filepath.Base(abs))})
	return nil
}

// Clipboard returns the pending entry, if any
func (s *Session) Clipboard() (ClipboardEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.clipboard == nil {
		return ClipboardEntry{}, false
	}
	return *s.clipboard, true
}

// 📥 Paste moves or copies the clipboard entry into targetDir (the current
// directory when empty). Auto-routing is off for the duration. The clipboard
// is cleared only when the paste succeeds.
func (s *Session) Paste(ctx context.Context, targetDir string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	entry, ok := s.Clipboard()
	if !ok {
		s.logger.Info(ctx, "Nothing to paste")
		return nil
	}

	target := s.Dir()
	if targetDir != "" {
		var err error
		if target, err = s.resolve(targetDir); err != nil {
			return err
		}
	}

	release := s.gate.Hold()
	defer release()

	var err error
	switch entry.Action {
	case ActionCopy:
		_, err = s.engine.CopyFile(ctx, entry.Path, target)
	default:
		_, err = s.engine.MoveFile(ctx, entry.Path, target)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.clipboard != nil && *s.clipboard == entry {
		s.clipboard = nil
	}
	s.mu.Unlock()
	return nil
}

// 🗑️ Delete removes path. The caller is responsible for asking first.
func (s *Session) Delete(ctx context.Context, path string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := s.engine.DeleteFile(ctx, abs); err != nil {
		return err
	}

	s.mu.Lock()
	if s.clipboard != nil && s.clipboard.Path == abs {
		s.clipboard = nil
	}
	s.mu.Unlock()
	return nil
}

// 📁 CreateFolder creates name under the current directory
func (s *Session) CreateFolder(ctx context.Context, name string) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.engine.CreateFolder(ctx, s.Dir(), name)
}

// 🖥️ Open navigates into folders and hands files to the default application
func (s *Session) Open(ctx context.Context, path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		ferr := &fileops.Error{Op: "open", Path: abs, Kind: fileops.KindNotFound, Err: err}
		msg := fmt.Sprintf("File not found: %s", filepath.Base(abs))
		if os.IsPermission(err) {
			ferr.Kind = fileops.KindPermissionDenied
			msg = fmt.Sprintf("Permission denied: %s", filepath.Base(abs))
		}
		s.logger.Log(ctx, log.Event{Kind: log.EventError, Path: abs, Err: ferr, Message: msg})
		return ferr
	}
	if info.IsDir() {
		return s.NavigateInto(ctx, abs)
	}
	if s.opener == nil {
		return errors.Errorf("no opener configured")
	}
	if err := s.opener.Open(ctx, abs); err != nil {
		s.logger.Errorf(ctx, err, "Error opening file: %v", err)
		return err
	}
	s.logger.Log(ctx, log.Event{Kind: log.EventInfo, Path: abs, Message: fmt.Sprintf("Opened file: %s", filepath.Base(abs))})
	return nil
}
