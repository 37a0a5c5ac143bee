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

package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/fileops"
	"github.com/walteh/sortrc/pkg/log"
	"github.com/walteh/sortrc/pkg/metrics"
	"github.com/walteh/sortrc/pkg/opener"
	"github.com/walteh/sortrc/pkg/route"
	"github.com/walteh/sortrc/pkg/watcher"
	"gitlab.com/tozd/go/errors"
)

type fixture struct {
	ctx     context.Context
	root    string
	dests   map[classify.Category]string
	logger  *log.Logger
	engine  *fileops.Engine
	session *Session
	binder  *fakeBinder
}

type fakeBinder struct {
	mu      sync.Mutex
	calls   []string
	failDir string
}

func (f *fakeBinder) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBinder) Start(ctx context.Context, dir string) error {
	f.record("start " + dir)
	return nil
}

func (f *fakeBinder) Rebind(ctx context.Context, dir string) error {
	if dir == f.failDir {
		return errors.New("cannot watch")
	}
	f.record("rebind " + dir)
	return nil
}

func (f *fakeBinder) Stop() error {
	f.record("stop")
	return nil
}

func (f *fakeBinder) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// blockingOps wraps the engine so a paste can be held mid-flight
type blockingOps struct {
	*fileops.Engine
	entered chan struct{}
	release chan struct{}
}

func (b *blockingOps) CopyFile(ctx context.Context, src, destDir string) (string, error) {
	close(b.entered)
	<-b.release
	return b.Engine.CopyFile(ctx, src, destDir)
}

// blockingList holds the next ListDirectory call once armed
type blockingList struct {
	*fileops.Engine
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (b *blockingList) ListDirectory(ctx context.Context, dir string) ([]fileops.FileEntry, error) {
	if b.armed.CompareAndSwap(true, false) {
		close(b.entered)
		<-b.release
	}
	return b.Engine.ListDirectory(ctx, dir)
}

func newFixture(t *testing.T, wrap func(*fileops.Engine) FileOps) *fixture {
	t.Helper()
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	root := t.TempDir()
	logger := log.New(ctx, nil)
	m := metrics.New()

	engine, err := fileops.New(fileops.Options{Logger: logger, Metrics: m})
	require.NoError(t, err)

	dests := map[classify.Category]string{
		classify.Image:    filepath.Join(root, "image"),
		classify.Video:    filepath.Join(root, "video"),
		classify.Audio:    filepath.Join(root, "music"),
		classify.Document: filepath.Join(root, "document"),
	}
	for _, d := range dests {
		require.NoError(t, os.MkdirAll(d, 0o755))
	}

	gate := NewGate()
	router, err := route.New(route.Options{
		Table:        classify.DefaultTable(),
		Destinations: dests,
		Mover:        engine,
		Gate:         gate,
		Logger:       logger,
		Metrics:      m,
	})
	require.NoError(t, err)

	var ops FileOps = engine
	if wrap != nil {
		ops = wrap(engine)
	}
	binder := &fakeBinder{}
	s, err := New(ctx, Options{
		Dir:     root,
		Gate:    gate,
		Engine:  ops,
		Router:  router,
		Watcher: binder,
		Logger:  logger,
		Metrics: m,
	})
	require.NoError(t, err)
	require.NoError(t, s.Start(ctx))
	t.Cleanup(func() { s.Close() })

	return &fixture{ctx: ctx, root: root, dests: dests, logger: logger, engine: engine, session: s, binder: binder}
}

func (f *fixture) write(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) countEvents(kind log.EventKind) int {
	n := 0
	for _, ev := range f.logger.Events() {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

func readString(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestNewValidation(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Options{})
	require.Error(t, err)

	engine, err := fileops.New(fileops.Options{Logger: log.New(ctx, nil)})
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err = New(ctx, Options{
		Dir:    file,
		Gate:   NewGate(),
		Engine: engine,
		Router: routerFunc(nil),
		Logger: log.New(ctx, nil),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

type routerFunc func(ctx context.Context, path, sourceDir string) route.Outcome

func (f routerFunc) RouteIfEligible(ctx context.Context, path, sourceDir string) route.Outcome {
	return f(ctx, path, sourceDir)
}

func TestSweepRoutesPhoto(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "photo.JPG", "pixels")

	res := f.session.Sweep(f.ctx)
	assert.False(t, res.Suppressed)
	assert.Equal(t, 1, res.Moved(), "first sweep should move the photo")
	assert.NotEmpty(t, res.ID)
	assert.FileExists(t, filepath.Join(f.dests[classify.Image], "photo.JPG"))
	assert.NoFileExists(t, filepath.Join(f.root, "photo.JPG"))

	res = f.session.Sweep(f.ctx)
	assert.Equal(t, 0, res.Moved(), "second sweep should move nothing")
}

func TestSweepRoutesEveryFileOnEachPass(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "a.mp3", "a")
	f.write(t, "b.pdf", "b")
	f.write(t, "c.exe", "c")
	f.write(t, "nested/d.jpg", "d")

	res := f.session.Sweep(f.ctx)
	assert.Equal(t, 2, res.Moved())
	assert.Equal(t, 1, res.Outcomes[route.OutcomeUnsupported])
	assert.FileExists(t, filepath.Join(f.dests[classify.Audio], "a.mp3"))
	assert.FileExists(t, filepath.Join(f.dests[classify.Document], "b.pdf"))
	assert.FileExists(t, filepath.Join(f.root, "c.exe"), "unsupported files stay put")
	assert.FileExists(t, filepath.Join(f.root, "nested", "d.jpg"), "files in subfolders are not swept")
	assert.Equal(t, 1, f.countEvents(log.EventUnsupported))
}

func TestSweepInsideDestinationDoesNotReroute(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "clip.mp4", "frames")
	require.Equal(t, 1, f.session.Sweep(f.ctx).Moved())

	require.NoError(t, f.session.NavigateInto(f.ctx, "video"))
	res := f.session.Sweep(f.ctx)
	assert.Equal(t, 0, res.Moved())
	assert.Equal(t, 1, res.Outcomes[route.OutcomeAlreadySorted])
	assert.FileExists(t, filepath.Join(f.dests[classify.Video], "clip.mp4"))
}

func TestPasteAfterCut(t *testing.T) {
	f := newFixture(t, nil)
	src := f.write(t, "report.xyz", "quarterly numbers")
	target := filepath.Join(f.root, "archive")
	require.NoError(t, os.Mkdir(target, 0o755))

	require.NoError(t, f.session.Cut(f.ctx, "report.xyz"))
	require.NoError(t, f.session.Paste(f.ctx, target))

	assert.NoFileExists(t, src)
	assert.Equal(t, "quarterly numbers", readString(t, filepath.Join(target, "report.xyz")))
	_, ok := f.session.Clipboard()
	assert.False(t, ok, "clipboard should be cleared after a successful paste")
	assert.True(t, f.session.Gate().Enabled(), "gate should be released")
}

func TestPasteAfterCopy(t *testing.T) {
	f := newFixture(t, nil)
	src := f.write(t, "notes.xyz", "remember the milk")
	target := filepath.Join(f.root, "backup")
	require.NoError(t, os.Mkdir(target, 0o755))

	require.NoError(t, f.session.Copy(f.ctx, src))
	require.NoError(t, f.session.Paste(f.ctx, "backup"))

	assert.Equal(t, "remember the milk", readString(t, src))
	assert.Equal(t, "remember the milk", readString(t, filepath.Join(target, "notes.xyz")))
}

func TestPasteConflict(t *testing.T) {
	f := newFixture(t, nil)
	src := f.write(t, "dup.xyz", "original")
	existing := f.write(t, "other/dup.xyz", "already here")

	require.NoError(t, f.session.Cut(f.ctx, src))
	err := f.session.Paste(f.ctx, filepath.Dir(existing))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrDestinationConflict))

	assert.Equal(t, "original", readString(t, src), "source should be untouched")
	assert.Equal(t, "already here", readString(t, existing), "target should be untouched")
	assert.Equal(t, 1, f.countEvents(log.EventConflict), "exactly one conflict event")

	entry, ok := f.session.Clipboard()
	require.True(t, ok, "clipboard should survive a failed paste")
	assert.Equal(t, src, entry.Path)
	assert.True(t, f.session.Gate().Enabled(), "gate should be released after a failure")
}

func TestPasteNothing(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.session.Paste(f.ctx, ""))
	events := f.logger.Events()
	require.NotEmpty(t, events)
	assert.Equal(t, "Nothing to paste", events[len(events)-1].Message)
}

func TestLastCutWins(t *testing.T) {
	f := newFixture(t, nil)
	a := f.write(t, "a.xyz", "A")
	b := f.write(t, "b.xyz", "B")
	target := filepath.Join(f.root, "dest")
	require.NoError(t, os.Mkdir(target, 0o755))

	require.NoError(t, f.session.Cut(f.ctx, a))
	require.NoError(t, f.session.Cut(f.ctx, b))
	require.NoError(t, f.session.Paste(f.ctx, target))

	assert.FileExists(t, a, "first cut should be forgotten")
	assert.NoFileExists(t, b)
	assert.FileExists(t, filepath.Join(target, "b.xyz"))
	assert.NoFileExists(t, filepath.Join(target, "a.xyz"))

	require.NoError(t, f.session.Paste(f.ctx, target))
	assert.FileExists(t, a, "clipboard holds no history")
}

func TestSweepDuringPasteIsSuppressed(t *testing.T) {
	ops := &blockingOps{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, func(e *fileops.Engine) FileOps {
		ops.Engine = e
		return ops
	})
	src := f.write(t, "keep/photo.jpg", "pixels")
	waiting := f.write(t, "song.mp3", "tune")

	require.NoError(t, f.session.Copy(f.ctx, src))
	pasted := make(chan error, 1)
	go func() { pasted <- f.session.Paste(f.ctx, f.root) }()
	<-ops.entered

	res := f.session.Sweep(f.ctx)
	assert.True(t, res.Suppressed, "sweep should be suppressed during the paste")
	assert.Equal(t, 0, res.Moved())
	assert.FileExists(t, waiting, "nothing should be routed while the gate is held")

	close(ops.release)
	require.NoError(t, <-pasted)
	assert.True(t, f.session.Gate().Enabled())

	res = f.session.Sweep(f.ctx)
	assert.False(t, res.Suppressed)
	assert.Equal(t, 2, res.Moved(), "the next sweep routes normally")
}

func TestNavigationWaitsForRunningSweep(t *testing.T) {
	ops := &blockingList{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, func(e *fileops.Engine) FileOps {
		ops.Engine = e
		return ops
	})
	photo := f.write(t, "photo.jpg", "pixels")
	sub := filepath.Dir(f.write(t, "sub/notes.xyz", "x"))

	var mu sync.Mutex
	var lastListing []fileops.FileEntry
	f.session.OnListingChanged(func(entries []fileops.FileEntry) {
		mu.Lock()
		defer mu.Unlock()
		lastListing = entries
	})

	ops.armed.Store(true)
	swept := make(chan SweepResult, 1)
	go func() { swept <- f.session.Sweep(f.ctx) }()
	<-ops.entered

	navigated := make(chan error, 1)
	go func() { navigated <- f.session.NavigateInto(f.ctx, "sub") }()

	select {
	case err := <-navigated:
		t.Fatalf("navigation finished while a sweep was running (err=%v)", err)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, f.root, f.session.Dir(), "directory must not change under a running sweep")

	close(ops.release)
	res := <-swept
	assert.Equal(t, f.root, res.Dir)
	assert.Equal(t, 1, res.Moved())
	assert.NoFileExists(t, photo)

	require.NoError(t, <-navigated)
	assert.Equal(t, sub, f.session.Dir())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, lastListing)
	for _, e := range lastListing {
		assert.Equal(t, sub, filepath.Dir(e.Path), "last published listing must be the current directory")
	}
}

func TestSweepAfterNavigationUsesNewDirectory(t *testing.T) {
	f := newFixture(t, nil)
	left := f.write(t, "photo.jpg", "pixels")
	f.write(t, "sub/clip.mp4", "frames")

	require.NoError(t, f.session.NavigateInto(f.ctx, "sub"))
	res := f.session.Sweep(f.ctx)

	assert.Equal(t, filepath.Join(f.root, "sub"), res.Dir)
	assert.Equal(t, 1, res.Moved())
	assert.FileExists(t, left, "the folder left behind is no longer swept")
	assert.FileExists(t, filepath.Join(f.dests[classify.Video], "clip.mp4"))
}

func TestNavigateBackAtRoot(t *testing.T) {
	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	logger := log.New(ctx, nil)
	engine, err := fileops.New(fileops.Options{Logger: logger})
	require.NoError(t, err)
	root := filepath.VolumeName(t.TempDir()) + string(filepath.Separator)

	s, err := New(ctx, Options{
		Dir:    root,
		Gate:   NewGate(),
		Engine: engine,
		Router: routerFunc(func(context.Context, string, string) route.Outcome { return route.OutcomeOutOfScope }),
		Logger: logger,
	})
	require.NoError(t, err)

	require.NoError(t, s.NavigateBack(ctx))
	assert.Equal(t, root, s.Dir(), "directory should not change")
	events := logger.Events()
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "no-op")
}

func TestNavigation(t *testing.T) {
	f := newFixture(t, nil)
	sub := filepath.Join(f.root, "projects")
	require.NoError(t, os.Mkdir(sub, 0o755))
	f.write(t, "projects/plan.txt", "x")

	var listings [][]fileops.FileEntry
	f.session.OnListingChanged(func(entries []fileops.FileEntry) {
		listings = append(listings, entries)
	})

	require.NoError(t, f.session.NavigateInto(f.ctx, "projects"))
	assert.Equal(t, sub, f.session.Dir())
	require.NotEmpty(t, listings, "navigation should publish a listing")
	last := listings[len(listings)-1]
	require.Len(t, last, 1)
	assert.Equal(t, "plan.txt", last[0].Name)

	require.NoError(t, f.session.NavigateBack(f.ctx))
	assert.Equal(t, f.root, f.session.Dir())

	assert.Equal(t, []string{"start " + f.root, "rebind " + sub, "rebind " + f.root}, f.binder.Calls())
}

func TestNavigateIntoErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "file.txt", "x")

	err := f.session.NavigateInto(f.ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrNotFound))

	err = f.session.NavigateInto(f.ctx, "file.txt")
	require.Error(t, err)
	assert.Equal(t, f.root, f.session.Dir())

	sub := filepath.Join(f.root, "unwatchable")
	require.NoError(t, os.Mkdir(sub, 0o755))
	f.binder.failDir = sub
	err = f.session.NavigateInto(f.ctx, "unwatchable")
	require.Error(t, err, "a failed rebind should fail navigation")
	assert.Equal(t, f.root, f.session.Dir(), "directory should not change when the watcher cannot follow")
}

func TestCreateFolderAndDelete(t *testing.T) {
	f := newFixture(t, nil)

	refreshed := 0
	f.session.OnListingChanged(func([]fileops.FileEntry) { refreshed++ })

	path, err := f.session.CreateFolder(f.ctx, "new")
	require.NoError(t, err)
	assert.DirExists(t, path)
	assert.Equal(t, 1, refreshed, "creating a folder should refresh the listing")

	_, err = f.session.CreateFolder(f.ctx, "new")
	assert.True(t, errors.Is(err, fileops.ErrAlreadyExists))

	file := f.write(t, "gone.xyz", "x")
	require.NoError(t, f.session.Cut(f.ctx, file))
	require.NoError(t, f.session.Delete(f.ctx, "gone.xyz"))
	assert.NoFileExists(t, file)
	_, ok := f.session.Clipboard()
	assert.False(t, ok, "deleting the clipboard source clears the clipboard")

	err = f.session.Delete(f.ctx, "gone.xyz")
	assert.True(t, errors.Is(err, fileops.ErrNotFound))
}

func TestOpen(t *testing.T) {
	f := newFixture(t, nil)
	var opened []string
	f.session.opener = opener.Func(func(ctx context.Context, path string) error {
		opened = append(opened, path)
		return nil
	})
	file := f.write(t, "readme.xyz", "x")
	require.NoError(t, os.Mkdir(filepath.Join(f.root, "docs"), 0o755))

	require.NoError(t, f.session.Open(f.ctx, "readme.xyz"))
	assert.Equal(t, []string{file}, opened)

	require.NoError(t, f.session.Open(f.ctx, "docs"))
	assert.Equal(t, filepath.Join(f.root, "docs"), f.session.Dir(), "opening a folder navigates into it")

	err := f.session.Open(f.ctx, "nope.txt")
	assert.True(t, errors.Is(err, fileops.ErrNotFound))
}

func TestOpenPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	f := newFixture(t, nil)
	locked := filepath.Join(f.root, "locked")
	f.write(t, "locked/secret.txt", "x")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	err := f.session.Open(f.ctx, "locked/secret.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fileops.ErrPermissionDenied), "got %v", err)
	assert.Equal(t, fileops.KindPermissionDenied, fileops.KindOf(err))

	events := f.logger.Events()
	assert.Contains(t, events[len(events)-1].Message, "Permission denied")
}

func TestRunSweepsPerBatch(t *testing.T) {
	f := newFixture(t, nil)
	f.write(t, "movie.mkv", "frames")

	ctx, cancel := context.WithCancel(f.ctx)
	batches := make(chan watcher.Batch)
	done := make(chan error, 1)
	go func() { done <- f.session.Run(ctx, batches) }()

	batches <- watcher.Batch{Dir: f.root, Paths: []string{filepath.Join(f.root, "movie.mkv")}}

	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(f.dests[classify.Video], "movie.mkv"))
		return err == nil
	}, 2*time.Second, 10*time.Millisecond, "batch should trigger a sweep")

	cancel()
	require.NoError(t, <-done)
}

func TestClose(t *testing.T) {
	f := newFixture(t, nil)
	require.NoError(t, f.session.Cut(f.ctx, "x"))
	require.NoError(t, f.session.Close())
	_, ok := f.session.Clipboard()
	assert.False(t, ok)
	assert.Contains(t, f.binder.Calls(), "stop")
}
