package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/log"
)

// 📄 EntryKind tells files and folders apart
type EntryKind int

const (
	KindFile EntryKind = iota
	KindFolder
)

func (k EntryKind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "file"
}

// FileEntry is one row of a directory listing
type FileEntry struct {
	Name string
	Path string
	Kind EntryKind
	Size int64 // -1 for folders
}

// IsDir reports whether the entry is a folder
func (f FileEntry) IsDir() bool {
	return f.Kind == KindFolder
}

// SizeString returns the size in bytes, or "-" for folders
func (f FileEntry) SizeString() string {
	if f.Kind == KindFolder {
		return "-"
	}
	return fmt.Sprintf("%d", f.Size)
}

// 📂 ListDirectory lists dir in enumeration order, reading sizes now.
// Entries that vanish while listing are left out.
func (e *Engine) ListDirectory(ctx context.Context, dir string) ([]FileEntry, error) {
	entries, err := readDir(dir)
	e.metrics.ObserveOperation("list", err)
	if err != nil {
		e.logger.Log(ctx, log.Event{
			Kind:    log.EventError,
			Path:    dir,
			Err:     err,
			Message: fmt.Sprintf("Cannot list '%s': %s", dir, KindOf(err)),
		})
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("entries", len(entries)).Msg("file list refreshed")
	return entries, nil
}

func readDir(dir string) ([]FileEntry, error) {
	f, err := os.Open(dir)
	if err != nil {
		return nil, newError("list", dir, statKind(err), err)
	}
	defer f.Close()

	// File.ReadDir keeps the order the filesystem returns, os.ReadDir would sort
	dirents, err := f.ReadDir(-1)
	if err != nil {
		return nil, newError("list", dir, statKind(err), err)
	}

	out := make([]FileEntry, 0, len(dirents))
	for _, d := range dirents {
		entry := FileEntry{
			Name: d.Name(),
			Path: filepath.Join(dir, d.Name()),
		}
		if d.IsDir() {
			entry.Kind = KindFolder
			entry.Size = -1
		} else {
			info, err := os.Stat(entry.Path)
			if err != nil {
				continue
			}
			if info.IsDir() {
				entry.Kind = KindFolder
				entry.Size = -1
			} else {
				entry.Size = info.Size()
			}
		}
		out = append(out, entry)
	}
	return out, nil
}
