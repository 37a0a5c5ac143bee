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

// Package classify maps file extensions to sort categories.
package classify

import (
	"path/filepath"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// 🏷️ Category is the bucket a file is sorted into
type Category int

const (
	Unsupported Category = iota
	Image
	Video
	Audio
	Document
)

// Categories lists every routable category in a stable order
var Categories = []Category{Image, Video, Audio, Document}

// String returns the lower-case label of the category
func (c Category) String() string {
	switch c {
	case Image:
		return "image"
	case Video:
		return "video"
	case Audio:
		return "audio"
	case Document:
		return "document"
	default:
		return "unsupported"
	}
}

// 🔍 ParseCategory parses a category label
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return Unsupported, errors.Errorf("unknown category %q", s)
}

// DefaultExtensions is the built-in extension list for each category
var DefaultExtensions = map[Category][]string{
	Image:    {".jpg", ".jpeg", ".png", ".gif", ".webp"},
	Video:    {".webm", ".mpg", ".mp4", ".avi", ".mkv"},
	Audio:    {".m4a", ".mp3", ".wav"},
	Document: {".doc", ".pdf", ".xls", ".ppt", ".txt"},
}

// 📚 Table maps normalized extensions to categories
type Table struct {
	byExt map[string]Category
}

// 🏭 NewTable builds a table from per-category extension lists.
// Categories missing from overrides keep their default extensions.
func NewTable(overrides map[Category][]string) (*Table, error) {
	t := &Table{byExt: make(map[string]Category)}
	for _, c := range Categories {
		exts, ok := overrides[c]
		if !ok {
			exts = DefaultExtensions[c]
		}
		for _, ext := range exts {
			norm := Normalize(ext)
			if norm == "" {
				return nil, errors.Errorf("empty extension in %s list", c)
			}
			if prev, dup := t.byExt[norm]; dup && prev != c {
				return nil, errors.Errorf("extension %s listed under both %s and %s", norm, prev, c)
			}
			t.byExt[norm] = c
		}
	}
	return t, nil
}

// DefaultTable returns the table built from DefaultExtensions
func DefaultTable() *Table {
	t, err := NewTable(nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize lower-cases an extension and ensures a leading dot
func Normalize(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" || ext == "." {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// 🎯 Classify returns the category for an extension, Unsupported if unknown
func (t *Table) Classify(ext string) Category {
	c, ok := t.byExt[Normalize(ext)]
	if !ok {
		return Unsupported
	}
	return c
}

// ClassifyPath classifies a file by the extension of its name
func (t *Table) ClassifyPath(path string) Category {
	return t.Classify(filepath.Ext(path))
}

// Extensions returns the sorted extensions mapped to a category
func (t *Table) Extensions(c Category) []string {
	var out []string
	for ext, cat := range t.byExt {
		if cat == c {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}
