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

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/walteh/sortrc/pkg/classify"
	"gitlab.com/tozd/go/errors"
)

// DefaultDestinations are the folder names used under the source root when a
// category has no configured destination
var DefaultDestinations = map[classify.Category]string{
	classify.Image:    "image",
	classify.Video:    "video",
	classify.Audio:    "music",
	classify.Document: "document",
}

// 📚 Config represents the complete configuration
type Config struct {
	// Source is the directory watched and swept
	Source string `json:"source" yaml:"source"`
	// Destinations maps a category to its folder, relative paths are under Source
	Destinations map[string]string `json:"destinations,omitempty" yaml:"destinations,omitempty"`
	// Categories replaces the extension list of a category
	Categories map[string][]string `json:"categories,omitempty" yaml:"categories,omitempty"`
	// IgnorePatterns are doublestar globs for file names never auto-routed
	IgnorePatterns []string `json:"ignore_patterns,omitempty" yaml:"ignore_patterns,omitempty"`

	location string
}

// 🏭 Default returns a configuration for source with every default applied
func Default(source string) (*Config, error) {
	cfg := &Config{Source: source}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location returns the file the config was loaded from, if any
func (cfg *Config) Location() string {
	return cfg.location
}

// 🔍 Validate checks the configuration and normalizes paths
func (cfg *Config) Validate() error {
	if cfg.Source == "" && cfg.location != "" {
		cfg.Source = filepath.Dir(cfg.location)
	}
	if cfg.Source == "" {
		return errors.Errorf("source is required")
	}

	source, err := expandHome(cfg.Source)
	if err != nil {
		return err
	}
	if !filepath.IsAbs(source) && cfg.location != "" {
		source = filepath.Join(filepath.Dir(cfg.location), source)
	}
	source, err = filepath.Abs(source)
	if err != nil {
		return errors.Errorf("resolving source: %w", err)
	}
	cfg.Source = source

	for name := range cfg.Destinations {
		if _, err := classify.ParseCategory(name); err != nil {
			return errors.Errorf("destinations: %w", err)
		}
	}
	for _, pattern := range cfg.IgnorePatterns {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("ignore_patterns: invalid pattern %q", pattern)
		}
	}
	for name := range cfg.Categories {
		if _, err := classify.ParseCategory(name); err != nil {
			return errors.Errorf("categories: %w", err)
		}
	}
	if _, err := cfg.Table(); err != nil {
		return errors.Errorf("categories: %w", err)
	}

	return nil
}

// 🗺️ DestinationDirs returns the absolute destination folder of every category
func (cfg *Config) DestinationDirs() (map[classify.Category]string, error) {
	out := make(map[classify.Category]string, len(classify.Categories))
	for c, name := range DefaultDestinations {
		out[c] = filepath.Join(cfg.Source, name)
	}
	for name, dir := range cfg.Destinations {
		c, err := classify.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		dir, err = expandHome(dir)
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(cfg.Source, dir)
		}
		out[c] = filepath.Clean(dir)
	}
	return out, nil
}

// 📚 Table builds the classification table from the configured categories
func (cfg *Config) Table() (*classify.Table, error) {
	overrides := make(map[classify.Category][]string, len(cfg.Categories))
	for name, exts := range cfg.Categories {
		c, err := classify.ParseCategory(name)
		if err != nil {
			return nil, err
		}
		overrides[c] = exts
	}
	return classify.NewTable(overrides)
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	dests, err := cfg.DestinationDirs()
	if err != nil {
		return cfg.Source
	}
	parts := make([]string, 0, len(dests))
	for _, c := range classify.Categories {
		parts = append(parts, fmt.Sprintf("%s=%s", c, dests[c]))
	}
	sort.Strings(parts)
	return fmt.Sprintf("%s -> [%s]", cfg.Source, strings.Join(parts, " "))
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Errorf("expanding ~: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
