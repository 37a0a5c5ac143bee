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

package main

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"
)

// 🏷️ versionInfo describes the running binary
type versionInfo struct {
	Module   string `json:"module"`
	Version  string `json:"version"`
	Revision string `json:"revision,omitempty"`
	Dirty    bool   `json:"dirty,omitempty"`
	Go       string `json:"go"`
	Platform string `json:"platform"`
	Watcher  string `json:"watcher"`
}

// readVersion collects build settings; fields stay at their defaults under go run
func readVersion() versionInfo {
	v := versionInfo{
		Module:   "github.com/walteh/sortrc",
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Watcher:  "fsnotify",
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	if bi.Main.Path != "" {
		v.Module = bi.Main.Path
	}
	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		v.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.Revision = s.Value
		case "vcs.modified":
			v.Dirty = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		if dep.Path == "github.com/fsnotify/fsnotify" {
			v.Watcher = "fsnotify " + dep.Version
		}
	}
	return v
}

// String renders a one-line summary like "sortrc v1.2.0 (1a2b3c4, dirty) go1.23.5 linux/amd64"
func (v versionInfo) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "sortrc %s", v.Version)

	var meta []string
	if v.Revision != "" {
		rev := v.Revision
		if len(rev) > 7 {
			rev = rev[:7]
		}
		meta = append(meta, rev)
	}
	if v.Dirty {
		meta = append(meta, "dirty")
	}
	if len(meta) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(meta, ", "))
	}

	fmt.Fprintf(&b, " %s %s, watcher: %s", v.Go, v.Platform, v.Watcher)
	return b.String()
}

// newVersionCmd creates a new version command
func newVersionCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := readVersion()
			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
				return nil
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "\t")
			return enc.Encode(v)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	return cmd
}
