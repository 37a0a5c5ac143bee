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

//go:build linux

package fileops

import (
	"os"

	"gitlab.com/tozd/go/errors"
	"golang.org/x/sys/unix"
)

// renameNoReplace renames src to dest and fails with EEXIST instead of
// replacing an existing dest
func renameNoReplace(src, dest string) error {
	err := unix.Renameat2(unix.AT_FDCWD, src, unix.AT_FDCWD, dest, unix.RENAME_NOREPLACE)
	if errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EINVAL) {
		// kernel or filesystem without RENAME_NOREPLACE
		return linkRename(src, dest)
	}
	if err != nil {
		return &os.LinkError{Op: "renameat2", Old: src, New: dest, Err: err}
	}
	return nil
}
