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
	"fmt"
	"os"

	"gitlab.com/tozd/go/errors"
)

// 🚦 Kind is the failure category of a file operation
type Kind int

const (
	KindIO Kind = iota
	KindNotFound
	KindDestinationConflict
	KindAlreadyExists
	KindPermissionDenied
)

// Sentinel errors, one per Kind, usable with errors.Is
var (
	ErrIO                  = errors.Base("io error")
	ErrNotFound            = errors.Base("not found")
	ErrDestinationConflict = errors.Base("destination exists")
	ErrAlreadyExists       = errors.Base("already exists")
	ErrPermissionDenied    = errors.Base("permission denied")
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindDestinationConflict:
		return "DestinationConflict"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindPermissionDenied:
		return "PermissionDenied"
	default:
		return "IOError"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindDestinationConflict:
		return ErrDestinationConflict
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindPermissionDenied:
		return ErrPermissionDenied
	default:
		return ErrIO
	}
}

// ❌ Error is returned by every failing Engine call
type Error struct {
	Op   string // move, copy, delete, list, mkdir
	Path string // path the operation was applied to
	Kind Kind
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind.sentinel().Error())
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Op, e.Path, e.Kind.sentinel().Error(), e.Err.Error())
}

// Is matches the sentinel of the error's kind
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the kind of err, KindIO for errors not produced by this package
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindIO
}

func newError(op, path string, kind Kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

// statKind maps an os error to NotFound / PermissionDenied / IOError
func statKind(err error) Kind {
	switch {
	case os.IsNotExist(err):
		return KindNotFound
	case os.IsPermission(err):
		return KindPermissionDenied
	default:
		return KindIO
	}
}
