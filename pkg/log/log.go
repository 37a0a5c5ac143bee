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

package log

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

// 🎨 EventKind classifies an operation outcome
type EventKind int

const (
	EventInfo EventKind = iota
	EventMoved
	EventCopied
	EventDeleted
	EventCreated
	EventNavigated
	EventSkipped
	EventUnsupported
	EventConflict
	EventError
)

// String returns the short label used in console output
func (k EventKind) String() string {
	switch k {
	case EventMoved:
		return "moved"
	case EventCopied:
		return "copied"
	case EventDeleted:
		return "deleted"
	case EventCreated:
		return "created"
	case EventNavigated:
		return "navigated"
	case EventSkipped:
		return "skipped"
	case EventUnsupported:
		return "unsupported"
	case EventConflict:
		return "conflict"
	case EventError:
		return "error"
	default:
		return "info"
	}
}

// 🎯 Event is one entry of the operation log
type Event struct {
	Seq     int       // Position in the log, starting at 1
	Time    time.Time // When the event was recorded
	Kind    EventKind // Outcome kind
	Path    string    // Subject path
	Dest    string    // Destination directory, if any
	Message string    // Human readable message
	Err     error     // Underlying error, if any
}

// String returns the message of the event
func (e Event) String() string {
	return e.Message
}

// 🎯 Logger keeps the ordered event log and writes it to the console and zerolog
type Logger struct {
	zlog        zerolog.Logger
	console     io.Writer
	mu          sync.Mutex
	events      []Event
	subscribers []func(Event)
}

// 🏭 New creates a new logger that writes to console and to the zerolog logger in ctx
func New(ctx context.Context, console io.Writer) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		zlog:    *zerolog.Ctx(ctx),
		console: console,
	}
}

// 📡 Subscribe registers fn to receive every future event in order.
// fn runs with the logger locked and must not log.
func (l *Logger) Subscribe(fn func(Event)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subscribers = append(l.subscribers, fn)
}

// 📜 Events returns a copy of every event logged so far
func (l *Logger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// 📝 Log records an event and returns it with its sequence number set
func (l *Logger) Log(ctx context.Context, ev Event) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	ev.Seq = len(l.events) + 1
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if ev.Message == "" {
		ev.Message = defaultMessage(ev)
	}
	l.events = append(l.events, ev)

	fmt.Fprintln(l.console, formatEvent(ev))

	zev := l.zlog.Info()
	switch ev.Kind {
	case EventError:
		zev = l.zlog.Error().Err(ev.Err)
	case EventConflict, EventUnsupported:
		zev = l.zlog.Warn()
	case EventSkipped:
		zev = l.zlog.Debug()
	}
	zev.Int("seq", ev.Seq).
		Str("kind", ev.Kind.String()).
		Str("path", ev.Path).
		Str("dest", ev.Dest).
		Msg(ev.Message)

	for _, fn := range l.subscribers {
		fn(ev)
	}
	return ev
}

// defaultMessage builds the message for events logged without one
func defaultMessage(ev Event) string {
	name := filepath.Base(ev.Path)
	switch ev.Kind {
	case EventMoved:
		return fmt.Sprintf("Moved '%s' to '%s'", name, ev.Dest)
	case EventCopied:
		return fmt.Sprintf("Copied '%s' to '%s'", name, ev.Dest)
	case EventDeleted:
		return fmt.Sprintf("Deleted file: %s", name)
	case EventCreated:
		return fmt.Sprintf("Created folder: %s", name)
	case EventNavigated:
		return fmt.Sprintf("Opened folder: %s", ev.Path)
	case EventSkipped:
		return fmt.Sprintf("Skipped '%s'", name)
	case EventUnsupported:
		return fmt.Sprintf("File type not supported for auto move: %s", name)
	case EventConflict:
		return fmt.Sprintf("'%s' already exists in '%s'", name, ev.Dest)
	case EventError:
		if ev.Err != nil {
			return fmt.Sprintf("Error on '%s': %v", name, ev.Err)
		}
		return fmt.Sprintf("Error on '%s'", name)
	default:
		return ev.Path
	}
}

// 📝 formatEvent formats an event for display
func formatEvent(ev Event) string {
	var symbol string
	var symbolColor color.Attribute
	switch ev.Kind {
	case EventMoved, EventCopied, EventCreated:
		symbol, symbolColor = "✓", color.FgGreen
	case EventDeleted:
		symbol, symbolColor = "✗", color.FgRed
	case EventNavigated:
		symbol, symbolColor = "→", color.FgCyan
	case EventSkipped, EventUnsupported:
		symbol, symbolColor = "-", color.FgYellow
	case EventConflict:
		symbol, symbolColor = "⚠", color.FgYellow
	case EventError:
		symbol, symbolColor = "❌", color.FgRed
	default:
		symbol, symbolColor = "•", color.FgBlue
	}
	return fmt.Sprintf("%s %s", color.New(symbolColor).Sprint(symbol), ev.Message)
}

// 📝 Info logs an info message
func (l *Logger) Info(ctx context.Context, msg string) Event {
	return l.Log(ctx, Event{Kind: EventInfo, Message: msg})
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(ctx context.Context, format string, args ...interface{}) Event {
	return l.Info(ctx, fmt.Sprintf(format, args...))
}

// 📝 Errorf logs a formatted error message
func (l *Logger) Errorf(ctx context.Context, err error, format string, args ...interface{}) Event {
	return l.Log(ctx, Event{Kind: EventError, Message: fmt.Sprintf(format, args...), Err: err})
}
