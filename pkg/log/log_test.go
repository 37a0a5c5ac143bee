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
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func testContext() context.Context {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled).WithContext(context.Background())
}

func TestLogger(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		op       func(ctx context.Context, logger *Logger)
		wantLogs []string
	}{
		{
			name: "moved",
			op: func(ctx context.Context, logger *Logger) {
				logger.Log(ctx, Event{Kind: EventMoved, Path: "/in/photo.jpg", Dest: "/in/image"})
			},
			wantLogs: []string{"✓ Moved 'photo.jpg' to '/in/image'"},
		},
		{
			name: "unsupported",
			op: func(ctx context.Context, logger *Logger) {
				logger.Log(ctx, Event{Kind: EventUnsupported, Path: "/in/setup.exe"})
			},
			wantLogs: []string{"- File type not supported for auto move: setup.exe"},
		},
		{
			name: "error_with_cause",
			op: func(ctx context.Context, logger *Logger) {
				logger.Log(ctx, Event{Kind: EventError, Path: "/in/a.txt", Err: errors.New("boom")})
			},
			wantLogs: []string{"❌ Error on 'a.txt': boom"},
		},
		{
			name: "custom_message",
			op: func(ctx context.Context, logger *Logger) {
				logger.Infof(ctx, "File list refreshed (%d entries)", 3)
			},
			wantLogs: []string{"• File list refreshed (3 entries)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ctx := testContext()
			logger := New(ctx, &buf)

			tt.op(ctx, logger)

			got := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
			assert.Equal(t, tt.wantLogs, got, "console output should match")
		})
	}
}

func TestLoggerOrderAndSubscribers(t *testing.T) {
	ctx := testContext()
	logger := New(ctx, nil)

	var seen []int
	logger.Subscribe(func(ev Event) {
		seen = append(seen, ev.Seq)
	})

	logger.Info(ctx, "first")
	logger.Info(ctx, "second")
	ev := logger.Log(ctx, Event{Kind: EventDeleted, Path: "/x/old.txt"})

	assert.Equal(t, 3, ev.Seq, "third event should have seq 3")
	assert.Equal(t, []int{1, 2, 3}, seen, "subscriber should see events in order")

	events := logger.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "first", events[0].Message)
	assert.Equal(t, "Deleted file: old.txt", events[2].Message)
	assert.False(t, events[2].Time.IsZero(), "time should be set")
}

