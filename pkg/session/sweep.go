package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/route"
	"github.com/walteh/sortrc/pkg/watcher"
)

// 📊 SweepResult summarizes one auto-route sweep
type SweepResult struct {
	ID         string
	Dir        string
	Suppressed bool // the gate was held, nothing was looked at
	Outcomes   map[route.Outcome]int
	Duration   time.Duration
}

// Moved returns how many files the sweep moved
func (r SweepResult) Moved() int {
	return r.Outcomes[route.OutcomeMoved]
}

// 🧹 Sweep re-lists the current directory and offers every file in it to
// the router. The whole directory is rescanned no matter which path changed.
// Sweeps are serialized with manual operations, so navigation waits for a
// running sweep and a sweep always works on the directory current when it
// starts. A sweep requested while a paste holds the gate does nothing.
func (s *Session) Sweep(ctx context.Context) SweepResult {
	res := SweepResult{
		ID:       uuid.NewString(),
		Outcomes: make(map[route.Outcome]int),
	}
	logger := zerolog.Ctx(ctx).With().Str("sweep", res.ID).Logger()
	ctx = logger.WithContext(ctx)

	start := time.Now()
	ran := false
	if s.gate.Enabled() {
		// a paste holds opMu for its whole duration; only wait when none is running
		s.opMu.Lock()
		res.Dir = s.Dir()
		ran = s.gate.Guard(func() {
			entries, err := s.engine.ListDirectory(ctx, res.Dir)
			if err != nil {
				return
			}
			s.publish(entries)
			for _, entry := range entries {
				if entry.IsDir() {
					continue
				}
				res.Outcomes[s.router.RouteIfEligible(ctx, entry.Path, res.Dir)]++
			}
		})
		s.opMu.Unlock()
	} else {
		res.Dir = s.Dir()
	}
	res.Duration = time.Since(start)
	res.Suppressed = !ran

	if res.Suppressed {
		logger.Debug().Msg("sweep suppressed, paste in progress")
		return res
	}
	s.metrics.ObserveSweep(res.Duration)
	logger.Debug().
		Str("dir", res.Dir).
		Int("moved", res.Moved()).
		Dur("duration", res.Duration).
		Msg("sweep complete")
	return res
}

// 🔄 Run is the hand-off point between the watcher and the session: it
// sweeps once per batch, one sweep at a time, until ctx ends or batches closes
func (s *Session) Run(ctx context.Context, batches <-chan watcher.Batch) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				return nil
			}
			zerolog.Ctx(ctx).Debug().
				Str("dir", batch.Dir).
				Int("events", len(batch.Paths)).
				Msg("change batch received")
			s.Sweep(ctx)
		}
	}
}
