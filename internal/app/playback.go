package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/capflow/internal/domain/model"
)

// Playback is the cursor state of a time-lapse replay. Every method returns
// a new value; the receiver is never changed.
type Playback struct {
	Cursor  float64      `json:"cursor"`
	Window  model.Window `json:"window"`
	Step    float64      `json:"step"`
	Playing bool         `json:"playing"`
}

// NewPlayback positions the cursor at the window start, paused.
func NewPlayback(w model.Window, step float64) Playback {
	return Playback{Cursor: w.Lo, Window: w, Step: step}
}

// Play resumes advancing on Tick.
func (p Playback) Play() Playback {
	p.Playing = true
	return p
}

// Pause stops advancing on Tick.
func (p Playback) Pause() Playback {
	p.Playing = false
	return p
}

// Reset moves the cursor back to the window start and pauses.
func (p Playback) Reset() Playback {
	p.Cursor = p.Window.Lo
	p.Playing = false
	return p
}

// Seek moves the cursor to c, clamped to the window.
func (p Playback) Seek(c float64) Playback {
	p.Cursor = min(max(c, p.Window.Lo), p.Window.Hi)
	return p
}

// Tick advances the cursor by one step when playing, never past the window end.
func (p Playback) Tick() Playback {
	if !p.Playing {
		return p
	}
	p.Cursor = min(p.Window.Hi, p.Cursor+p.Step)
	return p
}

// Done reports whether the cursor reached the window end.
func (p Playback) Done() bool {
	return p.Cursor >= p.Window.Hi
}

// View returns v with its cursor replaced by the playback cursor.
func (p Playback) View(v model.View) model.View {
	v.Cursor = p.Cursor
	return v
}

// TickFunc runs one pass for the current playback state.
type TickFunc func(ctx context.Context, p Playback) error

// RunPlayback plays p, calling fn once for the starting cursor and once per
// interval after each Tick. It returns when the window end has been rendered,
// fn fails, or ctx is done. The returned state is paused.
func RunPlayback(ctx context.Context, interval time.Duration, p Playback, fn TickFunc) (Playback, error) {
	if interval <= 0 || p.Step <= 0 {
		return p, fmt.Errorf("%w: interval %s, step %g", ErrInvalidPlayback, interval, p.Step)
	}
	p = p.Play()
	if err := fn(ctx, p); err != nil {
		return p.Pause(), err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for !p.Done() {
		select {
		case <-ctx.Done():
			return p.Pause(), ctx.Err()
		case <-ticker.C:
			p = p.Tick()
			if err := fn(ctx, p); err != nil {
				return p.Pause(), err
			}
		}
	}
	return p.Pause(), nil
}
