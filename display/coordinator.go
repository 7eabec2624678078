// Package display holds the shared slideshow state every display client
// polls. One coordinator exists per deployment, so multiple screens and the
// admin preview stay in lock-step.
package display

import (
	"sync"
	"time"

	"github.com/camden-git/photoframebackend/gallery"
)

// Control actions.
const (
	ActionNext  = "next"
	ActionPrev  = "prev"
	ActionPause = "pause"
	ActionPlay  = "play"
)

// State is a point-in-time snapshot of the slideshow.
type State struct {
	Index  int  `json:"index"`
	Paused bool `json:"paused"`
	Total  int  `json:"total"`
}

// Coordinator is the single source of truth for playback position. It is not
// persisted; a restart resumes at the first visible image, unpaused. The
// visible-image count is supplied on every call because visibility can change
// between polls; the index is re-clamped against the live count each time.
type Coordinator struct {
	mu          sync.Mutex
	index       int
	paused      bool
	lastAdvance time.Time

	now func() time.Time
}

// NewCoordinator creates a coordinator starting at index 0, unpaused.
func NewCoordinator() *Coordinator {
	return &Coordinator{now: time.Now}
}

// NewCoordinatorWithClock is NewCoordinator with an injected clock for tests.
func NewCoordinatorWithClock(now func() time.Time) *Coordinator {
	return &Coordinator{now: now}
}

// State returns the current playback state, clamped against visibleCount,
// auto-advancing one slide when unpaused and interval has elapsed since the
// last advance. Auto-advance lives here rather than in each client so that
// every screen observes the same position.
func (c *Coordinator) State(visibleCount int, interval time.Duration) State {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clamp(visibleCount)

	if !c.paused && visibleCount > 0 && interval > 0 {
		if c.lastAdvance.IsZero() {
			c.lastAdvance = c.now()
		} else if c.now().Sub(c.lastAdvance) >= interval {
			c.index = (c.index + 1) % visibleCount
			c.lastAdvance = c.now()
		}
	}

	return State{Index: c.index, Paused: c.paused, Total: visibleCount}
}

// Control applies a playback command. Commands apply in arrival order; the
// only rejection is an unknown action.
func (c *Coordinator) Control(action string, visibleCount int) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clamp(visibleCount)

	switch action {
	case ActionNext:
		if visibleCount > 0 {
			c.index = (c.index + 1) % visibleCount
		}
		c.lastAdvance = c.now()
	case ActionPrev:
		if visibleCount > 0 {
			c.index = (c.index - 1 + visibleCount) % visibleCount
		}
		c.lastAdvance = c.now()
	case ActionPause:
		c.paused = true
	case ActionPlay:
		c.paused = false
		c.lastAdvance = c.now()
	default:
		return State{}, gallery.Validationf("invalid display action '%s'", action)
	}

	return State{Index: c.index, Paused: c.paused, Total: visibleCount}, nil
}

// clamp pulls the index back into [0, visibleCount). Callers hold the mutex.
func (c *Coordinator) clamp(visibleCount int) {
	if visibleCount <= 0 {
		c.index = 0
		return
	}
	if c.index >= visibleCount || c.index < 0 {
		c.index = 0
	}
}
