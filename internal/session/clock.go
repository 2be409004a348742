package session

import (
	"time"

	"github.com/park285/cheese-chess-client/internal/board"
)

// clock charges elapsed wall time to the side to move. It has no goroutine of
// its own; the owner calls flagged on each tick.
type clock struct {
	limit     time.Duration
	remaining map[board.Color]time.Duration
	running   bool
	since     time.Time
}

func newClock(limit time.Duration) clock {
	c := clock{limit: limit}
	c.reset()
	return c
}

func (c *clock) enabled() bool { return c.limit > 0 }

func (c *clock) reset() {
	c.remaining = map[board.Color]time.Duration{board.White: c.limit, board.Black: c.limit}
	c.running = false
	c.since = time.Time{}
}

func (c *clock) start(now time.Time) {
	if !c.enabled() {
		return
	}
	c.running = true
	c.since = now
}

// punch charges the mover and restarts the count for the other side.
func (c *clock) punch(mover board.Color, now time.Time) {
	if !c.running {
		return
	}
	c.remaining[mover] -= now.Sub(c.since)
	c.since = now
}

func (c *clock) stop(turn board.Color, now time.Time) {
	if !c.running {
		return
	}
	c.punch(turn, now)
	c.running = false
}

func (c *clock) left(color, turn board.Color, now time.Time) time.Duration {
	d := c.remaining[color]
	if c.running && color == turn {
		d -= now.Sub(c.since)
	}
	if d < 0 {
		d = 0
	}
	return d
}

func (c *clock) flagged(turn board.Color, now time.Time) bool {
	return c.running && c.left(turn, turn, now) <= 0
}

func (c *clock) state(turn board.Color, now time.Time) ClockState {
	return ClockState{
		Enabled: c.enabled(),
		Running: c.running,
		White:   c.left(board.White, turn, now),
		Black:   c.left(board.Black, turn, now),
	}
}
