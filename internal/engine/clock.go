package engine

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xuxxeth/sx/internal/events"
)

// Clock hands out event seq numbers. Seq 0 means "nothing emitted yet"; the
// first call to Next returns 1.
//
// Clock is safe for concurrent use, though the engine only advances it while
// holding its writer lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next seq is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// ResumeClock positions a clock after the last event in log.
func ResumeClock(ctx context.Context, log events.Store) (*Clock, error) {
	last, err := log.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("resume clock: %w", err)
	}
	return NewClockAt(last), nil
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Peek returns the seq Next would return, without advancing.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// Current returns the last seq handed out.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// TimeSource supplies record timestamps in unix seconds.
type TimeSource interface {
	Now() int64
}

// SystemTime reads the wall clock in whole Unix seconds. Two transitions in
// the same second get the same timestamp.
type SystemTime struct{}

func (SystemTime) Now() int64 { return time.Now().Unix() }
