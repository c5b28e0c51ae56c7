package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
)

func TestClock_NewClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current(), "new clock should start at 0")
}

func TestClock_NewClockAt(t *testing.T) {
	c := NewClockAt(100)
	assert.Equal(t, int64(100), c.Current(), "clock should start at specified value")
}

func TestClock_Next_Incrementing(t *testing.T) {
	c := NewClock()

	// Seq 0 is never handed out.
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(3), c.Next())

	assert.Equal(t, int64(3), c.Current())
}

func TestClock_Next_Unique(t *testing.T) {
	c := NewClock()
	const iterations = 1000

	seen := make(map[int64]bool)
	for i := 0; i < iterations; i++ {
		seq := c.Next()
		assert.False(t, seen[seq], "seq %d generated twice", seq)
		seen[seq] = true
	}

	assert.Len(t, seen, iterations, "all seqs should be unique")
}

func TestClock_ThreadSafe(t *testing.T) {
	c := NewClock()
	const goroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	seqs := make(chan int64, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				seqs <- c.Next()
			}
		}()
	}

	wg.Wait()
	close(seqs)

	// Verify all seqs are unique
	seen := make(map[int64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "seq %d generated twice", seq)
		seen[seq] = true
	}

	expected := goroutines * callsPerGoroutine
	assert.Len(t, seen, expected, "should have %d unique seqs", expected)
}

func TestClock_Current_DoesNotIncrement(t *testing.T) {
	c := NewClock()

	c.Next() // 1
	c.Next() // 2

	assert.Equal(t, int64(2), c.Current())
	assert.Equal(t, int64(2), c.Current())
	assert.Equal(t, int64(2), c.Current())
}

func TestClock_Peek(t *testing.T) {
	c := NewClockAt(41)

	assert.Equal(t, int64(42), c.Peek())
	assert.Equal(t, int64(42), c.Peek(), "peek must not advance")
	assert.Equal(t, int64(42), c.Next())
	assert.Equal(t, int64(43), c.Peek())
}

func TestResumeClock(t *testing.T) {
	for _, kind := range hostKinds {
		t.Run(kind, func(t *testing.T) {
			ctx := context.Background()
			h := openHost(t, kind, host.FreeRent())

			c, err := ResumeClock(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, int64(1), c.Peek(), "empty log starts at 1")

			for _, seq := range []int64{1, 2, 3} {
				ev, err := ir.NewEvent(seq, "tr", ir.Followed{Follower: alice, Following: bob})
				require.NoError(t, err)
				require.NoError(t, h.AppendEvent(ctx, ev))
			}

			c, err = ResumeClock(ctx, h)
			require.NoError(t, err)
			assert.Equal(t, int64(3), c.Current())
			assert.Equal(t, int64(4), c.Next())
		})
	}
}
