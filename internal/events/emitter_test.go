package events

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuxxeth/sx/internal/address"
	"github.com/xuxxeth/sx/internal/host"
	"github.com/xuxxeth/sx/internal/ir"
	"github.com/xuxxeth/sx/internal/kvstore"
	"github.com/xuxxeth/sx/internal/store"
)

var (
	alice = address.MustParse("4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi")
	bob   = address.MustParse("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR")
)

func event(t *testing.T, seq int64, p ir.Payload) ir.Event {
	t.Helper()
	ev, err := ir.NewEvent(seq, "tr", p)
	require.NoError(t, err)
	return ev
}

func TestFanoutJoinsErrors(t *testing.T) {
	var got []int64
	record := EmitterFunc(func(_ context.Context, ev ir.Event) error {
		got = append(got, ev.Seq)
		return nil
	})
	errA := errors.New("a")
	errB := errors.New("b")
	failA := EmitterFunc(func(context.Context, ir.Event) error { return errA })
	failB := EmitterFunc(func(context.Context, ir.Event) error { return errB })

	err := Fanout{failA, record, failB}.Emit(context.Background(), event(t, 1, ir.Followed{Follower: alice, Following: bob}))
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, []int64{1}, got, "sinks after a failure still run")

	assert.NoError(t, Fanout{record, Discard}.Emit(context.Background(), event(t, 2, ir.Followed{})))
}

func logStores(t *testing.T) map[string]Store {
	sqlite, err := store.Open(filepath.Join(t.TempDir(), "events.db"), host.FreeRent())
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	ldb, err := kvstore.OpenMem(host.FreeRent(), kvstore.Batch)
	require.NoError(t, err)
	t.Cleanup(func() { ldb.Close() })

	return map[string]Store{"sqlite": sqlite, "leveldb": ldb}
}

func TestLogAndReplay(t *testing.T) {
	for name, s := range logStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			log := NewLog(s)
			for seq := int64(1); seq <= 5; seq++ {
				require.NoError(t, log.Emit(ctx, event(t, seq, ir.PostLiked{Liker: alice, PostAuthor: bob, PostID: uint64(seq)})))
			}

			last, err := s.LastSeq(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(5), last)

			var seen []int64
			err = Replay(ctx, s, 1, 2, func(ev ir.Event) error {
				seen = append(seen, ev.Seq)
				assert.Equal(t, uint64(ev.Seq), ev.Payload.(ir.PostLiked).PostID)
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, []int64{2, 3, 4, 5}, seen)
		})
	}
}

func TestReplayStopsOnCallbackError(t *testing.T) {
	ctx := context.Background()
	s := logStores(t)["leveldb"]
	for seq := int64(1); seq <= 3; seq++ {
		require.NoError(t, s.AppendEvent(ctx, event(t, seq, ir.Followed{Follower: alice, Following: bob})))
	}

	stop := errors.New("stop")
	calls := 0
	err := Replay(ctx, s, 0, 0, func(ir.Event) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}
