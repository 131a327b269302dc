package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/swap-engine/event"
)

type ping struct{ n int }

func (ping) EventKind() string { return "ping" }

func TestBuffer_SealEmptiesAndWraps(t *testing.T) {
	buf := event.NewBuffer()
	buf.Record(ping{1})
	buf.Record(ping{2})
	require.Equal(t, 2, buf.Len())

	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	sealed := buf.Seal(now)

	require.Len(t, sealed, 2)
	assert.Equal(t, 0, buf.Len())
	assert.Equal(t, "ping", sealed[0].Kind)
	assert.Equal(t, now, sealed[0].OccurredAt)
	assert.NotEqual(t, sealed[0].ID, sealed[1].ID, "every envelope gets its own id")
	assert.Equal(t, ping{2}, sealed[1].Event)
}

func TestMemorySink_BoundedAndSequenced(t *testing.T) {
	ctx := context.Background()
	sink := event.NewMemorySink(3)

	for i := 0; i < 5; i++ {
		buf := event.NewBuffer()
		buf.Record(ping{i})
		sink.Publish(ctx, buf.Seal(time.Now()))
	}

	all := sink.Events(0)
	require.Len(t, all, 3, "oldest events are evicted")
	assert.Equal(t, uint64(3), all[0].Seq)
	assert.Equal(t, uint64(5), all[2].Seq)

	after := sink.Events(4)
	require.Len(t, after, 1)
	assert.Equal(t, ping{4}, after[0].Event)
}

func TestMulti_FansOut(t *testing.T) {
	a, b := event.NewMemorySink(0), event.NewMemorySink(0)
	buf := event.NewBuffer()
	buf.Record(ping{7})

	event.Multi{a, b, event.Discard}.Publish(context.Background(), buf.Seal(time.Now()))

	assert.Equal(t, []string{"ping"}, a.Kinds())
	assert.Equal(t, []string{"ping"}, b.Kinds())
}
