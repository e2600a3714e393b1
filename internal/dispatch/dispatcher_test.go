package dispatch

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_PreservesOrderPerKey(t *testing.T) {
	d := New(context.Background(), nil)

	var (
		mu  sync.Mutex
		got = map[string][]int{}
	)
	for i := 0; i < 100; i++ {
		for _, key := range []string{"a", "b", "c"} {
			i, key := i, key
			require.NoError(t, d.Submit(key, func(ctx context.Context) {
				mu.Lock()
				got[key] = append(got[key], i)
				mu.Unlock()
			}))
		}
	}
	d.Close()

	for _, key := range []string{"a", "b", "c"} {
		require.Len(t, got[key], 100)
		for i, v := range got[key] {
			require.Equal(t, i, v, "key %s out of order", key)
		}
	}
	require.Zero(t, d.Active())
}

func TestDispatcher_OneInFlightPerKey(t *testing.T) {
	d := New(context.Background(), nil)

	var (
		mu          sync.Mutex
		running     int
		maxParallel int
	)
	for i := 0; i < 20; i++ {
		require.NoError(t, d.Submit("same", func(ctx context.Context) {
			mu.Lock()
			running++
			if running > maxParallel {
				maxParallel = running
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
		}))
	}
	d.Close()
	require.Equal(t, 1, maxParallel)
}

func TestDispatcher_KeysRunInParallel(t *testing.T) {
	d := New(context.Background(), nil)
	defer d.Close()

	release := make(chan struct{})
	started := make(chan string, 2)
	require.NoError(t, d.Submit("slow", func(ctx context.Context) {
		started <- "slow"
		<-release
	}))
	require.NoError(t, d.Submit("fast", func(ctx context.Context) {
		started <- "fast"
	}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case k := <-started:
			seen[k] = true
		case <-time.After(5 * time.Second):
			t.Fatal("a key was blocked by another key")
		}
	}
	require.True(t, seen["slow"])
	require.True(t, seen["fast"])
	close(release)
}

func TestDispatcher_CloseWaitsAndRejects(t *testing.T) {
	d := New(context.Background(), nil)

	var (
		mu   sync.Mutex
		done []string
	)
	for i := 0; i < 5; i++ {
		key := strconv.Itoa(i)
		require.NoError(t, d.Submit(key, func(ctx context.Context) {
			time.Sleep(5 * time.Millisecond)
			mu.Lock()
			done = append(done, key)
			mu.Unlock()
		}))
	}
	d.Close()
	require.Len(t, done, 5)
	require.ErrorIs(t, d.Submit("late", func(ctx context.Context) {}), ErrClosed)
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := New(context.Background(), nil)

	ran := false
	require.NoError(t, d.Submit("k", func(ctx context.Context) { panic("boom") }))
	require.NoError(t, d.Submit("k", func(ctx context.Context) { ran = true }))
	d.Close()
	require.True(t, ran)
}

func TestDispatcher_PassesContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	d := New(ctx, nil)

	var got any
	require.NoError(t, d.Submit("k", func(ctx context.Context) { got = ctx.Value(ctxKey{}) }))
	d.Close()
	require.Equal(t, "v", got)
}
