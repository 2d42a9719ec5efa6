package devicelock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLockerExcludesSameKey(t *testing.T) {
	l := NewLocker()
	var active int32
	var maxActive int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "device-1")
			require.NoError(t, err)
			defer unlock()

			cur := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxActive)
				if cur <= m || atomic.CompareAndSwapInt32(&maxActive, m, cur) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&maxActive), "same-key work must never overlap")
}

func TestLockerAllowsDistinctKeysConcurrently(t *testing.T) {
	l := NewLocker()
	var wg sync.WaitGroup
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	for _, key := range []string{"device-a", "device-b"} {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), key)
			require.NoError(t, err)
			defer unlock()
			started <- struct{}{}
			<-release
		}()
	}

	// Both distinct-key holders should be able to start without waiting
	// on each other.
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("first distinct-key lock never started")
	}
	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("second distinct-key lock never started concurrently")
	}
	close(release)
	wg.Wait()
}

func TestLockerContextCancelReturnsError(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "device-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "device-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockerReleasesMapEntryWhenIdle(t *testing.T) {
	l := NewLocker()
	unlock, err := l.Lock(context.Background(), "device-1")
	require.NoError(t, err)
	unlock()

	l.mu.Lock()
	_, exists := l.locks["device-1"]
	l.mu.Unlock()
	require.False(t, exists, "idle lock entries should be garbage collected")
}
