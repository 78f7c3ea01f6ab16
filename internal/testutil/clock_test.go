package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeClock_StartsAtEpoch(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	assert.Equal(t, Epoch, clock.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())
}

func TestFakeClock_TimerFiresAtDeadline(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	fired := 0
	clock.AfterFunc(10*time.Second, func() { fired++ })

	clock.Advance(9 * time.Second)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Hour)
	assert.Equal(t, 1, fired, "timers fire once")
}

func TestFakeClock_TimersFireInDeadlineOrder(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	var order []string
	clock.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	clock.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	clock.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	clock.Advance(5 * time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestFakeClock_NowDuringCallbackIsDeadline(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	var seen time.Time
	clock.AfterFunc(2*time.Second, func() { seen = clock.Now() })

	clock.Advance(time.Minute)
	assert.Equal(t, Epoch.Add(2*time.Second), seen)
	assert.Equal(t, Epoch.Add(time.Minute), clock.Now())
}

func TestFakeClock_CallbackMaySchedule(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	fired := 0
	clock.AfterFunc(time.Second, func() {
		fired++
		clock.AfterFunc(time.Second, func() { fired++ })
	})

	clock.Advance(3 * time.Second)
	assert.Equal(t, 2, fired)
}

func TestFakeClock_Stop(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	fired := false
	stop := clock.AfterFunc(time.Second, func() { fired = true })

	require.True(t, stop())
	assert.False(t, stop(), "second stop reports already stopped")

	clock.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(time.Time{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.AfterFunc(time.Second, func() {})
			_ = clock.Now()
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, clock.Pending())
	clock.Advance(time.Second)
	assert.Equal(t, 0, clock.Pending())
}
