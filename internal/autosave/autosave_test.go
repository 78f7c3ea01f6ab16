package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/scribe/internal/testutil"
)

type saveCall struct {
	postID, title, content string
}

type fakeSaver struct {
	mu     sync.Mutex
	calls  []saveCall
	err    error
	during func()
}

func (s *fakeSaver) UpdatePost(_ context.Context, postID, title, content string) error {
	s.mu.Lock()
	s.calls = append(s.calls, saveCall{postID, title, content})
	err, during := s.err, s.during
	s.during = nil
	s.mu.Unlock()

	if during != nil {
		during()
	}
	return err
}

func (s *fakeSaver) saved() []saveCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]saveCall(nil), s.calls...)
}

const interval = 30 * time.Second

func newController(t *testing.T, opts ...Option) (*Controller, *fakeSaver, *testutil.FakeClock) {
	t.Helper()
	saver := &fakeSaver{}
	clock := testutil.NewFakeClock(time.Time{})
	opts = append([]Option{WithClock(clock), WithInterval(interval)}, opts...)
	c := New(saver, "post-1", "Title", "<p>v0</p>", opts...)
	t.Cleanup(c.Close)
	return c, saver, clock
}

func TestController_CleanBufferNeverSaves(t *testing.T) {
	c, saver, clock := newController(t)

	assert.False(t, c.Dirty())
	clock.Advance(5 * interval)
	assert.Empty(t, saver.saved())
	assert.Zero(t, clock.Pending())
	assert.True(t, c.LastSaved().IsZero())
}

func TestController_DebouncesEdits(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("Title", "<p>v1</p>")
	clock.Advance(20 * time.Second)
	c.Edit("Title", "<p>v2</p>")
	clock.Advance(20 * time.Second)
	assert.Empty(t, saver.saved(), "timer must restart on each edit")
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(10 * time.Second)
	require.Equal(t, []saveCall{{"post-1", "Title", "<p>v2</p>"}}, saver.saved())
	assert.False(t, c.Dirty())
	assert.Equal(t, testutil.Epoch.Add(50*time.Second), c.LastSaved())
	assert.Zero(t, clock.Pending())
}

func TestController_RevertCancelsTimer(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("Changed", "<p>v0</p>")
	assert.True(t, c.Dirty())
	c.Edit("Title", "<p>v0</p>")
	assert.False(t, c.Dirty())
	assert.Zero(t, clock.Pending())

	clock.Advance(interval)
	assert.Empty(t, saver.saved())
}

func TestController_BlankTitleSkipped(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("   ", "<p>v1</p>")
	clock.Advance(interval)
	assert.Empty(t, saver.saved())
	assert.True(t, c.Dirty())

	assert.ErrorIs(t, c.SaveNow(t.Context()), ErrBlankTitle)
	assert.Empty(t, saver.saved())
}

func TestController_FailedSaveStaysDirtyAndRetries(t *testing.T) {
	var reported []error
	c, saver, clock := newController(t, OnError(func(err error) { reported = append(reported, err) }))
	boom := errors.New("network down")
	saver.err = boom

	c.Edit("Title", "<p>v1</p>")
	clock.Advance(interval)
	require.Len(t, saver.saved(), 1)
	assert.True(t, c.Dirty())
	assert.Equal(t, []error{boom}, reported)
	assert.True(t, c.LastSaved().IsZero())

	saver.mu.Lock()
	saver.err = nil
	saver.mu.Unlock()

	clock.Advance(interval)
	assert.Len(t, saver.saved(), 2)
	assert.False(t, c.Dirty())
	assert.Len(t, reported, 1)
}

func TestController_SaveNow(t *testing.T) {
	var savedAt []time.Time
	c, saver, clock := newController(t, OnSave(func(at time.Time) { savedAt = append(savedAt, at) }))

	c.Edit("Title", "<p>v1</p>")
	require.NoError(t, c.SaveNow(t.Context()))
	assert.Equal(t, []saveCall{{"post-1", "Title", "<p>v1</p>"}}, saver.saved())
	assert.Zero(t, clock.Pending(), "manual save cancels the timer")
	assert.Equal(t, []time.Time{testutil.Epoch}, savedAt)

	// A clean buffer still saves on request.
	require.NoError(t, c.SaveNow(t.Context()))
	assert.Len(t, saver.saved(), 2)
}

func TestController_EditDuringSaveIsSavedLater(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("Title", "<p>v1</p>")
	saver.during = func() { c.Edit("Title", "<p>v2</p>") }
	clock.Advance(interval)

	require.Len(t, saver.saved(), 1)
	assert.True(t, c.Dirty(), "v2 arrived after v1 was captured")
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(interval)
	calls := saver.saved()
	require.Len(t, calls, 2)
	assert.Equal(t, "<p>v2</p>", calls[1].content)
	assert.False(t, c.Dirty())
}

func TestController_TimerDuringSaveDoesNotOverlap(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("Title", "<p>v1</p>")
	saver.during = func() {
		// A new edit arms a timer that expires while the manual save is
		// still in flight.
		c.Edit("Title", "<p>v2</p>")
		clock.Advance(interval)
	}
	require.NoError(t, c.SaveNow(t.Context()))

	assert.Len(t, saver.saved(), 1, "timer fired during a save and must not start another")
	assert.Equal(t, 1, clock.Pending(), "timer re-armed")

	clock.Advance(interval)
	calls := saver.saved()
	require.Len(t, calls, 2)
	assert.Equal(t, "<p>v2</p>", calls[1].content)
}

func TestController_Close(t *testing.T) {
	c, saver, clock := newController(t)

	c.Edit("Title", "<p>v1</p>")
	c.Close()
	assert.Zero(t, clock.Pending())

	clock.Advance(interval)
	assert.Empty(t, saver.saved())

	c.Edit("Title", "<p>v2</p>")
	assert.Zero(t, clock.Pending())
	assert.ErrorIs(t, c.SaveNow(t.Context()), ErrClosed)
}
