// Package autosave debounces editor changes into periodic saves.
//
// A Controller holds the editor buffer for one post and the last snapshot
// the server confirmed. Every edit that leaves the buffer different from
// the snapshot (re)arms a single timer; when it fires the buffer is sent to
// a Saver. Saves never overlap: a timer that fires while a save is in
// flight re-arms instead.
package autosave

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// DefaultInterval is the debounce delay between the last edit and a save.
const DefaultInterval = 30 * time.Second

// DefaultTimeout bounds a single save.
const DefaultTimeout = 20 * time.Second

// ErrBlankTitle is returned by SaveNow when the title is blank. Timer saves
// skip blank titles silently.
var ErrBlankTitle = errors.New("autosave: title is required")

// ErrClosed is returned by SaveNow after Close.
var ErrClosed = errors.New("autosave: controller closed")

// Saver persists a post's title and content without touching its
// publication state. apiclient.Client satisfies it.
type Saver interface {
	UpdatePost(ctx context.Context, postID, title, content string) error
}

// Clock abstracts timers for tests.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) (stop func() bool)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, fn func()) func() bool {
	return time.AfterFunc(d, fn).Stop
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the debounce interval.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock replaces the wall clock.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithTimeout bounds each save call.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) { c.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// OnSave registers a callback run after each successful save.
func OnSave(fn func(savedAt time.Time)) Option {
	return func(c *Controller) { c.onSave = fn }
}

// OnError registers a callback run after each failed timer save. Failed
// saves are retried after another interval.
func OnError(fn func(err error)) Option {
	return func(c *Controller) { c.onError = fn }
}

// Controller autosaves one post.
type Controller struct {
	saver    Saver
	postID   string
	clock    Clock
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	onSave   func(time.Time)
	onError  func(error)

	mu           sync.Mutex
	title        string
	content      string
	savedTitle   string
	savedContent string
	lastSaved    time.Time
	stopTimer    func() bool
	saving       bool
	closed       bool
}

// New creates a controller whose buffer and snapshot both start at the
// post's stored title and content.
func New(saver Saver, postID, title, content string, opts ...Option) *Controller {
	c := &Controller{
		saver:        saver,
		postID:       postID,
		clock:        systemClock{},
		interval:     DefaultInterval,
		timeout:      DefaultTimeout,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		title:        title,
		content:      content,
		savedTitle:   title,
		savedContent: content,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Edit replaces the buffer. A dirty buffer re-arms the timer; a buffer
// reverted to the snapshot cancels it.
func (c *Controller) Edit(title, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.title, c.content = title, content
	c.cancelTimerLocked()
	if c.dirtyLocked() {
		c.armLocked()
	}
}

// Dirty reports whether the buffer differs from the last saved snapshot.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirtyLocked()
}

// LastSaved returns the time of the last successful save, or the zero
// time if nothing was saved yet.
func (c *Controller) LastSaved() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSaved
}

// SaveNow saves the buffer immediately, dirty or not, and cancels any
// pending timer.
func (c *Controller) SaveNow(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if strings.TrimSpace(c.title) == "" {
		c.mu.Unlock()
		return ErrBlankTitle
	}
	c.cancelTimerLocked()
	c.saving = true
	title, content := c.title, c.content
	c.mu.Unlock()

	return c.save(ctx, title, content)
}

// Close cancels the pending timer. A save already in flight completes.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.cancelTimerLocked()
}

func (c *Controller) fire() {
	c.mu.Lock()
	c.stopTimer = nil
	if c.closed || !c.dirtyLocked() || strings.TrimSpace(c.title) == "" {
		c.mu.Unlock()
		return
	}
	if c.saving {
		c.armLocked()
		c.mu.Unlock()
		return
	}
	c.saving = true
	title, content := c.title, c.content
	c.mu.Unlock()

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.save(ctx, title, content); err != nil && c.onError != nil {
		c.onError(err)
	}
}

// save sends title and content to the saver. The caller has set c.saving.
func (c *Controller) save(ctx context.Context, title, content string) error {
	err := c.saver.UpdatePost(ctx, c.postID, title, content)

	c.mu.Lock()
	c.saving = false
	if err != nil {
		// The buffer stays dirty; retry after another interval.
		if !c.closed && c.stopTimer == nil {
			c.armLocked()
		}
		c.mu.Unlock()
		c.logger.Warn("autosave failed", "post_id", c.postID, "error", err)
		return err
	}
	c.savedTitle, c.savedContent = title, content
	c.lastSaved = c.clock.Now()
	savedAt := c.lastSaved
	// Edits made while the save was in flight still need saving.
	if !c.closed && c.stopTimer == nil && c.dirtyLocked() {
		c.armLocked()
	}
	c.mu.Unlock()

	c.logger.Debug("autosaved", "post_id", c.postID, "at", savedAt)
	if c.onSave != nil {
		c.onSave(savedAt)
	}
	return nil
}

func (c *Controller) dirtyLocked() bool {
	return c.title != c.savedTitle || c.content != c.savedContent
}

func (c *Controller) armLocked() {
	c.stopTimer = c.clock.AfterFunc(c.interval, c.fire)
}

func (c *Controller) cancelTimerLocked() {
	if c.stopTimer != nil {
		c.stopTimer()
		c.stopTimer = nil
	}
}
