// Package admission implements the Admission Controller (C7): per-session
// exclusivity plus short-window exact-duplicate suppression.
package admission

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// activeTTL is how long an active-request entry may live before it is
	// considered abandoned and evictable.
	activeTTL = 5 * time.Minute
	// dedupeTTL is how long a dedupe entry stays in the table after it stops
	// being in-progress.
	dedupeTTL = 60 * time.Second
	// defaultDedupeWindow is used when New is given a non-positive window.
	defaultDedupeWindow = 2 * time.Second
	sweepInterval        = 30 * time.Second
)

type activeEntry struct {
	startedAt   time.Time
	contentHash string
	cancel      context.CancelFunc
}

type dedupeEntry struct {
	firstSeenAt time.Time
	inProgress  bool
}

// Decision is the result of Begin.
type Decision struct {
	Accepted bool
	Reason   string
}

// Controller holds the active-request and dedupe tables behind one mutex,
// plus a background eviction sweep.
type Controller struct {
	mu      sync.Mutex
	active  map[string]*activeEntry
	dedupe  map[string]*dedupeEntry

	dedupeWindow time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New constructs a Controller and starts its background eviction sweep.
// dedupeWindow of zero or less falls back to defaultDedupeWindow.
func New(dedupeWindow time.Duration) *Controller {
	if dedupeWindow <= 0 {
		dedupeWindow = defaultDedupeWindow
	}
	c := &Controller{
		active:       make(map[string]*activeEntry),
		dedupe:       make(map[string]*dedupeEntry),
		dedupeWindow: dedupeWindow,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Begin admits or rejects a request, given its session key and the
// precomputed content hash of its body.
func (c *Controller) Begin(sessionKey, contentHash string, cancel context.CancelFunc) Decision {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.dedupe[contentHash]; ok && d.inProgress && now.Sub(d.firstSeenAt) < c.dedupeWindow {
		return Decision{Accepted: false, Reason: "Duplicate request suppressed within dedupe window"}
	}

	if a, ok := c.active[sessionKey]; ok && now.Sub(a.startedAt) < activeTTL {
		return Decision{Accepted: false, Reason: "session busy"}
	}

	c.active[sessionKey] = &activeEntry{startedAt: now, contentHash: contentHash, cancel: cancel}
	if d, ok := c.dedupe[contentHash]; ok {
		d.inProgress = true
		d.firstSeenAt = now
	} else {
		c.dedupe[contentHash] = &dedupeEntry{firstSeenAt: now, inProgress: true}
	}

	return Decision{Accepted: true}
}

// End removes the session entry and flips the dedupe entry's inProgress bit
// off, leaving the dedupe entry in place for the rest of its window.
func (c *Controller) End(sessionKey, contentHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, sessionKey)
	if d, ok := c.dedupe[contentHash]; ok {
		d.inProgress = false
	}
}

// Cancel invokes the cancel handle for sessionKey, if any is registered, so
// a client disconnect or timeout can tear down the upstream call.
func (c *Controller) Cancel(sessionKey string) {
	c.mu.Lock()
	a, ok := c.active[sessionKey]
	c.mu.Unlock()
	if ok && a.cancel != nil {
		a.cancel()
	}
}

func (c *Controller) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	defer close(c.doneCh)
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Controller) sweep() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	for k, a := range c.active {
		if now.Sub(a.startedAt) >= activeTTL {
			delete(c.active, k)
		}
	}
	for k, d := range c.dedupe {
		if !d.inProgress && now.Sub(d.firstSeenAt) >= dedupeTTL {
			delete(c.dedupe, k)
		}
	}
	logrus.WithFields(logrus.Fields{"active": len(c.active), "dedupe": len(c.dedupe)}).Debug("admission.sweep")
}

// Stop halts the background eviction sweep and waits for it to exit.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}
