package admission

import (
	"context"
	"testing"
	"time"
)

func TestBegin_AcceptsFirstRequestForSession(t *testing.T) {
	c := New(0)
	defer c.Stop()

	d := c.Begin("session-a", "hash-1", func() {})
	if !d.Accepted {
		t.Fatalf("expected first request to be accepted, got reason %q", d.Reason)
	}
}

func TestBegin_RejectsConcurrentSameSession(t *testing.T) {
	c := New(0)
	defer c.Stop()

	first := c.Begin("session-a", "hash-1", func() {})
	if !first.Accepted {
		t.Fatalf("expected first Begin to be accepted")
	}

	second := c.Begin("session-a", "hash-2", func() {})
	if second.Accepted {
		t.Fatalf("expected second Begin for the same busy session to be rejected")
	}
}

func TestBegin_RejectsDuplicateBodyWithinWindow(t *testing.T) {
	c := New(0)
	defer c.Stop()

	first := c.Begin("session-a", "same-hash", func() {})
	if !first.Accepted {
		t.Fatalf("expected first Begin to be accepted")
	}

	// session-a's request is still in progress, so a brand new session
	// replaying the identical body within the dedupe window is suppressed.
	second := c.Begin("session-b", "same-hash", func() {})
	if second.Accepted {
		t.Fatalf("expected duplicate-body request to be rejected within the dedupe window")
	}
}

func TestBegin_CustomDedupeWindowExpires(t *testing.T) {
	c := New(5 * time.Millisecond)
	defer c.Stop()

	first := c.Begin("session-a", "same-hash", func() {})
	if !first.Accepted {
		t.Fatalf("expected first Begin to be accepted")
	}
	c.End("session-a", "same-hash")

	time.Sleep(20 * time.Millisecond)

	second := c.Begin("session-b", "same-hash", func() {})
	if !second.Accepted {
		t.Fatalf("expected duplicate-body request to be accepted once the configured window has elapsed")
	}
}

func TestEnd_FreesSessionForReuse(t *testing.T) {
	c := New(0)
	defer c.Stop()

	d1 := c.Begin("session-a", "hash-1", func() {})
	if !d1.Accepted {
		t.Fatalf("expected first Begin to be accepted")
	}
	c.End("session-a", "hash-1")

	d2 := c.Begin("session-a", "hash-2", func() {})
	if !d2.Accepted {
		t.Fatalf("expected session to be reusable after End, got reason %q", d2.Reason)
	}
}

func TestCancel_InvokesRegisteredCancelFunc(t *testing.T) {
	c := New(0)
	defer c.Stop()

	_, cancel := context.WithCancel(context.Background())
	called := false
	wrapped := func() {
		called = true
		cancel()
	}
	d := c.Begin("session-a", "hash-1", wrapped)
	if !d.Accepted {
		t.Fatalf("expected Begin to be accepted")
	}

	c.Cancel("session-a")
	if !called {
		t.Error("expected Cancel to invoke the registered cancel func")
	}
}

func TestCancel_NoOpForUnknownSession(t *testing.T) {
	c := New(0)
	defer c.Stop()
	c.Cancel("never-registered")
}

func TestStop_HaltsBackgroundSweepCleanly(t *testing.T) {
	c := New(0)
	c.Stop()
	c.Stop()
}
