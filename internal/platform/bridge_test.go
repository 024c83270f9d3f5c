package platform

import (
	"sync"
	"testing"
	"time"
)

func newIdleSession() *bridgeSession {
	return &bridgeSession{
		access:    "T1",
		refresh:   "R1",
		accessCh:  make(chan string, 16),
		refreshCh: make(chan string, 16),
		closed:    make(chan struct{}),
	}
}

func TestSessionCloseDuringRotationPublish(t *testing.T) {
	// An in-flight call whose envelope carries a rotation can race the
	// session's eviction. The publish must never panic, and the token state
	// must reflect the rotation regardless of which side wins.
	for i := 0; i < 500; i++ {
		s := newIdleSession()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.applyRotations(&rpcEnvelope{
				RotatedAccessToken:  "T2",
				RotatedRefreshToken: "R2",
			})
		}()
		go func() {
			defer wg.Done()
			s.Close()
		}()
		wg.Wait()

		if got := s.AccessToken(); got != "T2" {
			t.Fatalf("access token %q after rotation", got)
		}
		if got := s.RefreshToken(); got != "R2" {
			t.Fatalf("refresh token %q after rotation", got)
		}
	}
}

func TestSessionRotationAfterCloseDoesNotBlock(t *testing.T) {
	s := newIdleSession()
	s.Close()

	// Fill the buffer so a send would block; the closed signal must win.
	for i := 0; i < cap(s.accessCh); i++ {
		s.accessCh <- "backlog"
	}

	done := make(chan struct{})
	go func() {
		s.applyRotations(&rpcEnvelope{RotatedAccessToken: "T9"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("rotation publish blocked after close")
	}
	if got := s.AccessToken(); got != "T9" {
		t.Fatalf("access token %q after rotation", got)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := newIdleSession()
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
}
