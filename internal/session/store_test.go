package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/squarewire/squarewire/internal/platform"
	"github.com/squarewire/squarewire/internal/platform/platformtest"
)

func newTestStore(t *testing.T) (*Store, *platformtest.Authenticator) {
	t.Helper()
	auth := platformtest.NewAuthenticator(nil)
	s := NewStore(auth, zerolog.Nop())
	t.Cleanup(s.Close)
	return s, auth
}

// waitForLookup polls until pair resolves to a session or the deadline hits.
func waitForLookup(t *testing.T, s *Store, pair Pair) platform.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sess, ok := s.Lookup(pair); ok {
			return sess
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no session for pair %+v", pair)
	return nil
}

// waitForMiss polls until pair no longer resolves.
func waitForMiss(t *testing.T, s *Store, pair Pair) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Lookup(pair); !ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pair %+v still resolves", pair)
}

func TestAcquireDistinctPairs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	s1, err := s.Acquire(ctx, NewPair("T1", ""))
	if err != nil {
		t.Fatal(err)
	}
	s2, err := s.Acquire(ctx, NewPair("T2", ""))
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("distinct pairs must yield distinct sessions")
	}

	// Same access, different refresh is a distinct pair too.
	s3, err := s.Acquire(ctx, NewPair("T1", "R1"))
	if err != nil {
		t.Fatal(err)
	}
	if s3 == s1 {
		t.Fatal("pair with refresh must not reuse the refresh-less session")
	}
}

func TestAcquireSamePairReusesSession(t *testing.T) {
	s, auth := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "R1")

	s1, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	if s1 != s2 {
		t.Fatal("same pair must yield the same session")
	}
	if got := auth.LoginCount(); got != 1 {
		t.Fatalf("expected 1 login, got %d", got)
	}
}

func TestConcurrentAcquireSinglesLogin(t *testing.T) {
	s, auth := newTestStore(t)
	pair := NewPair("T1", "")

	const workers = 16
	sessions := make([]platform.Session, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.Acquire(context.Background(), pair)
			if err != nil {
				t.Error(err)
				return
			}
			sessions[i] = sess
		}(i)
	}
	wg.Wait()

	if got := auth.LoginCount(); got != 1 {
		t.Fatalf("expected exactly 1 login for concurrent acquires, got %d", got)
	}
	for i := 1; i < workers; i++ {
		if sessions[i] != sessions[0] {
			t.Fatal("all concurrent acquires must share one session")
		}
	}
}

func TestLoginFailureNotCached(t *testing.T) {
	s, auth := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("bad", "")

	auth.LoginErr = &platform.AuthError{Code: platform.CodeAuthenticationFailed}
	if _, err := s.Acquire(ctx, pair); !platform.IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if _, ok := s.Lookup(pair); ok {
		t.Fatal("failed login must not be cached")
	}

	// Credential fixed upstream: the same pair logs in fresh.
	auth.LoginErr = nil
	if _, err := s.Acquire(ctx, pair); err != nil {
		t.Fatal(err)
	}
	if got := auth.LoginCount(); got != 1 {
		t.Fatalf("expected 1 successful login, got %d", got)
	}
}

func TestAccessRotationRekeys(t *testing.T) {
	s, auth := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "R1")

	sess, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}

	sess.(*platformtest.Session).RotateAccess("T2")

	rotated := NewPair("T2", "R1")
	got := waitForLookup(t, s, rotated)
	if got != sess {
		t.Fatal("rotated key must point at the original session")
	}
	waitForMiss(t, s, pair)

	// The old pair now triggers a fresh login, not a cache hit.
	fresh, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == sess {
		t.Fatal("pre-rotation pair must not find the re-keyed session")
	}
	if auth.LoginCount() != 2 {
		t.Fatalf("expected 2 logins, got %d", auth.LoginCount())
	}
}

func TestRefreshRotationKeepsKey(t *testing.T) {
	s, auth := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "R1")

	sess, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}

	sess.(*platformtest.Session).RotateRefresh("R2")

	// The key is unchanged: a client presenting the old pair still finds
	// the live session, which now reports the new refresh credential.
	deadline := time.Now().Add(2 * time.Second)
	for sess.RefreshToken() != "R2" && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sess.RefreshToken() != "R2" {
		t.Fatal("session must carry the rotated refresh credential")
	}

	again, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	if again != sess {
		t.Fatal("refresh rotation must not change the store key")
	}
	if auth.LoginCount() != 1 {
		t.Fatalf("expected 1 login, got %d", auth.LoginCount())
	}
}

func TestAccessRotationAfterRefreshRotationUsesCurrentRefresh(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "R1")

	sess, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	fake := sess.(*platformtest.Session)

	fake.RotateRefresh("R2")
	fake.RotateAccess("T2")

	// Re-keying preserves the key's refresh component: the refresh
	// rotation lives in the handle, not the key.
	got := waitForLookup(t, s, NewPair("T2", "R1"))
	if got != sess {
		t.Fatal("re-keyed entry must keep the original key refresh")
	}
}

func TestInvalidateEvicts(t *testing.T) {
	s, auth := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "")

	sess, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}

	s.Invalidate(sess)
	if _, ok := s.Lookup(pair); ok {
		t.Fatal("invalidated session must not be reachable")
	}

	fresh, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	if fresh == sess {
		t.Fatal("acquire after eviction must issue a fresh login")
	}
	if auth.LoginCount() != 2 {
		t.Fatalf("expected 2 logins, got %d", auth.LoginCount())
	}
}

func TestInvalidateAfterRotation(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	pair := NewPair("T1", "R1")

	sess, err := s.Acquire(ctx, pair)
	if err != nil {
		t.Fatal(err)
	}
	sess.(*platformtest.Session).RotateAccess("T2")
	rotated := NewPair("T2", "R1")
	waitForLookup(t, s, rotated)

	// Invalidate finds the entry under its rotated key.
	s.Invalidate(sess)
	if _, ok := s.Lookup(rotated); ok {
		t.Fatal("invalidate must evict the rotated key")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d entries", s.Len())
	}
}

func TestLoginErrorPropagated(t *testing.T) {
	s, auth := newTestStore(t)
	boom := errors.New("bridge unreachable")
	auth.LoginErr = boom

	_, err := s.Acquire(context.Background(), NewPair("T1", ""))
	if !errors.Is(err, boom) {
		t.Fatalf("expected propagated login error, got %v", err)
	}
}

// gatedAuth is an authenticator whose logins can be held open, so a test
// can interleave a rotation with an in-flight login.
type gatedAuth struct {
	mu       sync.Mutex
	gate     chan struct{} // when non-nil, Login blocks on it
	entered  chan struct{} // signaled when a login starts blocking
	sessions []*platformtest.Session
}

func (a *gatedAuth) Login(ctx context.Context, accessToken, refreshToken string) (platform.Session, error) {
	a.mu.Lock()
	gate, entered := a.gate, a.entered
	a.mu.Unlock()
	if gate != nil {
		entered <- struct{}{}
		<-gate
	}
	sess := platformtest.NewSession(accessToken, refreshToken, nil)
	a.mu.Lock()
	a.sessions = append(a.sessions, sess)
	a.mu.Unlock()
	return sess, nil
}

func (a *gatedAuth) setGate(gate, entered chan struct{}) {
	a.mu.Lock()
	a.gate = gate
	a.entered = entered
	a.mu.Unlock()
}

func (a *gatedAuth) session(i int) *platformtest.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[i]
}

func TestAcquireDuringRekeyKeepsRotatedSession(t *testing.T) {
	auth := &gatedAuth{}
	s := NewStore(auth, zerolog.Nop())
	t.Cleanup(s.Close)
	ctx := context.Background()

	first, err := s.Acquire(ctx, NewPair("T1", "R1"))
	if err != nil {
		t.Fatal(err)
	}

	// Hold the next login open while it is in flight for {T2, R1}.
	gate := make(chan struct{})
	entered := make(chan struct{})
	auth.setGate(gate, entered)

	acquired := make(chan platform.Session, 1)
	go func() {
		sess, err := s.Acquire(ctx, NewPair("T2", "R1"))
		if err != nil {
			t.Error(err)
		}
		acquired <- sess
	}()

	// Once the login is blocked, the first session rotates onto the very
	// pair being logged in.
	<-entered
	first.(*platformtest.Session).RotateAccess("T2")
	waitForLookup(t, s, NewPair("T2", "R1"))

	close(gate)
	got := <-acquired

	// The rotated session owns the pair; the surplus login is closed, not
	// left unreachable with a live watcher.
	if got != first {
		t.Fatal("acquire must return the session the rotation re-keyed onto the pair")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", s.Len())
	}
	surplus := auth.session(1)
	deadline := time.Now().Add(2 * time.Second)
	for !surplus.Closed() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !surplus.Closed() {
		t.Fatal("surplus session must be closed")
	}
}
