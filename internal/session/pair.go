package session

// Pair is the (access, refresh) credential identity of a cached session.
// It is an immutable value: rotation produces a new Pair, never a mutation.
// Two pairs are equal iff both fields match exactly; an empty Refresh means
// the refresh credential is absent.
type Pair struct {
	Access  string
	Refresh string
}

// NewPair builds a credential pair cache key.
func NewPair(access, refresh string) Pair {
	return Pair{Access: access, Refresh: refresh}
}

// HasRefresh reports whether the pair carries a refresh credential.
func (p Pair) HasRefresh() bool { return p.Refresh != "" }

// key returns a stable string form for singleflight grouping. The separator
// cannot appear in platform tokens.
func (p Pair) key() string {
	return p.Access + "\x00" + p.Refresh
}
