package sessionauth

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultStaleTime is how long an identity read stays fresh.
const DefaultStaleTime = 5 * time.Minute

type Status int

const (
	StatusUnknown Status = iota
	StatusLoading
	StatusAuthenticated
	StatusAnonymous
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	case StatusAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

type Mutation int

const (
	MutationLogin Mutation = iota
	MutationRegister
	MutationLogout
	numMutations
)

// State is a point-in-time view of the session.
type State struct {
	User      *User
	Status    Status
	FetchedAt time.Time
	// IdentityCheckFailed is set when the last identity read could not tell
	// whether the visitor is logged in (network failure, 5xx). The session
	// still reads as anonymous.
	IdentityCheckFailed bool

	IsLoggingIn   bool
	IsRegistering bool
	IsLoggingOut  bool

	LoginError    error
	RegisterError error
	LogoutError   error
}

func (s State) IsLoading() bool       { return s.Status == StatusLoading }
func (s State) IsAuthenticated() bool { return s.Status == StatusAuthenticated }

// Ticket fences a cache write against calls dispatched after it.
type Ticket struct {
	seq uint64
}

// Store is the cache slot holding the current user. It is created with
// NewStore, read and written by a Client, and disposed with Close.
//
// Writes are fenced by two counters. seq advances when a mutation is
// dispatched and commits advances when one is written to the slot. A
// mutation is written only while seq still equals its ticket, so the latest
// dispatched mutation wins. A read is written only while commits still
// equals its ticket, so it never overwrites a mutation that committed after
// the read was sent. Failed mutations fence nothing.
type Store struct {
	clock     clockwork.Clock
	staleTime time.Duration

	mu                  sync.Mutex
	user                *User
	fetched             bool
	fetchedAt           time.Time
	loading             int
	identityCheckFailed bool
	seq                 uint64
	commits             uint64
	pending             [numMutations]int
	errs                [numMutations]error
	subs                map[int]func(State)
	nextSub             int
	closed              bool

	notifyMu sync.Mutex
}

// NewStore returns an empty store. A nil clock means the wall clock; a
// non-positive staleTime means DefaultStaleTime.
func NewStore(clock clockwork.Clock, staleTime time.Duration) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	return &Store{
		clock:     clock,
		staleTime: staleTime,
		subs:      make(map[int]func(State)),
	}
}

func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Store) stateLocked() State {
	st := State{
		User:                s.user,
		FetchedAt:           s.fetchedAt,
		IdentityCheckFailed: s.identityCheckFailed,
		IsLoggingIn:         s.pending[MutationLogin] > 0,
		IsRegistering:       s.pending[MutationRegister] > 0,
		IsLoggingOut:        s.pending[MutationLogout] > 0,
		LoginError:          s.errs[MutationLogin],
		RegisterError:       s.errs[MutationRegister],
		LogoutError:         s.errs[MutationLogout],
	}
	switch {
	case s.fetched && s.user != nil:
		st.Status = StatusAuthenticated
	case s.fetched:
		st.Status = StatusAnonymous
	case s.loading > 0:
		st.Status = StatusLoading
	default:
		st.Status = StatusUnknown
	}
	return st
}

// Cached returns the slot and whether it has been populated and is still
// within the stale window.
func (s *Store) Cached() (user *User, fetched, fresh bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fetched {
		return nil, false, false
	}
	return s.user, true, s.clock.Since(s.fetchedAt) < s.staleTime
}

// BeginRead registers an identity read. ok is false once the store is closed.
func (s *Store) BeginRead() (t Ticket, ok bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Ticket{}, false
	}
	s.loading++
	t = Ticket{seq: s.commits}
	firstLoad := !s.fetched && s.loading == 1
	s.mu.Unlock()

	if firstLoad {
		s.notify()
	}
	return t, true
}

// CommitRead ends a read started with BeginRead and stores its result unless
// a mutation committed in the meantime. It returns the slot's value
// afterwards and whether the write happened.
func (s *Store) CommitRead(t Ticket, user *User, checkFailed bool) (*User, bool) {
	s.mu.Lock()
	s.loading--
	accepted := !s.closed && t.seq == s.commits
	if accepted {
		s.user = user
		s.fetched = true
		s.fetchedAt = s.clock.Now()
		s.identityCheckFailed = checkFailed
	}
	current := user
	if s.fetched {
		current = s.user
	}
	s.mu.Unlock()

	s.notify()
	return current, accepted
}

// AbandonRead ends a read without storing anything.
func (s *Store) AbandonRead() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()

	s.notify()
}

// BeginMutation registers a login, register or logout call and clears the
// error left by the previous call of the same kind.
func (s *Store) BeginMutation(m Mutation) Ticket {
	s.mu.Lock()
	s.seq++
	t := Ticket{seq: s.seq}
	s.pending[m]++
	s.errs[m] = nil
	s.mu.Unlock()

	s.notify()
	return t
}

// EndMutation finishes a mutation. On success (err == nil) the slot is
// overwritten with user if no newer call has started since t was issued.
// On failure the error is recorded and the slot is left alone.
func (s *Store) EndMutation(m Mutation, t Ticket, user *User, err error) (committed bool) {
	s.mu.Lock()
	s.pending[m]--
	if err != nil {
		s.errs[m] = err
	} else if !s.closed && t.seq == s.seq {
		s.user = user
		s.fetched = true
		s.fetchedAt = s.clock.Now()
		s.identityCheckFailed = false
		s.commits++
		committed = true
	}
	s.mu.Unlock()

	s.notify()
	return committed
}

// Subscribe registers fn to receive the state after every change. fn runs
// on the goroutine that made the change and must not call back into
// Subscribe or Close.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	if !s.closed {
		s.subs[id] = fn
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	st := s.stateLocked()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close drops all subscribers. Later reads fail with ErrClosed and later
// writes are discarded; State keeps returning the last value.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[int]func(State))
	s.mu.Unlock()
}
