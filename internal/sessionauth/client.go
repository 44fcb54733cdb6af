// Package sessionauth is the client side of the cookie-session auth API. A
// Client answers "who is logged in" from a cached slot, refreshing it lazily,
// and runs login, register and logout against the backend while keeping the
// slot consistent with their outcome.
package sessionauth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const identityKey = "identity"

type Options struct {
	// BaseURL is the API root, e.g. https://agency.example.
	BaseURL string
	// HTTPClient is optional; see NewAPI.
	HTTPClient *http.Client
	// Store is optional. A store passed in is not closed by Client.Close.
	Store *Store
	// Clock and StaleTime configure the store created when Store is nil.
	Clock     clockwork.Clock
	StaleTime time.Duration
	Logger    *zap.Logger
}

// Client is the session facade. It is safe for concurrent use.
type Client struct {
	api       *API
	store     *Store
	ownsStore bool
	logger    *zap.Logger

	group      singleflight.Group
	refreshing atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	bg     sync.WaitGroup
}

func New(opts Options) (*Client, error) {
	api, err := NewAPI(opts.BaseURL, opts.HTTPClient)
	if err != nil {
		return nil, err
	}

	store, owns := opts.Store, false
	if store == nil {
		store, owns = NewStore(opts.Clock, opts.StaleTime), true
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		api:       api,
		store:     store,
		ownsStore: owns,
		logger:    logger.Named("sessionauth"),
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

// API returns the underlying transport, mainly for cookie persistence.
func (c *Client) API() *API {
	return c.api
}

func (c *Client) State() State {
	return c.store.State()
}

func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(fn)
}

// CurrentUser returns the logged-in user or nil for an anonymous visitor.
// A fresh cached value is returned without a request; a stale one is
// returned immediately while a refresh runs in the background. Otherwise
// the identity endpoint is read, with concurrent callers sharing one
// request. The only errors are ErrClosed and ctx's error.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	user, fetched, fresh := c.store.Cached()
	if fetched {
		if !fresh {
			c.refreshInBackground()
		}
		return user, nil
	}
	return c.read(ctx)
}

// Refresh reads the identity endpoint regardless of the cache.
func (c *Client) Refresh(ctx context.Context) (*User, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return c.read(ctx)
}

func (c *Client) read(ctx context.Context) (*User, error) {
	ch := c.group.DoChan(identityKey, c.fetchIdentity)
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		user, _ := res.Val.(*User)
		return user, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchIdentity runs once per singleflight group. It is detached from the
// callers' contexts so one caller giving up does not fail the others.
func (c *Client) fetchIdentity() (any, error) {
	ticket, ok := c.store.BeginRead()
	if !ok {
		return nil, ErrClosed
	}

	ctx, cancel := context.WithTimeout(c.ctx, defaultTimeout)
	defer cancel()

	user, checkFailed := c.api.FetchUser(ctx)
	if c.ctx.Err() != nil {
		c.store.AbandonRead()
		return nil, ErrClosed
	}
	if checkFailed {
		c.logger.Debug("identity check failed, treating session as anonymous")
	}

	current, accepted := c.store.CommitRead(ticket, user, checkFailed)
	if !accepted {
		c.logger.Debug("identity read superseded by a newer session change")
	}
	return current, nil
}

func (c *Client) refreshInBackground() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.refreshing.Store(false)
		return
	}
	c.bg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.bg.Done()
		defer c.refreshing.Store(false)
		<-c.group.DoChan(identityKey, c.fetchIdentity)
	}()
}

// Login posts credentials. On success the cache slot holds the returned
// user before Login returns. A non-2xx answer is an *AuthenticationError
// and leaves the slot untouched.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	return c.mutate(ctx, MutationLogin, func(ctx context.Context) (*User, error) {
		return c.api.Login(ctx, email, password)
	})
}

// Register creates an account and logs it in, with the same contract as
// Login.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	return c.mutate(ctx, MutationRegister, func(ctx context.Context) (*User, error) {
		return c.api.Register(ctx, in)
	})
}

// Logout ends the session. On success the slot is cleared; on failure it
// is left as it was.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.mutate(ctx, MutationLogout, func(ctx context.Context) (*User, error) {
		return nil, c.api.Logout(ctx)
	})
	return err
}

func (c *Client) mutate(ctx context.Context, m Mutation, call func(context.Context) (*User, error)) (*User, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	ticket := c.store.BeginMutation(m)
	user, err := call(ctx)
	committed := c.store.EndMutation(m, ticket, user, err)

	op := mutationName(m)
	if err != nil {
		c.logger.Debug("session change failed", zap.String("op", op), zap.Error(err))
		return nil, err
	}
	if !committed {
		c.logger.Debug("session change superseded by a newer call", zap.String("op", op))
	}
	return user, nil
}

func mutationName(m Mutation) string {
	switch m {
	case MutationLogin:
		return "login"
	case MutationRegister:
		return "register"
	default:
		return "logout"
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	return closed || c.store.Closed()
}

// Close stops background refreshes and waits for them to finish. The store
// is closed only if the client created it.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.bg.Wait()
	if c.ownsStore {
		c.store.Close()
	}
}
