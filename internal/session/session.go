// Package session caches a single authenticated session to the Actual server.
//
// Establishing a session is expensive (login handshake plus budget file sync),
// and the bridge may be polled every minute across dozens of sensors. The
// cache amortizes that cost: it creates the session lazily, discards it after
// an idle timeout, revalidates it before reuse, and serializes all repair work
// so concurrent callers never race to create duplicate sessions.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a cached session is kept before being
// discarded regardless of validity.
const DefaultIdleTimeout = 30 * time.Minute

// Handle is one live session to the backend. Handles are owned exclusively by
// the Cache; callers borrow them and must treat every use as fallible, since a
// handle can be invalidated by the server at any time after it is returned.
type Handle interface {
	// Validate asks the backend whether this session is still accepted.
	Validate(ctx context.Context) (bool, error)
	// Close releases the session.
	Close() error
}

// Backend creates sessions. The production implementation is actual.Client;
// tests substitute a double.
type Backend interface {
	Open(ctx context.Context) (Handle, error)
}

// Error wraps any failure to produce a usable session. The underlying error
// kind (auth, TLS, network, unknown file) is reachable via errors.Is.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return "acquiring session: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Cache holds at most one live session. All fields behind mu are only touched
// while holding it; the handle is the sole piece of shared mutable state.
type Cache struct {
	backend     Backend
	idleTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu        sync.Mutex
	handle    Handle
	createdAt time.Time
}

// New creates a Cache around backend. A non-positive idleTimeout selects
// DefaultIdleTimeout.
func New(backend Backend, idleTimeout time.Duration, logger *slog.Logger) *Cache {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		backend:     backend,
		idleTimeout: idleTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// Acquire returns a live session, creating or repairing one if needed. The
// returned handle was valid at the moment of hand-out; the caller must still
// treat every use as fallible. The cache never retries: a creation or
// validation failure surfaces immediately as *Error.
func (c *Cache) Acquire(ctx context.Context) (Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Discard a session that outlived the idle timeout, valid or not.
	if c.handle != nil && c.now().Sub(c.createdAt) > c.idleTimeout {
		c.discard("session idle timeout reached")
	}

	// Revalidate a surviving session before reuse.
	if c.handle != nil {
		ok, err := c.handle.Validate(ctx)
		if err != nil {
			c.discard("session validation errored", slog.String("error", err.Error()))
		} else if !ok {
			c.discard("session no longer accepted by server")
		}
	}

	if c.handle == nil {
		h, err := c.backend.Open(ctx)
		if err != nil {
			return nil, &Error{Err: err}
		}
		c.handle = h
		c.createdAt = c.now()
		c.logger.Debug("session opened")
	}

	return c.handle, nil
}

// Close tears down any cached session. Called when the owning bridge instance
// shuts down; the cache remains usable afterwards, but normally nothing calls
// Acquire again.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handle != nil {
		c.discard("session cache closed")
	}
}

// discard closes and drops the current handle. Close errors are logged and
// swallowed: the handle is being thrown away regardless.
func (c *Cache) discard(reason string, attrs ...any) {
	if err := c.handle.Close(); err != nil {
		c.logger.Error("error closing session", slog.String("error", err.Error()))
	}
	c.logger.Debug(reason, attrs...)
	c.handle = nil
}
