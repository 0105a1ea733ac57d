// Package credentials holds the console's base URL and admin token.
//
// One Context is built at startup and passed explicitly to whatever needs it;
// Transport reads it through an accessor on every call so a credential change
// applies to the very next request.
package credentials

import (
	"context"
	"strings"
	"sync"

	"evacconsole/internal/logger"
	"evacconsole/internal/repository"
)

// Credentials is a point-in-time copy of the credential context.
// An empty Token means no token is configured.
type Credentials struct {
	BaseURL string `json:"base_url"`
	Token   string `json:"token,omitempty"`
}

// HasToken reports whether an admin token is set.
func (c Credentials) HasToken() bool { return c.Token != "" }

// Update carries the fields to change; nil fields are left untouched.
type Update struct {
	Token   *string
	BaseURL *string
}

// Storage is the durable side of the context.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Context struct {
	storage Storage
	log     *logger.Logger

	mu         sync.RWMutex
	current    Credentials
	authFailed bool
}

// New loads the persisted token and base URL. defaultBaseURL is used when no
// base URL has been stored yet.
func New(ctx context.Context, storage Storage, defaultBaseURL string, log *logger.Logger) (*Context, error) {
	c := &Context{
		storage: storage,
		log:     logger.OrNop(log),
		current: Credentials{BaseURL: normalizeBaseURL(defaultBaseURL)},
	}

	token, ok, err := storage.Get(ctx, repository.KeyAdminToken)
	if err != nil {
		return nil, err
	}
	if ok {
		c.current.Token = token
	}

	baseURL, ok, err := storage.Get(ctx, repository.KeyAPIBaseURL)
	if err != nil {
		return nil, err
	}
	if ok && strings.TrimSpace(baseURL) != "" {
		c.current.BaseURL = normalizeBaseURL(baseURL)
	}
	return c, nil
}

// Get returns the current credentials.
func (c *Context) Get() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// AuthFailed reports whether the last token was rejected by the backend and
// nothing has been set since.
func (c *Context) AuthFailed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authFailed
}

// Set writes each present field to storage, then to memory, and resets the
// auth-failure flag. It applies all fields or none: memory only changes once
// every write succeeded, and a stored base URL is put back when the token
// write fails.
func (c *Context) Set(ctx context.Context, u Update) error {
	var baseURL, token string
	var restoreBaseURL func()

	if u.BaseURL != nil {
		baseURL = normalizeBaseURL(*u.BaseURL)
		prev, had, err := c.storage.Get(ctx, repository.KeyAPIBaseURL)
		if err != nil {
			return err
		}
		if err := c.storage.Set(ctx, repository.KeyAPIBaseURL, baseURL); err != nil {
			return err
		}
		restoreBaseURL = func() {
			var err error
			if had {
				err = c.storage.Set(ctx, repository.KeyAPIBaseURL, prev)
			} else {
				err = c.storage.Delete(ctx, repository.KeyAPIBaseURL)
			}
			if err != nil {
				c.log.Warnw("credentials_restore_failed", "key", repository.KeyAPIBaseURL, "err", err)
			}
		}
	}
	if u.Token != nil {
		token = strings.TrimSpace(*u.Token)
		if err := c.storage.Set(ctx, repository.KeyAdminToken, token); err != nil {
			if restoreBaseURL != nil {
				restoreBaseURL()
			}
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if u.BaseURL != nil {
		c.current.BaseURL = baseURL
	}
	if u.Token != nil {
		c.current.Token = token
	}
	c.authFailed = false
	return nil
}

// Clear removes the token from memory and storage; the base URL is kept.
func (c *Context) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.current.Token = ""
	c.mu.Unlock()
	return c.storage.Delete(ctx, repository.KeyAdminToken)
}

// Invalidate is called when the backend rejects the token. It clears the
// token and records the failure; storage errors are only logged.
func (c *Context) Invalidate(ctx context.Context) {
	if err := c.Clear(ctx); err != nil {
		c.log.Warnw("credentials_purge_failed", "err", err)
	}
	c.mu.Lock()
	c.authFailed = true
	c.mu.Unlock()
}

func normalizeBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
