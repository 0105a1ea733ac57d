package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evacconsole/internal/credentials"
	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

const (
	healthPath = "/api/health"
	// verifyPath is an admin-only endpoint used to check a token on sign-in.
	verifyPath = settingsPath
)

// SystemSnapshot is the sign-in and health view.
type SystemSnapshot struct {
	Authenticated  bool           `json:"authenticated"`
	AuthFailed     bool           `json:"authFailed"`
	BaseURL        string         `json:"baseUrl"`
	TokenExpiresAt *time.Time     `json:"tokenExpiresAt,omitempty"`
	Health         *models.Health `json:"health,omitempty"`
	OpState
}

// SystemStore drives the admin token lifecycle and polls backend health.
type SystemStore struct {
	api   API
	creds CredentialStore
	log   *logger.Logger

	mu     sync.RWMutex
	health *models.Health
	ops    tracker
}

func NewSystemStore(api API, creds CredentialStore, log *logger.Logger) *SystemStore {
	return &SystemStore{
		api:   api,
		creds: creds,
		log:   logger.OrNop(log).Named("system"),
		ops:   newTracker(),
	}
}

// Login stores the token (and base URL when given) and checks it against the
// backend. A rejected token is purged by the transport's 403 handling.
func (s *SystemStore) Login(ctx context.Context, token, baseURL string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrTokenRequired
	}

	s.mu.Lock()
	s.ops.begin(OpLogin)
	s.mu.Unlock()

	u := credentials.Update{Token: &token}
	if strings.TrimSpace(baseURL) != "" {
		u.BaseURL = &baseURL
	}
	if err := s.creds.Set(ctx, u); err != nil {
		s.mu.Lock()
		s.ops.fail(OpLogin, err.Error())
		s.mu.Unlock()
		s.log.Errorw("credentials_save_failed", "err", err)
		return err
	}

	res := s.api.Request(ctx, http.MethodGet, verifyPath, transport.RequestOptions{})
	s.mu.Lock()
	defer s.mu.Unlock()
	if !res.Success {
		opErr := opError(OpLogin, res)
		s.ops.fail(OpLogin, opErr.Message)
		s.log.Warnw("login_failed", "status", res.Status, "kind", res.Kind(), "err", res.Error)
		return opErr
	}
	s.ops.succeed(OpLogin)
	s.log.Infow("login_succeeded", "base_url", s.creds.Get().BaseURL)
	return nil
}

// Logout forgets the token. The base URL stays.
func (s *SystemStore) Logout(ctx context.Context) error {
	if err := s.creds.Clear(ctx); err != nil {
		s.log.Errorw("credentials_clear_failed", "err", err)
		return err
	}
	s.mu.Lock()
	s.health = nil
	s.mu.Unlock()
	return nil
}

func (s *SystemStore) CheckHealth(ctx context.Context) (models.Health, error) {
	s.mu.Lock()
	s.ops.begin(OpHealth)
	s.mu.Unlock()

	res := s.api.Request(ctx, http.MethodGet, healthPath, transport.RequestOptions{})
	var h models.Health
	var opErr *OpError
	if !res.Success {
		opErr = opError(OpHealth, res)
	} else if err := res.Decode(&h); err != nil {
		opErr = decodeError(OpHealth, res, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opErr != nil {
		s.ops.fail(OpHealth, opErr.Message)
		return models.Health{}, opErr
	}
	s.health = &h
	s.ops.succeed(OpHealth)
	return h, nil
}

// Authenticated reports whether a token is set.
func (s *SystemStore) Authenticated() bool {
	return s.creds.Get().HasToken()
}

// TokenExpiry reads the exp claim of a JWT-shaped admin token. The signature
// is not checked; the backend does that. Opaque tokens report false.
func (s *SystemStore) TokenExpiry() (time.Time, bool) {
	return tokenExpiry(s.creds.Get().Token)
}

func tokenExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *SystemStore) Snapshot() SystemSnapshot {
	creds := s.creds.Get()
	snap := SystemSnapshot{
		Authenticated: creds.HasToken(),
		AuthFailed:    s.creds.AuthFailed(),
		BaseURL:       creds.BaseURL,
	}
	if exp, ok := tokenExpiry(creds.Token); ok {
		snap.TokenExpiresAt = &exp
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.health != nil {
		h := *s.health
		snap.Health = &h
	}
	snap.OpState = s.ops.state()
	return snap
}
