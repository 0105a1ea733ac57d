package repository

import (
	"context"
	"database/sql"
)

// Keys of the console's durable preferences.
const (
	KeyAdminToken       = "admin_token"
	KeyAPIBaseURL       = "api_base_url"
	KeySidebarCollapsed = "sidebar_collapsed"
)

// PrefsRepo is a small durable key/value store for console preferences.
type PrefsRepo interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Repository struct {
	Prefs PrefsRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Prefs: NewPrefsSQLite(db),
	}
}
