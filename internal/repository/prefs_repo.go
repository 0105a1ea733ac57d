package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type PrefsSQLite struct {
	db *sql.DB
}

func NewPrefsSQLite(db *sql.DB) *PrefsSQLite {
	return &PrefsSQLite{db: db}
}

var _ PrefsRepo = (*PrefsSQLite)(nil)

var errEmptyKey = errors.New("preference key is empty")

const (
	upsertPrefSQL = `
		INSERT INTO preferences (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`

	selectPrefSQL = `SELECT value FROM preferences WHERE key = ?`

	deletePrefSQL = `DELETE FROM preferences WHERE key = ?`
)

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errEmptyKey
	}
	return key, nil
}

// Get returns the stored value and whether the key exists.
func (r *PrefsSQLite) Get(ctx context.Context, key string) (string, bool, error) {
	key, err := normalizeKey(key)
	if err != nil {
		return "", false, err
	}
	var value string
	if err := r.db.QueryRowContext(ctx, selectPrefSQL, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("select preference %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value; updated_at is always written as UTC now.
func (r *PrefsSQLite) Set(ctx context.Context, key, value string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, upsertPrefSQL, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert preference %q: %w", key, err)
	}
	return nil
}

// Delete removes the key. Deleting a missing key is not an error.
func (r *PrefsSQLite) Delete(ctx context.Context, key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, deletePrefSQL, key); err != nil {
		return fmt.Errorf("delete preference %q: %w", key, err)
	}
	return nil
}
