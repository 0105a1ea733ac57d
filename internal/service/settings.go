package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

const (
	settingsPath = "/api/settings"
	syncPath     = settingsPath + "/sync"
)

type SettingsSnapshot struct {
	Settings   *models.Settings   `json:"settings,omitempty"`
	LastReport *models.SyncReport `json:"lastReport,omitempty"`
	OpState
}

// SettingsStore mirrors the backend's cloud sync and processing settings.
type SettingsStore struct {
	api API
	log *logger.Logger

	mu       sync.RWMutex
	settings *models.Settings
	report   *models.SyncReport
	ops      tracker
}

func NewSettingsStore(api API, log *logger.Logger) *SettingsStore {
	return &SettingsStore{
		api: api,
		log: logger.OrNop(log).Named("settings"),
		ops: newTracker(),
	}
}

func (s *SettingsStore) Fetch(ctx context.Context) (models.Settings, error) {
	return s.call(ctx, OpFetch, http.MethodGet, nil, nil)
}

// Update saves new settings. When the backend only acknowledges, the sent
// value becomes the cached one.
func (s *SettingsStore) Update(ctx context.Context, next models.Settings) (models.Settings, error) {
	return s.call(ctx, OpUpdate, http.MethodPut, next, &next)
}

func (s *SettingsStore) call(ctx context.Context, op, method string, body any, fallback *models.Settings) (models.Settings, error) {
	s.mu.Lock()
	s.ops.begin(op)
	s.mu.Unlock()

	res := s.api.Request(ctx, method, settingsPath, transport.RequestOptions{Body: body})
	var got models.Settings
	var opErr *OpError
	switch {
	case !res.Success:
		opErr = opError(op, res)
	default:
		err := res.Decode(&got)
		switch {
		case fallback != nil && (errors.Is(err, transport.ErrNoData) || (err == nil && !isSettingsDoc(res.Data))):
			got = *fallback
		case err != nil:
			opErr = decodeError(op, res, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opErr != nil {
		s.ops.fail(op, opErr.Message)
		s.log.Warnw("settings_op_failed", "op", op, "status", opErr.Status, "err", opErr.Message)
		return models.Settings{}, opErr
	}
	s.settings = &got
	s.ops.succeed(op)
	return got, nil
}

// isSettingsDoc tells a settings document apart from a bare acknowledgement.
func isSettingsDoc(raw json.RawMessage) bool {
	var keys map[string]json.RawMessage
	if json.Unmarshal(raw, &keys) != nil {
		return false
	}
	_, hasSync := keys["cloudSync"]
	_, hasProcessing := keys["cloudProcessing"]
	return hasSync || hasProcessing
}

// TriggerSync starts a manual cloud sync and keeps the report.
func (s *SettingsStore) TriggerSync(ctx context.Context) (models.SyncReport, error) {
	s.mu.Lock()
	s.ops.begin(OpSync)
	s.mu.Unlock()

	res := s.api.Request(ctx, http.MethodPost, syncPath, transport.RequestOptions{})
	var report models.SyncReport
	var opErr *OpError
	if !res.Success {
		opErr = opError(OpSync, res)
	} else if err := res.Decode(&report); err != nil && !errors.Is(err, transport.ErrNoData) {
		opErr = decodeError(OpSync, res, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opErr != nil {
		s.ops.fail(OpSync, opErr.Message)
		s.log.Warnw("settings_sync_failed", "status", opErr.Status, "err", opErr.Message)
		return models.SyncReport{}, opErr
	}
	s.report = &report
	s.ops.succeed(OpSync)
	s.log.Infow("settings_sync_triggered", "synced", report.Synced, "failed", report.Failed)
	return report, nil
}

func (s *SettingsStore) Snapshot() SettingsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := SettingsSnapshot{OpState: s.ops.state()}
	if s.settings != nil {
		v := *s.settings
		snap.Settings = &v
	}
	if s.report != nil {
		r := *s.report
		snap.LastReport = &r
	}
	return snap
}
