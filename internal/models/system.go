package models

import (
	"encoding/json"
	"time"
)

// Health is the backend's global health report.
type Health struct {
	Success  bool            `json:"success"`
	Database DatabaseHealth  `json:"database"`
	Uptime   float64         `json:"uptime"`
	Memory   json.RawMessage `json:"memory,omitempty"`
	Version  string          `json:"version"`
}

type DatabaseHealth struct {
	Status string `json:"status"`
	Name   string `json:"name"`
}

// Healthy reports whether the backend and its database are up.
func (h Health) Healthy() bool {
	return h.Success && (h.Database.Status == "" || h.Database.Status == "connected" || h.Database.Status == "ok")
}

// Settings holds the backend's cloud configuration.
type Settings struct {
	CloudSync       CloudSync       `json:"cloudSync"`
	CloudProcessing CloudProcessing `json:"cloudProcessing"`
}

type CloudSync struct {
	Enabled         bool       `json:"enabled"`
	IntervalMinutes int        `json:"intervalMinutes,omitempty"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`
}

type CloudProcessing struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider,omitempty"`
}

// SyncReport is what a manual sync trigger returns.
type SyncReport struct {
	Synced    int        `json:"synced"`
	Failed    int        `json:"failed"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}
