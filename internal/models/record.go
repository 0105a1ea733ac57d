package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Record is one AI detection event produced by a camera.
type Record struct {
	ID        string    `json:"_id"`
	FloorID   string    `json:"floorId"`
	CameraID  string    `json:"cameraId"`
	EdgeID    string    `json:"edgeId"`
	Timestamp time.Time `json:"timestamp"`
	Processed bool      `json:"processed"`
	AIResult  AIResult  `json:"aiResult"`
	LocalPath string    `json:"localPath,omitempty"`
	CloudURL  string    `json:"cloudUrl,omitempty"`
}

type AIResult struct {
	PeopleCount int     `json:"peopleCount"`
	FireProb    float64 `json:"fireProb"`
	SmokeProb   float64 `json:"smokeProb"`
}

// RecordFilter scopes a records query. FloorID is mandatory.
type RecordFilter struct {
	FloorID  string    `json:"floorId"`
	CameraID string    `json:"cameraId,omitempty"`
	From     time.Time `json:"from,omitempty"`
	To       time.Time `json:"to,omitempty"`
	Page     int       `json:"page,omitempty"`
	Limit    int       `json:"limit,omitempty"`
}

// SameScope reports whether two filters select the same records, ignoring paging.
func (f RecordFilter) SameScope(o RecordFilter) bool {
	return f.FloorID == o.FloorID &&
		f.CameraID == o.CameraID &&
		f.From.Equal(o.From) &&
		f.To.Equal(o.To) &&
		f.Limit == o.Limit
}

// Pagination is derived from a records response.
type Pagination struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// RecordPage is one page of records plus its pagination.
type RecordPage struct {
	Records    []Record   `json:"records"`
	Pagination Pagination `json:"pagination"`
}

// ParseRecordPage reads either a pagination envelope or a legacy bare array.
// requested is the page/limit that was asked for; it fills gaps the server
// left out.
func ParseRecordPage(raw []byte, requested RecordFilter) (RecordPage, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return legacyPage(nil, requested), nil
	}
	if raw[0] == '[' {
		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			return RecordPage{}, fmt.Errorf("records: %w", err)
		}
		return legacyPage(records, requested), nil
	}

	var env struct {
		Data        []Record `json:"data"`
		Records     []Record `json:"records"`
		TotalCount  *int     `json:"totalCount"`
		TotalPages  *int     `json:"totalPages"`
		Page        int      `json:"page"`
		CurrentPage int      `json:"currentPage"`
		Limit       int      `json:"limit"`
		HasNextPage *bool    `json:"hasNextPage"`
		HasPrevPage *bool    `json:"hasPrevPage"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return RecordPage{}, fmt.Errorf("records page: %w", err)
	}

	records := env.Data
	if records == nil {
		records = env.Records
	}
	if records == nil {
		records = []Record{}
	}

	p := Pagination{
		Page:  firstPositive(env.Page, env.CurrentPage, requested.Page, 1),
		Limit: firstPositive(env.Limit, requested.Limit, len(records)),
	}
	if env.TotalCount != nil {
		p.Total = *env.TotalCount
	} else {
		p.Total = len(records)
	}
	switch {
	case env.TotalPages != nil:
		p.TotalPages = *env.TotalPages
	case p.Limit > 0:
		p.TotalPages = (p.Total + p.Limit - 1) / p.Limit
	default:
		p.TotalPages = 1
	}
	if env.HasNextPage != nil {
		p.HasNextPage = *env.HasNextPage
	} else {
		p.HasNextPage = p.Page < p.TotalPages
	}
	if env.HasPrevPage != nil {
		p.HasPrevPage = *env.HasPrevPage
	} else {
		p.HasPrevPage = p.Page > 1
	}
	return RecordPage{Records: records, Pagination: p}, nil
}

// legacyPage treats a bare array as the single, complete page.
func legacyPage(records []Record, requested RecordFilter) RecordPage {
	if records == nil {
		records = []Record{}
	}
	return RecordPage{
		Records: records,
		Pagination: Pagination{
			Page:       1,
			Limit:      firstPositive(requested.Limit, len(records)),
			Total:      len(records),
			TotalPages: 1,
		},
	}
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
