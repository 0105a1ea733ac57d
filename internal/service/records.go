package service

import (
	"context"
	"net/http"
	"sync"

	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

const (
	recordsPath = "/api/records"
	// DefaultRecordLimit is the page size used when the filter leaves it unset.
	DefaultRecordLimit = 20
)

// RecordsSnapshot is a copy of the record store state.
type RecordsSnapshot struct {
	Records    []models.Record     `json:"records"`
	Filter     models.RecordFilter `json:"filter"`
	Pagination models.Pagination   `json:"pagination"`
	OpState
}

// RecordStore pages through the detection records of one floor.
type RecordStore struct {
	api API
	log *logger.Logger

	mu         sync.RWMutex
	records    []models.Record
	filter     models.RecordFilter
	pagination models.Pagination
	ops        tracker
}

func NewRecordStore(api API, log *logger.Logger) *RecordStore {
	return &RecordStore{
		api:     api,
		log:     logger.OrNop(log).Named("records"),
		records: []models.Record{},
		ops:     newTracker(),
	}
}

// List fetches one page of records. A floor id is mandatory and is checked
// before anything is sent. A filter that selects different records than the
// previous one starts again from page 1.
func (s *RecordStore) List(ctx context.Context, f models.RecordFilter) (models.RecordPage, error) {
	if f.FloorID == "" {
		s.mu.Lock()
		s.ops.err = ErrFloorRequired.Error()
		s.mu.Unlock()
		return models.RecordPage{}, ErrFloorRequired
	}
	if f.Limit <= 0 {
		f.Limit = DefaultRecordLimit
	}

	s.mu.Lock()
	if !f.SameScope(s.filter) || f.Page < 1 {
		f.Page = 1
	}
	s.mu.Unlock()
	return s.fetch(ctx, f)
}

// GoToPage re-runs the current filter on another page.
func (s *RecordStore) GoToPage(ctx context.Context, page int) (models.RecordPage, error) {
	s.mu.RLock()
	f := s.filter
	s.mu.RUnlock()
	if f.FloorID == "" {
		return s.List(ctx, f)
	}
	if page < 1 {
		page = 1
	}
	f.Page = page
	return s.fetch(ctx, f)
}

func (s *RecordStore) NextPage(ctx context.Context) (models.RecordPage, error) {
	s.mu.RLock()
	p := s.pagination
	s.mu.RUnlock()
	if !p.HasNextPage {
		return s.page(), nil
	}
	return s.GoToPage(ctx, p.Page+1)
}

func (s *RecordStore) PrevPage(ctx context.Context) (models.RecordPage, error) {
	s.mu.RLock()
	p := s.pagination
	s.mu.RUnlock()
	if !p.HasPrevPage {
		return s.page(), nil
	}
	return s.GoToPage(ctx, p.Page-1)
}

func (s *RecordStore) fetch(ctx context.Context, f models.RecordFilter) (models.RecordPage, error) {
	s.mu.Lock()
	s.ops.begin(OpList)
	s.mu.Unlock()

	res := s.api.Request(ctx, http.MethodGet, recordsPath, transport.RequestOptions{Query: recordQuery(f)})
	var (
		page  models.RecordPage
		opErr *OpError
	)
	if res.Success {
		var err error
		if page, err = models.ParseRecordPage(res.Data, f); err != nil {
			opErr = decodeError(OpList, res, err)
		}
	} else {
		opErr = opError(OpList, res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opErr != nil {
		s.ops.fail(OpList, opErr.Message)
		s.log.Warnw("records_list_failed", "floor_id", f.FloorID, "page", f.Page, "status", opErr.Status, "err", opErr.Message)
		return models.RecordPage{}, opErr
	}
	f.Page = page.Pagination.Page
	s.filter = f
	s.records = page.Records
	s.pagination = page.Pagination
	s.ops.succeed(OpList)
	return copyPage(page), nil
}

func recordQuery(f models.RecordFilter) map[string]any {
	q := map[string]any{
		"floorId":   f.FloorID,
		"startDate": f.From,
		"endDate":   f.To,
		"page":      f.Page,
		"limit":     f.Limit,
	}
	if f.CameraID != "" {
		q["cameraId"] = f.CameraID
	}
	return q
}

func (s *RecordStore) page() models.RecordPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyPage(models.RecordPage{Records: s.records, Pagination: s.pagination})
}

func copyPage(p models.RecordPage) models.RecordPage {
	p.Records = append([]models.Record{}, p.Records...)
	return p
}

func (s *RecordStore) Pagination() models.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// FireAlerts returns the loaded records whose fire or smoke probability
// reaches threshold.
func (s *RecordStore) FireAlerts(threshold float64) []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Record
	for _, r := range s.records {
		if r.AIResult.FireProb >= threshold || r.AIResult.SmokeProb >= threshold {
			out = append(out, r)
		}
	}
	return out
}

func (s *RecordStore) Snapshot() RecordsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RecordsSnapshot{
		Records:    append([]models.Record{}, s.records...),
		Filter:     s.filter,
		Pagination: s.pagination,
		OpState:    s.ops.state(),
	}
}
