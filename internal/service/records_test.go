package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"evacconsole/internal/models"
)

func TestRecordStore_List_RequiresFloor(t *testing.T) {
	api := newFakeAPI()
	s := NewRecordStore(api, nil)

	_, err := s.List(context.Background(), models.RecordFilter{CameraID: "CAM1"})
	if !errors.Is(err, ErrFloorRequired) {
		t.Fatalf("expected ErrFloorRequired, got %v", err)
	}
	if api.callCount() != 0 {
		t.Fatalf("records list without floor must not reach transport")
	}
	if s.Snapshot().Error == "" {
		t.Fatalf("expected store error")
	}
}

func TestRecordStore_List_LegacyArray(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records",
		ok(`[{"_id":"a","floorId":"f1"},{"_id":"b","floorId":"f1"},{"_id":"c","floorId":"f1"}]`))
	s := NewRecordStore(api, nil)

	page, err := s.List(context.Background(), models.RecordFilter{FloorID: "f1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	p := page.Pagination
	if p.Total != 3 || p.TotalPages != 1 || p.Page != 1 || p.HasNextPage || p.HasPrevPage {
		t.Fatalf("unexpected legacy pagination %+v", p)
	}
	if len(page.Records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(page.Records))
	}
}

func TestRecordStore_List_PaginatedEnvelopeAndQuery(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records",
		ok(`{"data":[{"_id":"a"}],"totalCount":45,"totalPages":3,"page":1,"limit":20}`))
	s := NewRecordStore(api, nil)

	page, err := s.List(context.Background(), models.RecordFilter{FloorID: "f1", CameraID: "CAM2"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pagination.Total != 45 || page.Pagination.TotalPages != 3 || !page.Pagination.HasNextPage {
		t.Fatalf("unexpected pagination %+v", page.Pagination)
	}

	q := api.lastCall().opts.Query
	if q["floorId"] != "f1" || q["cameraId"] != "CAM2" || q["page"] != 1 || q["limit"] != DefaultRecordLimit {
		t.Fatalf("unexpected query %+v", q)
	}
}

func TestRecordStore_FilterChangeResetsPage(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records", ok(`{"data":[],"totalCount":100,"totalPages":5}`))
	s := NewRecordStore(api, nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		filter   models.RecordFilter
		wantPage int
	}{
		{name: "first query starts at page 1", filter: models.RecordFilter{FloorID: "f1", Page: 3}, wantPage: 1},
		{name: "same scope keeps requested page", filter: models.RecordFilter{FloorID: "f1", Page: 3}, wantPage: 3},
		{name: "camera change resets", filter: models.RecordFilter{FloorID: "f1", CameraID: "CAM1", Page: 3}, wantPage: 1},
		{name: "floor change resets", filter: models.RecordFilter{FloorID: "f2", CameraID: "CAM1", Page: 2}, wantPage: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.List(ctx, tc.filter); err != nil {
				t.Fatalf("List: %v", err)
			}
			if got := api.lastCall().opts.Query["page"]; got != tc.wantPage {
				t.Fatalf("expected page %d, got %v", tc.wantPage, got)
			}
		})
	}
}

func TestRecordStore_NextAndPrevPage(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records", ok(`{"data":[{"_id":"a"}],"totalCount":40,"totalPages":2}`))
	s := NewRecordStore(api, nil)
	ctx := context.Background()

	if _, err := s.List(ctx, models.RecordFilter{FloorID: "f1"}); err != nil {
		t.Fatalf("List: %v", err)
	}
	page, err := s.NextPage(ctx)
	if err != nil {
		t.Fatalf("NextPage: %v", err)
	}
	if page.Pagination.Page != 2 || page.Pagination.HasNextPage || !page.Pagination.HasPrevPage {
		t.Fatalf("unexpected pagination after next %+v", page.Pagination)
	}

	calls := api.callCount()
	if _, err := s.NextPage(ctx); err != nil {
		t.Fatalf("NextPage at end: %v", err)
	}
	if api.callCount() != calls {
		t.Fatalf("next past the last page must not fetch")
	}

	page, err = s.PrevPage(ctx)
	if err != nil || page.Pagination.Page != 1 {
		t.Fatalf("PrevPage: page=%+v err=%v", page.Pagination, err)
	}
}

func TestRecordStore_FailureKeepsPage(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records", ok(`[{"_id":"a"}]`), failed(500, "HTTP 500: Internal Server Error"))
	s := NewRecordStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx, models.RecordFilter{FloorID: "f1"})

	if _, err := s.List(ctx, models.RecordFilter{FloorID: "f1"}); err == nil {
		t.Fatalf("expected error")
	}
	snap := s.Snapshot()
	if len(snap.Records) != 1 || snap.Error != "HTTP 500: Internal Server Error" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestRecordStore_FireAlerts(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/records", ok(`[
		{"_id":"a","aiResult":{"fireProb":0.9}},
		{"_id":"b","aiResult":{"smokeProb":0.75}},
		{"_id":"c","aiResult":{"fireProb":0.1,"smokeProb":0.2}}
	]`))
	s := NewRecordStore(api, nil)
	_, _ = s.List(context.Background(), models.RecordFilter{FloorID: "f1"})

	got := s.FireAlerts(0.7)
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected alerts %+v", got)
	}
}
