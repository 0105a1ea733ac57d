package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

const routesPath = "/api/routes"

// RoutesSnapshot is a copy of the route store state.
type RoutesSnapshot struct {
	FloorID    string         `json:"floorId,omitempty"`
	Routes     []models.Route `json:"routes"`
	ComputedAt *time.Time     `json:"computedAt,omitempty"`
	OpState
}

// RouteStore keeps the routes of the most recent computation for one floor.
type RouteStore struct {
	api API
	log *logger.Logger

	mu         sync.RWMutex
	floorID    string
	routes     []models.Route
	computedAt *time.Time
	ops        tracker
}

func NewRouteStore(api API, log *logger.Logger) *RouteStore {
	return &RouteStore{
		api: api,
		log: logger.OrNop(log).Named("routes"),
		ops: newTracker(),
	}
}

// FetchHistory loads the computation history and keeps only the newest run.
func (s *RouteStore) FetchHistory(ctx context.Context, floorID string) ([]models.Route, error) {
	return s.load(ctx, OpHistory, http.MethodGet, floorID, "history", decodeHistory)
}

// FetchLatest loads the latest computation of a floor.
func (s *RouteStore) FetchLatest(ctx context.Context, floorID string) ([]models.Route, error) {
	return s.load(ctx, OpLatest, http.MethodGet, floorID, "latest", decodeDocument)
}

// Compute asks the backend to recompute routes now and keeps the result.
func (s *RouteStore) Compute(ctx context.Context, floorID string) ([]models.Route, error) {
	return s.load(ctx, OpCompute, http.MethodPost, floorID, "compute", decodeDocument)
}

func (s *RouteStore) load(ctx context.Context, op, method, floorID, endpoint string,
	decode func(json.RawMessage) (models.RouteDocument, bool, error)) ([]models.Route, error) {
	if floorID == "" {
		return nil, ErrFloorRequired
	}

	s.mu.Lock()
	s.ops.begin(op)
	s.mu.Unlock()

	res := s.api.Request(ctx, method, routesPath+"/"+url.PathEscape(floorID)+"/"+endpoint, transport.RequestOptions{})
	var (
		doc   models.RouteDocument
		found bool
		opErr *OpError
	)
	if res.Success {
		var err error
		if doc, found, err = decode(res.Data); err != nil {
			opErr = decodeError(op, res, err)
		}
	} else {
		opErr = opError(op, res)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if opErr != nil {
		s.ops.fail(op, opErr.Message)
		s.log.Warnw("route_op_failed", "op", op, "floor_id", floorID, "status", opErr.Status, "err", opErr.Message)
		return nil, opErr
	}
	s.floorID = floorID
	s.routes = doc.Routes
	if s.routes == nil {
		s.routes = []models.Route{}
	}
	s.computedAt = nil
	if found && !doc.ComputedAt.IsZero() {
		at := doc.ComputedAt
		s.computedAt = &at
	}
	s.ops.succeed(op)
	return append([]models.Route(nil), s.routes...), nil
}

// decodeHistory accepts the history as an array of documents or as
// {data|history: [...]} and returns the newest one.
func decodeHistory(raw json.RawMessage) (models.RouteDocument, bool, error) {
	if len(raw) == 0 {
		return models.RouteDocument{}, false, nil
	}
	var docs []models.RouteDocument
	if err := json.Unmarshal(raw, &docs); err != nil {
		var wrapped struct {
			Data    []models.RouteDocument `json:"data"`
			History []models.RouteDocument `json:"history"`
		}
		if json.Unmarshal(raw, &wrapped) != nil {
			return models.RouteDocument{}, false, err
		}
		docs = wrapped.Data
		if docs == nil {
			docs = wrapped.History
		}
	}
	doc, ok := models.LatestRouteDocument(docs)
	return doc, ok, nil
}

// decodeDocument reads a single computation. A bare route array is accepted
// as a document without a timestamp.
func decodeDocument(raw json.RawMessage) (models.RouteDocument, bool, error) {
	if len(raw) == 0 {
		return models.RouteDocument{}, false, nil
	}
	var doc models.RouteDocument
	err := json.Unmarshal(raw, &doc)
	if err == nil {
		return doc, true, nil
	}
	var routes []models.Route
	if json.Unmarshal(raw, &routes) == nil {
		return models.RouteDocument{Routes: routes}, true, nil
	}
	return models.RouteDocument{}, false, fmt.Errorf("route document: %w", err)
}

func (s *RouteStore) Routes() []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Route(nil), s.routes...)
}

// ComputedAt is when the working routes were computed.
func (s *RouteStore) ComputedAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.computedAt == nil {
		return time.Time{}, false
	}
	return *s.computedAt, true
}

// HazardousRoutes returns the routes the backend flagged as exceeding an edge threshold.
func (s *RouteStore) HazardousRoutes() []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Route
	for _, r := range s.routes {
		if r.ExceedsThresholds {
			out = append(out, r)
		}
	}
	return out
}

func (s *RouteStore) RoutesFrom(startNode string) []models.Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Route
	for _, r := range s.routes {
		if r.StartNode == startNode {
			out = append(out, r)
		}
	}
	return out
}

func (s *RouteStore) Snapshot() RoutesSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := RoutesSnapshot{
		FloorID: s.floorID,
		Routes:  append([]models.Route{}, s.routes...),
		OpState: s.ops.state(),
	}
	if s.computedAt != nil {
		at := *s.computedAt
		snap.ComputedAt = &at
	}
	return snap
}
