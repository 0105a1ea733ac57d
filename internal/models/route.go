package models

import (
	"encoding/json"
	"time"
)

// Route is a server-computed path from a start node to an exit.
type Route struct {
	StartNode         string          `json:"startNode"`
	ExitNode          string          `json:"exitNode"`
	Path              []string        `json:"path"`
	Distance          float64         `json:"distance"`
	DistanceMeters    float64         `json:"distanceMeters"`
	HazardLevel       string          `json:"hazardLevel"`
	ExceedsThresholds bool            `json:"exceedsThresholds"`
	HazardDetails     json.RawMessage `json:"hazardDetails,omitempty"`
}

// RouteDocument is one route computation run.
type RouteDocument struct {
	ID         string    `json:"_id,omitempty"`
	FloorID    string    `json:"floorId,omitempty"`
	ComputedAt time.Time `json:"computedAt"`
	Routes     []Route   `json:"routes"`
}

// LatestRouteDocument returns the document with the newest ComputedAt. Ties
// keep the later element so an already time-ordered history yields its tail.
func LatestRouteDocument(docs []RouteDocument) (RouteDocument, bool) {
	if len(docs) == 0 {
		return RouteDocument{}, false
	}
	latest := docs[0]
	for _, d := range docs[1:] {
		if !d.ComputedAt.Before(latest.ComputedAt) {
			latest = d
		}
	}
	return latest, true
}
