package models

import (
	"fmt"
	"time"
)

type FloorStatus string

const (
	FloorActive      FloorStatus = "active"
	FloorDisabled    FloorStatus = "disabled"
	FloorMaintenance FloorStatus = "maintenance"
)

// Valid reports whether s is one of the known floor statuses.
func (s FloorStatus) Valid() bool {
	switch s {
	case FloorActive, FloorDisabled, FloorMaintenance:
		return true
	}
	return false
}

// Floor is one building level: its evacuation graph plus camera and screen bindings.
type Floor struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Status      FloorStatus    `json:"status"`
	Nodes       []Node         `json:"nodes"`
	Edges       []Edge         `json:"edges"`
	Cameras     CameraBindings `json:"cameras"`
	Screens     Screens        `json:"screens"`
	StartPoints []string       `json:"startPoints"`
	ExitPoints  []string       `json:"exitPoints"`
	MapImage    *MapImage      `json:"mapImage,omitempty"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

type Node struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Label string  `json:"label,omitempty"`
	Type  string  `json:"type,omitempty"`
}

// Edge connects two nodes. Thresholds tell the route solver when the edge is hazardous.
type Edge struct {
	ID              string  `json:"id"`
	From            string  `json:"from"`
	To              string  `json:"to"`
	StaticWeight    float64 `json:"staticWeight"`
	PeopleThreshold int     `json:"peopleThreshold"`
	FireThreshold   float64 `json:"fireThreshold"`  // 0..1
	SmokeThreshold  float64 `json:"smokeThreshold"` // 0..1
}

// MapImage describes the floor plan image; width and height are physical meters.
type MapImage struct {
	RemoteURL    string  `json:"url,omitempty"`
	LocalURL     string  `json:"localUrl,omitempty"`
	WidthMeters  float64 `json:"widthMeters,omitempty"`
	HeightMeters float64 `json:"heightMeters,omitempty"`
}

// FloorPayload is what create/update submit. Cameras use the backend's
// cameraId → edgeId mapping.
type FloorPayload struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Status      FloorStatus       `json:"status,omitempty"`
	Nodes       []Node            `json:"nodes"`
	Edges       []Edge            `json:"edges"`
	Cameras     map[string]string `json:"cameras"`
	StartPoints []string          `json:"startPoints"`
	ExitPoints  []string          `json:"exitPoints"`
	MapImage    *MapImage         `json:"mapImage,omitempty"`
}

// Camera returns the camera with the given id.
func (f *Floor) Camera(id string) (*Camera, bool) {
	for i := range f.Cameras {
		if f.Cameras[i].ID == id {
			return &f.Cameras[i], true
		}
	}
	return nil, false
}

// Screen returns the screen with the given id.
func (f *Floor) Screen(id string) (*Screen, bool) {
	for i := range f.Screens.Items {
		if f.Screens.Items[i].ID == id {
			return &f.Screens.Items[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers can't mutate store state through shared slices.
func (f Floor) Clone() Floor {
	out := f
	out.Nodes = append([]Node(nil), f.Nodes...)
	out.Edges = append([]Edge(nil), f.Edges...)
	out.Cameras = append(CameraBindings(nil), f.Cameras...)
	out.Screens.Items = append([]Screen(nil), f.Screens.Items...)
	out.StartPoints = append([]string(nil), f.StartPoints...)
	out.ExitPoints = append([]string(nil), f.ExitPoints...)
	if f.MapImage != nil {
		img := *f.MapImage
		out.MapImage = &img
	}
	return out
}

// CheckIntegrity lists dangling references: edge endpoints, camera edges and
// start/exit points that name ids not declared on the floor. The authoring
// validator does not call this; it is a diagnostic for already-stored floors.
func (f Floor) CheckIntegrity() []string {
	nodes := make(map[string]struct{}, len(f.Nodes))
	for _, n := range f.Nodes {
		nodes[n.ID] = struct{}{}
	}
	edges := make(map[string]struct{}, len(f.Edges))
	for _, e := range f.Edges {
		edges[e.ID] = struct{}{}
	}

	var problems []string
	for _, e := range f.Edges {
		if _, ok := nodes[e.From]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s: unknown from node %q", e.ID, e.From))
		}
		if _, ok := nodes[e.To]; !ok {
			problems = append(problems, fmt.Sprintf("edge %s: unknown to node %q", e.ID, e.To))
		}
	}
	for _, c := range f.Cameras {
		if _, ok := edges[c.EdgeID]; !ok {
			problems = append(problems, fmt.Sprintf("camera %s: unknown edge %q", c.ID, c.EdgeID))
		}
	}
	for _, p := range f.StartPoints {
		if _, ok := nodes[p]; !ok {
			problems = append(problems, fmt.Sprintf("start point %q: unknown node", p))
		}
	}
	for _, p := range f.ExitPoints {
		if _, ok := nodes[p]; !ok {
			problems = append(problems, fmt.Sprintf("exit point %q: unknown node", p))
		}
	}
	return problems
}
