// Package graphedit holds the in-progress floor graph an operator edits
// before it is submitted. Numeric fields stay as typed text until Build.
package graphedit

import (
	"errors"
	"fmt"
	"strconv"

	"evacconsole/internal/models"
)

var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrUnknownField    = errors.New("unknown field")
)

type NodeDraft struct {
	ID    string `json:"id"`
	X     string `json:"x"`
	Y     string `json:"y"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

type EdgeDraft struct {
	ID              string `json:"id"`
	From            string `json:"from"`
	To              string `json:"to"`
	StaticWeight    string `json:"staticWeight"`
	PeopleThreshold string `json:"peopleThreshold"`
	FireThreshold   string `json:"fireThreshold"`
	SmokeThreshold  string `json:"smokeThreshold"`
}

// CameraPair is one row of the camera editor.
type CameraPair struct {
	CameraID string `json:"cameraId"`
	EdgeID   string `json:"edgeId"`
}

// ImageUpload is a floor plan picked for upload.
type ImageUpload struct {
	Filename     string  `json:"filename"`
	Content      []byte  `json:"-"`
	WidthMeters  float64 `json:"widthMeters"`
	HeightMeters float64 `json:"heightMeters"`
}

// Draft is a floor being created or edited. StartPoints and ExitPoints are
// comma-separated node ids as typed.
type Draft struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Status      models.FloorStatus `json:"status"`
	Nodes       []NodeDraft        `json:"nodes"`
	Edges       []EdgeDraft        `json:"edges"`
	Cameras     []CameraPair       `json:"cameras"`
	StartPoints string             `json:"startPoints"`
	ExitPoints  string             `json:"exitPoints"`
	Image       *ImageUpload       `json:"image,omitempty"`
	MapImage    *models.MapImage   `json:"mapImage,omitempty"`
}

func New() *Draft {
	return &Draft{Status: models.FloorActive}
}

// AddNode appends a node with the next provisional id and returns its index.
func (d *Draft) AddNode() int {
	d.Nodes = append(d.Nodes, NodeDraft{ID: fmt.Sprintf("N%d", len(d.Nodes)+1), X: "0", Y: "0"})
	return len(d.Nodes) - 1
}

func (d *Draft) AddEdge() int {
	d.Edges = append(d.Edges, EdgeDraft{
		ID:              fmt.Sprintf("E%d", len(d.Edges)+1),
		StaticWeight:    formatFloat(DefaultStaticWeight),
		PeopleThreshold: strconv.Itoa(DefaultPeopleThreshold),
		FireThreshold:   formatFloat(DefaultFireThreshold),
		SmokeThreshold:  formatFloat(DefaultSmokeThreshold),
	})
	return len(d.Edges) - 1
}

func (d *Draft) AddCamera() int {
	d.Cameras = append(d.Cameras, CameraPair{CameraID: fmt.Sprintf("CAM%d", len(d.Cameras)+1)})
	return len(d.Cameras) - 1
}

func (d *Draft) UpdateNode(i int, n NodeDraft) error {
	if i < 0 || i >= len(d.Nodes) {
		return ErrIndexOutOfRange
	}
	d.Nodes[i] = n
	return nil
}

func (d *Draft) UpdateEdge(i int, e EdgeDraft) error {
	if i < 0 || i >= len(d.Edges) {
		return ErrIndexOutOfRange
	}
	d.Edges[i] = e
	return nil
}

func (d *Draft) UpdateCamera(i int, c CameraPair) error {
	if i < 0 || i >= len(d.Cameras) {
		return ErrIndexOutOfRange
	}
	d.Cameras[i] = c
	return nil
}

// SetNodeField updates one field of node i by its JSON name.
func (d *Draft) SetNodeField(i int, field, value string) error {
	if i < 0 || i >= len(d.Nodes) {
		return ErrIndexOutOfRange
	}
	n := &d.Nodes[i]
	switch field {
	case "id":
		n.ID = value
	case "x":
		n.X = value
	case "y":
		n.Y = value
	case "label":
		n.Label = value
	case "type":
		n.Type = value
	default:
		return fmt.Errorf("%w: node.%s", ErrUnknownField, field)
	}
	return nil
}

// SetEdgeField updates one field of edge i by its JSON name.
func (d *Draft) SetEdgeField(i int, field, value string) error {
	if i < 0 || i >= len(d.Edges) {
		return ErrIndexOutOfRange
	}
	e := &d.Edges[i]
	switch field {
	case "id":
		e.ID = value
	case "from":
		e.From = value
	case "to":
		e.To = value
	case "staticWeight":
		e.StaticWeight = value
	case "peopleThreshold":
		e.PeopleThreshold = value
	case "fireThreshold":
		e.FireThreshold = value
	case "smokeThreshold":
		e.SmokeThreshold = value
	default:
		return fmt.Errorf("%w: edge.%s", ErrUnknownField, field)
	}
	return nil
}

func (d *Draft) RemoveNode(i int) error {
	if i < 0 || i >= len(d.Nodes) {
		return ErrIndexOutOfRange
	}
	d.Nodes = append(d.Nodes[:i], d.Nodes[i+1:]...)
	return nil
}

func (d *Draft) RemoveEdge(i int) error {
	if i < 0 || i >= len(d.Edges) {
		return ErrIndexOutOfRange
	}
	d.Edges = append(d.Edges[:i], d.Edges[i+1:]...)
	return nil
}

func (d *Draft) RemoveCamera(i int) error {
	if i < 0 || i >= len(d.Cameras) {
		return ErrIndexOutOfRange
	}
	d.Cameras = append(d.Cameras[:i], d.Cameras[i+1:]...)
	return nil
}

// FromFloor loads an existing floor into a draft for editing.
func FromFloor(f models.Floor) *Draft {
	d := &Draft{
		ID:          f.ID,
		Name:        f.Name,
		Status:      f.Status,
		StartPoints: joinPoints(f.StartPoints),
		ExitPoints:  joinPoints(f.ExitPoints),
	}
	if f.MapImage != nil {
		img := *f.MapImage
		d.MapImage = &img
	}
	for _, n := range f.Nodes {
		d.Nodes = append(d.Nodes, NodeDraft{
			ID:    n.ID,
			X:     formatFloat(n.X),
			Y:     formatFloat(n.Y),
			Label: n.Label,
			Type:  n.Type,
		})
	}
	for _, e := range f.Edges {
		d.Edges = append(d.Edges, EdgeDraft{
			ID:              e.ID,
			From:            e.From,
			To:              e.To,
			StaticWeight:    formatFloat(e.StaticWeight),
			PeopleThreshold: strconv.Itoa(e.PeopleThreshold),
			FireThreshold:   formatFloat(e.FireThreshold),
			SmokeThreshold:  formatFloat(e.SmokeThreshold),
		})
	}
	for _, c := range f.Cameras {
		d.Cameras = append(d.Cameras, CameraPair{CameraID: c.ID, EdgeID: c.EdgeID})
	}
	return d
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
