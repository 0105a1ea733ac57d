package graphedit

import (
	"strconv"
	"strings"

	"evacconsole/internal/models"
)

// Fallbacks for edge numbers left empty or unparsable. Missing hazard
// thresholds must never switch off hazard-based rerouting on the server.
const (
	DefaultStaticWeight    = 1.0
	DefaultPeopleThreshold = 10
	DefaultFireThreshold   = 0.7
	DefaultSmokeThreshold  = 0.6
)

// Build validates the draft and serializes it into the submission payload.
// Any validation error blocks the whole submission.
func (d *Draft) Build() (models.FloorPayload, error) {
	if errs := d.Validate(); errs != nil {
		return models.FloorPayload{}, errs
	}

	p := models.FloorPayload{
		ID:          strings.TrimSpace(d.ID),
		Name:        strings.TrimSpace(d.Name),
		Status:      d.Status,
		Nodes:       make([]models.Node, 0, len(d.Nodes)),
		Edges:       make([]models.Edge, 0, len(d.Edges)),
		Cameras:     make(map[string]string, len(d.Cameras)),
		StartPoints: splitPoints(d.StartPoints),
		ExitPoints:  splitPoints(d.ExitPoints),
	}
	if p.Status == "" {
		p.Status = models.FloorActive
	}

	for _, n := range d.Nodes {
		x, _ := strconv.ParseFloat(strings.TrimSpace(n.X), 64)
		y, _ := strconv.ParseFloat(strings.TrimSpace(n.Y), 64)
		p.Nodes = append(p.Nodes, models.Node{
			ID:    strings.TrimSpace(n.ID),
			X:     x,
			Y:     y,
			Label: n.Label,
			Type:  n.Type,
		})
	}
	for _, e := range d.Edges {
		p.Edges = append(p.Edges, models.Edge{
			ID:              strings.TrimSpace(e.ID),
			From:            strings.TrimSpace(e.From),
			To:              strings.TrimSpace(e.To),
			StaticWeight:    parseFloatOr(e.StaticWeight, DefaultStaticWeight),
			PeopleThreshold: parseIntOr(e.PeopleThreshold, DefaultPeopleThreshold),
			FireThreshold:   parseFloatOr(e.FireThreshold, DefaultFireThreshold),
			SmokeThreshold:  parseFloatOr(e.SmokeThreshold, DefaultSmokeThreshold),
		})
	}
	for _, c := range d.Cameras {
		id := strings.TrimSpace(c.CameraID)
		if id == "" {
			continue
		}
		p.Cameras[id] = strings.TrimSpace(c.EdgeID)
	}

	switch {
	case d.Image != nil:
		p.MapImage = &models.MapImage{WidthMeters: d.Image.WidthMeters, HeightMeters: d.Image.HeightMeters}
	case d.MapImage != nil:
		img := *d.MapImage
		p.MapImage = &img
	}
	return p, nil
}

// splitPoints splits comma-separated ids, trimming blanks away.
func splitPoints(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinPoints(points []string) string {
	return strings.Join(points, ", ")
}

// parseFloatOr falls back for anything that is not a finite number, so
// "NaN" or "Inf" never reach a threshold.
func parseFloatOr(s string, fallback float64) float64 {
	if !isNumber(s) {
		return fallback
	}
	v, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return v
}

// parseIntOr accepts "12" and "12.9" (truncated), falling back otherwise.
func parseIntOr(s string, fallback int) int {
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	if isNumber(s) {
		f, _ := strconv.ParseFloat(s, 64)
		return int(f)
	}
	return fallback
}
