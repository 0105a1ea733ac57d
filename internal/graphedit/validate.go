package graphedit

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValidationErrors maps a form field to its message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "invalid floor: " + strings.Join(parts, "; ")
}

// Validate checks field presence only. Edge endpoints, camera edges and
// start/exit points are not cross-checked against declared ids; the backend
// owns referential integrity. Returns nil when the draft is submittable.
func (d *Draft) Validate() ValidationErrors {
	errs := ValidationErrors{}

	if strings.TrimSpace(d.ID) == "" {
		errs["id"] = "Floor ID is required"
	}
	if strings.TrimSpace(d.Name) == "" {
		errs["name"] = "Floor name is required"
	}
	if len(d.Nodes) == 0 {
		errs["nodes"] = "At least one node is required"
	}
	if len(d.Edges) == 0 {
		errs["edges"] = "At least one edge is required"
	}
	if len(splitPoints(d.ExitPoints)) == 0 {
		errs["exitPoints"] = "At least one exit point is required"
	}
	if len(splitPoints(d.StartPoints)) == 0 {
		errs["startPoints"] = "At least one start point is required"
	}

	for i, n := range d.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			errs[fmt.Sprintf("nodes[%d].id", i)] = "Node ID is required"
		}
		if !isNumber(n.X) {
			errs[fmt.Sprintf("nodes[%d].x", i)] = "X must be a number"
		}
		if !isNumber(n.Y) {
			errs[fmt.Sprintf("nodes[%d].y", i)] = "Y must be a number"
		}
	}
	for i, e := range d.Edges {
		if strings.TrimSpace(e.ID) == "" {
			errs[fmt.Sprintf("edges[%d].id", i)] = "Edge ID is required"
		}
		if strings.TrimSpace(e.From) == "" {
			errs[fmt.Sprintf("edges[%d].from", i)] = "From node is required"
		}
		if strings.TrimSpace(e.To) == "" {
			errs[fmt.Sprintf("edges[%d].to", i)] = "To node is required"
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidateForCreate adds the first-creation rule that a floor plan image is attached.
func (d *Draft) ValidateForCreate() ValidationErrors {
	errs := d.Validate()
	if d.Image == nil || len(d.Image.Content) == 0 {
		if errs == nil {
			errs = ValidationErrors{}
		}
		errs["image"] = "A floor plan image is required"
	}
	return errs
}

func isNumber(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	v, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(v) && !math.IsInf(v, 0)
}
