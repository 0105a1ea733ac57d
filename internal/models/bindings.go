package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Camera is a camera watching one edge.
type Camera struct {
	ID     string `json:"id"`
	EdgeID string `json:"edgeId"`
	Name   string `json:"name,omitempty"`
	Status string `json:"status,omitempty"`
}

// Screen is a guidance display placed at a node.
type Screen struct {
	ID     string `json:"id"`
	NodeID string `json:"nodeId,omitempty"`
	Status string `json:"status,omitempty"`
}

// CameraBindings is the canonical camera list. On read it also accepts the
// legacy cameraId → edgeId object.
type CameraBindings []Camera

func (c *CameraBindings) UnmarshalJSON(raw []byte) error {
	cams, err := ParseCameraBindings(raw)
	if err != nil {
		return err
	}
	*c = cams
	return nil
}

// ParseCameraBindings accepts either an array of camera objects or a legacy
// object mapping camera ids to edge ids. Legacy entries are ordered by camera id.
func ParseCameraBindings(raw []byte) (CameraBindings, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var cams []Camera
		if err := json.Unmarshal(raw, &cams); err != nil {
			return nil, fmt.Errorf("camera bindings: %w", err)
		}
		return cams, nil
	case '{':
		var legacy map[string]string
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("legacy camera bindings: %w", err)
		}
		ids := make([]string, 0, len(legacy))
		for id := range legacy {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		cams := make(CameraBindings, 0, len(ids))
		for _, id := range ids {
			cams = append(cams, Camera{ID: id, EdgeID: legacy[id]})
		}
		return cams, nil
	default:
		return nil, fmt.Errorf("camera bindings: unexpected JSON %.20s", raw)
	}
}

// Screens is the canonical screen set. Older floors only report a count.
type Screens struct {
	Count int      `json:"count"`
	Items []Screen `json:"items"`
}

func (s *Screens) UnmarshalJSON(raw []byte) error {
	parsed, err := ParseScreens(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScreens accepts a screen array, a bare count, or the canonical
// {count, items} object.
func ParseScreens(raw []byte) (Screens, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Screens{}, nil
	}

	switch raw[0] {
	case '[':
		var items []Screen
		if err := json.Unmarshal(raw, &items); err != nil {
			return Screens{}, fmt.Errorf("screens: %w", err)
		}
		return Screens{Count: len(items), Items: items}, nil
	case '{':
		var canonical struct {
			Count int      `json:"count"`
			Items []Screen `json:"items"`
		}
		if err := json.Unmarshal(raw, &canonical); err != nil {
			return Screens{}, fmt.Errorf("screens: %w", err)
		}
		if canonical.Count < len(canonical.Items) {
			canonical.Count = len(canonical.Items)
		}
		return Screens{Count: canonical.Count, Items: canonical.Items}, nil
	default:
		var count int
		if err := json.Unmarshal(raw, &count); err != nil {
			return Screens{}, fmt.Errorf("screen count: %w", err)
		}
		return Screens{Count: count}, nil
	}
}
