package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"

	"evacconsole/internal/graphedit"
	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

const floorsPath = "/api/floors"

// ErrImageRequired rejects a first creation without a floor plan.
var ErrImageRequired = errors.New("a floor plan image is required to create a floor")

// FloorsSnapshot is a copy of the floor store state.
type FloorsSnapshot struct {
	Floors     []models.Floor `json:"floors"`
	Current    *models.Floor  `json:"current"`
	SelectedID string         `json:"selectedId,omitempty"`
	OpState
}

type FloorStore struct {
	api API
	log *logger.Logger

	mu       sync.RWMutex
	floors   []models.Floor
	current  *models.Floor
	selected string
	ops      tracker
}

func NewFloorStore(api API, log *logger.Logger) *FloorStore {
	return &FloorStore{
		api: api,
		log: logger.OrNop(log).Named("floors"),
		ops: newTracker(),
	}
}

func floorPath(id string, rest ...string) string {
	parts := append([]string{floorsPath, url.PathEscape(id)}, rest...)
	return strings.Join(parts, "/")
}

// begin and the helpers below wrap the tracker with the store lock.
func (s *FloorStore) begin(op string) {
	s.mu.Lock()
	s.ops.begin(op)
	s.mu.Unlock()
}

func (s *FloorStore) fail(op string, err *OpError) error {
	s.mu.Lock()
	s.ops.fail(op, err.Message)
	s.mu.Unlock()
	s.log.Warnw("floor_op_failed", "op", op, "status", err.Status, "err", err.Message)
	return err
}

// List replaces the whole collection with the server's set.
func (s *FloorStore) List(ctx context.Context) ([]models.Floor, error) {
	s.begin(OpList)
	res := s.api.Request(ctx, http.MethodGet, floorsPath, transport.RequestOptions{})
	if !res.Success {
		return nil, s.fail(OpList, opError(OpList, res))
	}
	floors := []models.Floor{}
	if err := res.Decode(&floors); err != nil && !errors.Is(err, transport.ErrNoData) {
		return nil, s.fail(OpList, decodeError(OpList, res, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.floors = floors
	s.ops.succeed(OpList)
	return cloneFloors(floors), nil
}

// Get loads one floor into the detail pointer. The collection is untouched.
func (s *FloorStore) Get(ctx context.Context, id string) (models.Floor, error) {
	if id == "" {
		return models.Floor{}, ErrIDRequired
	}
	s.begin(OpDetail)
	res := s.api.Request(ctx, http.MethodGet, floorPath(id), transport.RequestOptions{})
	if !res.Success {
		return models.Floor{}, s.fail(OpDetail, opError(OpDetail, res))
	}
	var f models.Floor
	if err := res.Decode(&f); err != nil {
		return models.Floor{}, s.fail(OpDetail, decodeError(OpDetail, res, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	detail := f.Clone()
	s.current = &detail
	s.selected = f.ID
	s.ops.succeed(OpDetail)
	return f, nil
}

// Create uploads a new floor with its plan image and appends the server's
// copy to the collection.
func (s *FloorStore) Create(ctx context.Context, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error) {
	if image == nil || len(image.Content) == 0 {
		return models.Floor{}, ErrImageRequired
	}
	s.begin(OpCreate)
	res := s.api.Request(ctx, http.MethodPost, floorsPath, transport.RequestOptions{Multipart: floorMultipart(p, image)})
	if !res.Success {
		return models.Floor{}, s.fail(OpCreate, opError(OpCreate, res))
	}
	f, err := floorFromResult(res, p, nil)
	if err != nil {
		return models.Floor{}, s.fail(OpCreate, decodeError(OpCreate, res, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(f.ID); i >= 0 {
		// a list that raced the create already brought it in
		s.floors[i] = f
	} else {
		s.floors = append(s.floors, f)
	}
	s.ops.succeed(OpCreate)
	return f.Clone(), nil
}

// Submit validates a draft and creates or updates the floor it describes.
// Validation failures are returned as graphedit.ValidationErrors and never
// reach the backend.
func (s *FloorStore) Submit(ctx context.Context, d *graphedit.Draft, creating bool) (models.Floor, error) {
	if creating {
		if errs := d.ValidateForCreate(); errs != nil {
			return models.Floor{}, errs
		}
	}
	p, err := d.Build()
	if err != nil {
		return models.Floor{}, err
	}
	if creating {
		return s.Create(ctx, p, d.Image)
	}
	return s.Update(ctx, p.ID, p, d.Image)
}

// Update replaces a floor. The collection entry and, when it matches, the
// detail pointer both take the new value.
func (s *FloorStore) Update(ctx context.Context, id string, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error) {
	if id == "" {
		return models.Floor{}, ErrIDRequired
	}
	opts := transport.RequestOptions{Body: p}
	if image != nil && len(image.Content) > 0 {
		opts = transport.RequestOptions{Multipart: floorMultipart(p, image)}
	}

	s.begin(OpUpdate)
	res := s.api.Request(ctx, http.MethodPut, floorPath(id), opts)
	if !res.Success {
		return models.Floor{}, s.fail(OpUpdate, opError(OpUpdate, res))
	}

	s.mu.RLock()
	var prev *models.Floor
	if i := s.indexOf(id); i >= 0 {
		f := s.floors[i]
		prev = &f
	} else if s.current != nil && s.current.ID == id {
		f := *s.current
		prev = &f
	}
	s.mu.RUnlock()

	f, err := floorFromResult(res, p, prev)
	if err != nil {
		return models.Floor{}, s.fail(OpUpdate, decodeError(OpUpdate, res, err))
	}
	if f.ID == "" {
		f.ID = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		s.floors[i] = f
	}
	if s.current != nil && s.current.ID == id {
		detail := f.Clone()
		s.current = &detail
	}
	s.ops.succeed(OpUpdate)
	return f.Clone(), nil
}

// Delete removes the floor and clears the detail pointer if it was showing it.
func (s *FloorStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	s.begin(OpDelete)
	res := s.api.Request(ctx, http.MethodDelete, floorPath(id), transport.RequestOptions{})
	if !res.Success {
		return s.fail(OpDelete, opError(OpDelete, res))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.floors = slices.DeleteFunc(s.floors, func(f models.Floor) bool { return f.ID == id })
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	if s.selected == id {
		s.selected = ""
	}
	s.ops.succeed(OpDelete)
	return nil
}

// SetStatus changes a floor's status and patches it in place.
func (s *FloorStore) SetStatus(ctx context.Context, id string, status models.FloorStatus) error {
	if id == "" {
		return ErrIDRequired
	}
	if !status.Valid() {
		return ErrInvalidStatus
	}
	s.begin(OpStatus)
	res := s.api.Request(ctx, http.MethodPatch, floorPath(id, "status"),
		transport.RequestOptions{Body: map[string]any{"status": status}})
	if !res.Success {
		return s.fail(OpStatus, opError(OpStatus, res))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.patch(id, func(f *models.Floor) bool {
		f.Status = status
		return true
	})
	s.ops.succeed(OpStatus)
	return nil
}

// SetCameraStatus changes the status of a camera bound to a floor.
func (s *FloorStore) SetCameraStatus(ctx context.Context, floorID, cameraID, status string) error {
	return s.setNestedStatus(ctx, OpCameraStatus, floorID, "cameras", cameraID, status, func(f *models.Floor) bool {
		c, ok := f.Camera(cameraID)
		if ok {
			c.Status = status
		}
		return ok
	})
}

// SetScreenStatus changes the status of a screen placed on a floor.
func (s *FloorStore) SetScreenStatus(ctx context.Context, floorID, screenID, status string) error {
	return s.setNestedStatus(ctx, OpScreenStatus, floorID, "screens", screenID, status, func(f *models.Floor) bool {
		sc, ok := f.Screen(screenID)
		if ok {
			sc.Status = status
		}
		return ok
	})
}

// setNestedStatus applies a status change to an entity embedded in a floor.
// When the reply carries the updated floor it replaces the cached copies;
// otherwise the status is patched in place and the list is refreshed, since
// the backend may have touched more of the document than the one field.
func (s *FloorStore) setNestedStatus(ctx context.Context, op, floorID, kind, itemID, status string, apply func(*models.Floor) bool) error {
	if floorID == "" || itemID == "" {
		return ErrIDRequired
	}
	if strings.TrimSpace(status) == "" {
		return ErrInvalidStatus
	}
	s.begin(op)
	res := s.api.Request(ctx, http.MethodPatch, floorPath(floorID, kind, url.PathEscape(itemID), "status"),
		transport.RequestOptions{Body: map[string]any{"status": status}})
	if !res.Success {
		return s.fail(op, opError(op, res))
	}

	var updated models.Floor
	returned := res.Decode(&updated) == nil && updated.ID == floorID

	s.mu.Lock()
	if returned {
		s.replace(updated)
	} else {
		s.patch(floorID, apply)
	}
	s.ops.succeed(op)
	s.mu.Unlock()

	if returned {
		return nil
	}
	if _, err := s.List(ctx); err != nil {
		s.log.Warnw("floor_refresh_failed", "op", op, "floor_id", floorID, "err", err)
	}
	return nil
}

// Select points the store at another floor. A cached detail for a different
// floor is dropped; the caller fetches the new one with Get.
func (s *FloorStore) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID != id {
		s.current = nil
	}
	s.selected = id
}

func (s *FloorStore) Floors() []models.Floor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFloors(s.floors)
}

// Current returns the detail floor, if any.
func (s *FloorStore) Current() (models.Floor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Floor{}, false
	}
	return s.current.Clone(), true
}

func (s *FloorStore) ActiveFloors() []models.Floor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Floor
	for _, f := range s.floors {
		if f.Status == models.FloorActive {
			out = append(out, f.Clone())
		}
	}
	return out
}

func (s *FloorStore) ByID(id string) (models.Floor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.floors[i].Clone(), true
	}
	return models.Floor{}, false
}

func (s *FloorStore) Snapshot() FloorsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := FloorsSnapshot{
		Floors:     cloneFloors(s.floors),
		SelectedID: s.selected,
		OpState:    s.ops.state(),
	}
	if s.current != nil {
		c := s.current.Clone()
		snap.Current = &c
	}
	return snap
}

// indexOf, patch and replace expect s.mu to be held.
func (s *FloorStore) indexOf(id string) int {
	return slices.IndexFunc(s.floors, func(f models.Floor) bool { return f.ID == id })
}

func (s *FloorStore) patch(id string, apply func(*models.Floor) bool) {
	if i := s.indexOf(id); i >= 0 {
		apply(&s.floors[i])
	}
	if s.current != nil && s.current.ID == id {
		apply(s.current)
	}
}

func (s *FloorStore) replace(f models.Floor) {
	if i := s.indexOf(f.ID); i >= 0 {
		s.floors[i] = f.Clone()
	}
	if s.current != nil && s.current.ID == f.ID {
		c := f.Clone()
		s.current = &c
	}
}

func cloneFloors(in []models.Floor) []models.Floor {
	out := make([]models.Floor, len(in))
	for i, f := range in {
		out[i] = f.Clone()
	}
	return out
}

// floorMultipart encodes the payload as a "data" JSON field next to the plan image.
func floorMultipart(p models.FloorPayload, image *graphedit.ImageUpload) *transport.Multipart {
	name := image.Filename
	if name == "" {
		name = "floor-plan.png"
	}
	return transport.NewMultipart().
		JSONField("data", p).
		File("image", name, bytes.NewReader(image.Content))
}

// floorFromResult decodes the floor a mutation returned. Backends that only
// acknowledge the write leave the store to rebuild it from what was sent,
// merged over prev.
func floorFromResult(res transport.Result, p models.FloorPayload, prev *models.Floor) (models.Floor, error) {
	var f models.Floor
	err := res.Decode(&f)
	switch {
	case err == nil && f.ID != "":
		return f, nil
	case err != nil && !errors.Is(err, transport.ErrNoData):
		return models.Floor{}, err
	}
	return floorFromPayload(p, prev), nil
}

func floorFromPayload(p models.FloorPayload, prev *models.Floor) models.Floor {
	var f models.Floor
	if prev != nil {
		f = prev.Clone()
	}
	f.ID = p.ID
	f.Name = p.Name
	if p.Status != "" {
		f.Status = p.Status
	}
	f.Nodes = append([]models.Node(nil), p.Nodes...)
	f.Edges = append([]models.Edge(nil), p.Edges...)
	f.StartPoints = append([]string(nil), p.StartPoints...)
	f.ExitPoints = append([]string(nil), p.ExitPoints...)
	f.Cameras = mergeCameras(f.Cameras, p.Cameras)
	if p.MapImage != nil {
		img := *p.MapImage
		if f.MapImage != nil {
			img.RemoteURL, img.LocalURL = f.MapImage.RemoteURL, f.MapImage.LocalURL
		}
		f.MapImage = &img
	}
	return f
}

// mergeCameras rebuilds bindings from the submitted mapping, keeping the
// name and status of cameras that were already known.
func mergeCameras(prev models.CameraBindings, mapping map[string]string) models.CameraBindings {
	known := make(map[string]models.Camera, len(prev))
	for _, c := range prev {
		known[c.ID] = c
	}
	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make(models.CameraBindings, 0, len(ids))
	for _, id := range ids {
		c := known[id]
		c.ID, c.EdgeID = id, mapping[id]
		out = append(out, c)
	}
	return out
}
