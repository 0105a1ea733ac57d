package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"evacconsole/internal/graphedit"
	"evacconsole/internal/models"
)

const lobbyList = `[{"id":"f1","name":"Lobby","status":"active","nodes":[{"id":"n1","x":0,"y":0}],"edges":[]}]`

func planImage() *graphedit.ImageUpload {
	return &graphedit.ImageUpload{Filename: "plan.png", Content: []byte("png"), WidthMeters: 40, HeightMeters: 20}
}

func lobbyPayload() models.FloorPayload {
	return models.FloorPayload{
		ID:          "f2",
		Name:        "Second",
		Status:      models.FloorActive,
		Nodes:       []models.Node{{ID: "N1"}, {ID: "N2", X: 5}},
		Edges:       []models.Edge{{ID: "E1", From: "N1", To: "N2", StaticWeight: 1}},
		Cameras:     map[string]string{"CAM1": "E1"},
		StartPoints: []string{"N1"},
		ExitPoints:  []string{"N2"},
	}
}

func TestFloorStore_List_ReplacesCollectionAndKeepsCurrent(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors/f9", ok(`{"id":"f9","name":"Basement","status":"maintenance"}`)).
		on(http.MethodGet, "/api/floors",
			ok(`[{"id":"f2","name":"Old"},{"id":"f3","name":"Gone"}]`),
			ok(lobbyList))
	s := NewFloorStore(api, nil)
	ctx := context.Background()

	if _, err := s.Get(ctx, "f9"); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("first List: %v", err)
	}
	floors, err := s.List(ctx)
	if err != nil {
		t.Fatalf("second List: %v", err)
	}

	if len(floors) != 1 || floors[0].ID != "f1" || floors[0].Status != models.FloorActive {
		t.Fatalf("unexpected floors: %+v", floors)
	}
	if got := s.Floors(); len(got) != 1 || got[0].Name != "Lobby" {
		t.Fatalf("collection not replaced: %+v", got)
	}
	cur, ok := s.Current()
	if !ok || cur.ID != "f9" {
		t.Fatalf("current changed by List: %+v ok=%v", cur, ok)
	}
}

func TestFloorStore_List_FailureKeepsCollection(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/floors", ok(lobbyList), failed(0, "timed out"))
	s := NewFloorStore(api, nil)
	ctx := context.Background()

	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	_, err := s.List(ctx)
	var opErr *OpError
	if !errors.As(err, &opErr) || opErr.Message != "timed out" || opErr.Op != OpList {
		t.Fatalf("expected OpError with transport message, got %v", err)
	}

	snap := s.Snapshot()
	if snap.Error != "timed out" {
		t.Fatalf("expected verbatim store error, got %q", snap.Error)
	}
	if len(snap.Floors) != 1 || snap.Floors[0].ID != "f1" {
		t.Fatalf("collection mutated on failure: %+v", snap.Floors)
	}
}

func TestFloorStore_ErrorClearedWhenNextOperationStarts(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/floors", failed(500, "boom"), ok(lobbyList))
	s := NewFloorStore(api, nil)
	ctx := context.Background()

	_, _ = s.List(ctx)
	if s.Snapshot().Error != "boom" {
		t.Fatalf("expected error after failure")
	}
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if e := s.Snapshot().Error; e != "" {
		t.Fatalf("expected error cleared by the retry, got %q", e)
	}
}

func TestFloorStore_Create_AppendsServerFloorOnce(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(lobbyList)).
		on(http.MethodPost, "/api/floors", ok(`{"id":"f2-srv","name":"Second","status":"active"}`))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}

	f, err := s.Create(ctx, lobbyPayload(), planImage())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID != "f2-srv" {
		t.Fatalf("expected server id, got %q", f.ID)
	}

	n := 0
	for _, got := range s.Floors() {
		if got.ID == "f2-srv" {
			n++
		}
	}
	if n != 1 || len(s.Floors()) != 2 {
		t.Fatalf("expected new floor exactly once, floors=%+v", s.Floors())
	}
	if c := api.lastCall(); c.opts.Multipart == nil || c.opts.Body != nil {
		t.Fatalf("create must send multipart, got %+v", c.opts)
	}
	if api.called(http.MethodGet, "/api/floors") != 1 {
		t.Fatalf("create must not re-list")
	}
}

func TestFloorStore_Create_AlreadyListedIsNotDuplicated(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(`[{"id":"f2","name":"Second"}]`)).
		on(http.MethodPost, "/api/floors", ok(`{"id":"f2","name":"Second","status":"active"}`))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)

	if _, err := s.Create(ctx, lobbyPayload(), planImage()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := s.Floors(); len(got) != 1 || got[0].Status != models.FloorActive {
		t.Fatalf("expected one refreshed entry, got %+v", got)
	}
}

func TestFloorStore_Create_AckWithoutDocumentUsesPayload(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, "/api/floors", ok(`{"success":true,"message":"created"}`))
	s := NewFloorStore(api, nil)

	f, err := s.Create(context.Background(), lobbyPayload(), planImage())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if f.ID != "f2" || len(f.Edges) != 1 || len(f.Cameras) != 1 || f.Cameras[0].EdgeID != "E1" {
		t.Fatalf("floor not rebuilt from payload: %+v", f)
	}
}

func TestFloorStore_Create_RequiresImage(t *testing.T) {
	api := newFakeAPI()
	s := NewFloorStore(api, nil)

	_, err := s.Create(context.Background(), lobbyPayload(), nil)
	if !errors.Is(err, ErrImageRequired) {
		t.Fatalf("expected ErrImageRequired, got %v", err)
	}
	if api.callCount() != 0 {
		t.Fatalf("no request expected")
	}
}

func TestFloorStore_Update_ReplacesCollectionAndDetail(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(lobbyList)).
		on(http.MethodGet, "/api/floors/f1", ok(`{"id":"f1","name":"Lobby","status":"active"}`)).
		on(http.MethodPut, "/api/floors/f1", ok(`{"id":"f1","name":"Main lobby","status":"disabled"}`))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)
	if _, err := s.Get(ctx, "f1"); err != nil {
		t.Fatalf("Get: %v", err)
	}

	p := lobbyPayload()
	p.ID = "f1"
	p.Name = "Main lobby"
	if _, err := s.Update(ctx, "f1", p, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	cur, _ := s.Current()
	listed, _ := s.ByID("f1")
	if cur.Name != "Main lobby" || listed.Name != "Main lobby" {
		t.Fatalf("detail and collection diverged: current=%q listed=%q", cur.Name, listed.Name)
	}
	if cur.Status != models.FloorDisabled || listed.Status != models.FloorDisabled {
		t.Fatalf("status not replaced: %q / %q", cur.Status, listed.Status)
	}
	if c := api.lastCall(); c.opts.Multipart != nil || c.opts.Body == nil {
		t.Fatalf("update without image must send JSON, got %+v", c.opts)
	}
}

func TestFloorStore_Update_WithImageUsesMultipart(t *testing.T) {
	api := newFakeAPI().on(http.MethodPut, "/api/floors/f2", ok(""))
	s := NewFloorStore(api, nil)

	if _, err := s.Update(context.Background(), "f2", lobbyPayload(), planImage()); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if api.lastCall().opts.Multipart == nil {
		t.Fatalf("expected multipart body")
	}
}

func TestFloorStore_Update_FailureLeavesState(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(lobbyList)).
		on(http.MethodPut, "/api/floors/f1", failed(422, "name already taken"))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)

	p := lobbyPayload()
	p.Name = "Other"
	if _, err := s.Update(ctx, "f1", p, nil); err == nil {
		t.Fatalf("expected error")
	}
	if f, _ := s.ByID("f1"); f.Name != "Lobby" {
		t.Fatalf("collection mutated on failure: %+v", f)
	}
	if e := s.Snapshot().Error; e != "name already taken" {
		t.Fatalf("unexpected error %q", e)
	}
}

func TestFloorStore_Delete_RemovesAndClearsCurrent(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(`[{"id":"f1"},{"id":"f2"}]`)).
		on(http.MethodGet, "/api/floors/f1", ok(`{"id":"f1"}`)).
		on(http.MethodDelete, "/api/floors/f1", ok(""))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)
	_, _ = s.Get(ctx, "f1")

	if err := s.Delete(ctx, "f1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := s.ByID("f1"); ok {
		t.Fatalf("deleted floor still listed")
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("current should be cleared")
	}
	if snap := s.Snapshot(); len(snap.Floors) != 1 || snap.SelectedID != "" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestFloorStore_SetStatus_PatchesInPlace(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(lobbyList)).
		on(http.MethodPatch, "/api/floors/f1/status", ok(`{"success":true}`))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)

	if err := s.SetStatus(ctx, "f1", models.FloorMaintenance); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if f, _ := s.ByID("f1"); f.Status != models.FloorMaintenance || len(f.Nodes) != 1 {
		t.Fatalf("status not patched: %+v", f)
	}
	if api.called(http.MethodGet, "/api/floors") != 1 {
		t.Fatalf("floor status change must not re-list")
	}
	if err := s.SetStatus(ctx, "f1", "closed"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestFloorStore_SetCameraStatus(t *testing.T) {
	const floorWithCam = `[{"id":"f1","cameras":[{"id":"CAM1","edgeId":"E1","status":"online"}]}]`

	t.Run("ack only patches then refreshes", func(t *testing.T) {
		api := newFakeAPI().
			on(http.MethodGet, "/api/floors", ok(floorWithCam)).
			on(http.MethodPatch, "/api/floors/f1/cameras/CAM1/status", ok(`{"success":true}`))
		s := NewFloorStore(api, nil)
		ctx := context.Background()
		_, _ = s.List(ctx)

		if err := s.SetCameraStatus(ctx, "f1", "CAM1", "offline"); err != nil {
			t.Fatalf("SetCameraStatus: %v", err)
		}
		if api.called(http.MethodGet, "/api/floors") != 2 {
			t.Fatalf("expected a follow-up list refresh")
		}
	})

	t.Run("returned floor replaces cache", func(t *testing.T) {
		api := newFakeAPI().
			on(http.MethodGet, "/api/floors", ok(floorWithCam)).
			on(http.MethodPatch, "/api/floors/f1/cameras/CAM1/status",
				ok(`{"id":"f1","cameras":{"CAM1":"E1"},"screens":2}`))
		s := NewFloorStore(api, nil)
		ctx := context.Background()
		_, _ = s.List(ctx)

		if err := s.SetCameraStatus(ctx, "f1", "CAM1", "offline"); err != nil {
			t.Fatalf("SetCameraStatus: %v", err)
		}
		f, _ := s.ByID("f1")
		if f.Screens.Count != 2 || len(f.Cameras) != 1 {
			t.Fatalf("floor not replaced: %+v", f)
		}
		if api.called(http.MethodGet, "/api/floors") != 1 {
			t.Fatalf("no refresh expected when the floor came back")
		}
	})

	t.Run("failure leaves camera untouched", func(t *testing.T) {
		api := newFakeAPI().
			on(http.MethodGet, "/api/floors", ok(floorWithCam)).
			on(http.MethodPatch, "/api/floors/f1/cameras/CAM1/status", failed(404, "Camera not found"))
		s := NewFloorStore(api, nil)
		ctx := context.Background()
		_, _ = s.List(ctx)

		if err := s.SetCameraStatus(ctx, "f1", "CAM1", "offline"); err == nil {
			t.Fatalf("expected error")
		}
		f, _ := s.ByID("f1")
		if cam, _ := f.Camera("CAM1"); cam.Status != "online" {
			t.Fatalf("camera mutated on failure: %+v", cam)
		}
	})
}

func TestFloorStore_SetScreenStatus_PatchesBeforeRefresh(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, "/api/floors", ok(`[{"id":"f1","screens":[{"id":"S1","nodeId":"N1","status":"on"}]}]`), failed(0, "connection refused")).
		on(http.MethodPatch, "/api/floors/f1/screens/S1/status", ok(""))
	s := NewFloorStore(api, nil)
	ctx := context.Background()
	_, _ = s.List(ctx)

	if err := s.SetScreenStatus(ctx, "f1", "S1", "off"); err != nil {
		t.Fatalf("SetScreenStatus: %v", err)
	}
	f, _ := s.ByID("f1")
	if sc, ok := f.Screen("S1"); !ok || sc.Status != "off" {
		t.Fatalf("screen not patched in place: %+v", f.Screens)
	}
	if e := s.Snapshot().Error; e != "connection refused" {
		t.Fatalf("refresh failure should surface as store error, got %q", e)
	}
}

func TestFloorStore_Submit_ValidationNeverReachesTransport(t *testing.T) {
	api := newFakeAPI()
	s := NewFloorStore(api, nil)

	d := graphedit.New()
	d.ID, d.Name = "f1", "Lobby"
	d.AddNode()
	d.StartPoints, d.ExitPoints = "N1", "N1"
	d.Image = planImage()

	_, err := s.Submit(context.Background(), d, true)
	var verrs graphedit.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}
	if _, ok := verrs["edges"]; !ok {
		t.Fatalf("expected edges error, got %v", verrs)
	}
	if api.callCount() != 0 {
		t.Fatalf("validation failure must not call transport")
	}
}

func TestFloorStore_Submit_CreateNeedsImage(t *testing.T) {
	api := newFakeAPI()
	s := NewFloorStore(api, nil)

	d := graphedit.New()
	d.ID, d.Name = "f1", "Lobby"
	d.AddNode()
	d.AddNode()
	i := d.AddEdge()
	_ = d.UpdateEdge(i, graphedit.EdgeDraft{ID: "E1", From: "N1", To: "N2"})
	d.StartPoints, d.ExitPoints = "N1", "N2"

	_, err := s.Submit(context.Background(), d, true)
	var verrs graphedit.ValidationErrors
	if !errors.As(err, &verrs) || verrs["image"] == "" {
		t.Fatalf("expected image error, got %v", err)
	}

	api.on(http.MethodPut, "/api/floors/f1", ok(""))
	f, err := s.Submit(context.Background(), d, false)
	if err != nil {
		t.Fatalf("edit submit: %v", err)
	}
	if f.Edges[0].FireThreshold != graphedit.DefaultFireThreshold {
		t.Fatalf("defaults not applied: %+v", f.Edges[0])
	}
}

func TestFloorStore_Select(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/floors/f1", ok(`{"id":"f1"}`))
	s := NewFloorStore(api, nil)
	_, _ = s.Get(context.Background(), "f1")

	s.Select("f1")
	if _, ok := s.Current(); !ok {
		t.Fatalf("selecting the same floor keeps the detail")
	}
	s.Select("f2")
	if _, ok := s.Current(); ok {
		t.Fatalf("selecting another floor must clear the detail")
	}
	if s.Snapshot().SelectedID != "f2" {
		t.Fatalf("selection not recorded")
	}
}

func TestFloorStore_ActiveFloors(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/floors",
		ok(`[{"id":"a","status":"active"},{"id":"b","status":"disabled"},{"id":"c","status":"active"}]`))
	s := NewFloorStore(api, nil)
	_, _ = s.List(context.Background())

	got := s.ActiveFloors()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Fatalf("unexpected active floors: %+v", got)
	}
}

func TestFloorStore_LoadingFlagsPerOperation(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, "/api/floors", ok(lobbyList))
	api.gate = make(chan struct{})
	s := NewFloorStore(api, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.List(context.Background())
	}()

	deadline := time.Now().Add(2 * time.Second)
	for api.callCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("list never reached transport")
		}
		time.Sleep(time.Millisecond)
	}

	snap := s.Snapshot()
	if !snap.Loading[OpList] || snap.Loading[OpCreate] {
		t.Fatalf("unexpected loading flags while listing: %v", snap.Loading)
	}

	close(api.gate)
	<-done
	if s.Snapshot().Loading[OpList] {
		t.Fatalf("list flag should drop once settled")
	}
}
