package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"evacconsole/internal/models"
	"evacconsole/internal/service"
	"evacconsole/internal/transport"
)

const validDraftJSON = `{
	"id":"f1","name":"Lobby",
	"nodes":[{"id":"N1","x":"0","y":"0"},{"id":"N2","x":"10","y":"0"}],
	"edges":[{"id":"E1","from":"N1","to":"N2"}],
	"startPoints":"N1","exitPoints":"N2"
}`

func doJSON(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header = jsonHeader()
	}
	r.ServeHTTP(w, req)
	return w
}

func multipartDraft(t *testing.T, draft string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("draft", draft); err != nil {
		t.Fatalf("write draft: %v", err)
	}
	if image != nil {
		_ = mw.WriteField("widthMeters", "42.5")
		part, err := mw.CreateFormFile("image", "plan.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(image)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestFloorHandlers_RequireSession(t *testing.T) {
	s := signedIn()
	s.System = &mockSystem{}
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/v1/floors", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", w.Code)
	}
}

func TestFloorHandlers_List(t *testing.T) {
	s := signedIn()
	s.Floors = &mockFloors{floors: []models.Floor{{ID: "f1", Name: "Lobby", Status: models.FloorActive}}}
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/v1/floors", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var floors []models.Floor
	if err := json.Unmarshal(w.Body.Bytes(), &floors); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(floors) != 1 || floors[0].Status != models.FloorActive {
		t.Fatalf("unexpected floors %+v", floors)
	}
}

func TestFloorHandlers_StoreErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{
			name:     "upstream failure",
			err:      &service.OpError{Op: service.OpList, Status: 500, Kind: transport.KindServer, Message: "HTTP 500: Internal Server Error"},
			wantCode: http.StatusBadGateway,
			wantMsg:  "HTTP 500: Internal Server Error",
		},
		{
			name:     "network failure",
			err:      &service.OpError{Op: service.OpList, Kind: transport.KindNetwork, Message: "timed out"},
			wantCode: http.StatusBadGateway,
			wantMsg:  "timed out",
		},
		{
			name:     "token rejected",
			err:      &service.OpError{Op: service.OpList, Status: 403, Kind: transport.KindAuth, Message: transport.AuthFailureMessage},
			wantCode: http.StatusUnauthorized,
			wantMsg:  transport.AuthFailureMessage,
		},
		{
			name:     "local rejection",
			err:      service.ErrIDRequired,
			wantCode: http.StatusBadRequest,
			wantMsg:  service.ErrIDRequired.Error(),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := signedIn()
			s.Floors = &mockFloors{err: tc.err}
			r := newTestRouter(s)

			w := doJSON(t, r, http.MethodGet, "/api/v1/floors", "")
			if w.Code != tc.wantCode {
				t.Fatalf("expected %d, got %d body=%s", tc.wantCode, w.Code, w.Body.String())
			}
			var body struct {
				Error string `json:"error"`
			}
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body.Error != tc.wantMsg {
				t.Fatalf("expected error %q, got %q", tc.wantMsg, body.Error)
			}
		})
	}
}

func TestFloorHandlers_CreateMultipart(t *testing.T) {
	fl := &mockFloors{floor: models.Floor{ID: "f1", Name: "Lobby"}}
	s := signedIn()
	s.Floors = fl
	r := newTestRouter(s)

	body, ct := multipartDraft(t, validDraftJSON, []byte("png-bytes"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/floors", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if !fl.lastCreating || fl.lastDraft == nil || fl.lastDraft.Image == nil {
		t.Fatalf("draft not submitted for creation: %+v", fl.lastDraft)
	}
	if string(fl.lastDraft.Image.Content) != "png-bytes" || fl.lastDraft.Image.WidthMeters != 42.5 {
		t.Fatalf("image not forwarded: %+v", fl.lastDraft.Image)
	}
}

func TestFloorHandlers_CreateWithoutImageIsValidationError(t *testing.T) {
	s := signedIn()
	r := newTestRouter(s)

	body, ct := multipartDraft(t, validDraftJSON, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/floors", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Error != errValidation || resp.Fields["image"] == "" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
}

func TestFloorHandlers_CreateBadDraft(t *testing.T) {
	s := signedIn()
	r := newTestRouter(s)

	body, ct := multipartDraft(t, `{"id":`, []byte("x"))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/floors", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "invalid 'draft' JSON") {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestFloorHandlers_UpdateJSON(t *testing.T) {
	fl := &mockFloors{floor: models.Floor{ID: "f1", Name: "Lobby 2"}}
	s := signedIn()
	s.Floors = fl
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodPut, "/api/v1/floors/f1", validDraftJSON)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if fl.lastCreating || fl.lastDraft.ID != "f1" || fl.lastDraft.Image != nil {
		t.Fatalf("unexpected submit %+v creating=%v", fl.lastDraft, fl.lastCreating)
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/floors/other", validDraftJSON)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("changing the id must be rejected, got %d", w.Code)
	}
}

func TestFloorHandlers_ValidateDraft(t *testing.T) {
	s := signedIn()
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodPost, "/api/v1/floors/validate", `{"id":"f1","name":"Lobby","nodes":[{"id":"N1","x":"a","y":"0"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var resp ValidateDraftResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"edges", "exitPoints", "startPoints", "nodes[0].x"} {
		if _, ok := resp.Errors[key]; !ok {
			t.Fatalf("missing %s in %v", key, resp.Errors)
		}
	}
	if resp.Valid {
		t.Fatalf("draft should be invalid")
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/floors/validate?creating=true", validDraftJSON)
	resp = ValidateDraftResponse{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Valid || len(resp.Errors) != 1 || resp.Errors["image"] == "" {
		t.Fatalf("creating requires only the image here: %+v", resp)
	}
}

func TestFloorHandlers_DeleteSelectAndStatus(t *testing.T) {
	fl := &mockFloors{floor: models.Floor{ID: "f2"}}
	s := signedIn()
	s.Floors = fl
	r := newTestRouter(s)

	if w := doJSON(t, r, http.MethodDelete, "/api/v1/floors/f1", ""); w.Code != http.StatusOK || len(fl.deleted) != 1 {
		t.Fatalf("delete: %d %v", w.Code, fl.deleted)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/floors/f2/select", ""); w.Code != http.StatusOK || fl.selected != "f2" {
		t.Fatalf("select: %d %q", w.Code, fl.selected)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/v1/floors/f2/status", `{"status":"maintenance"}`); w.Code != http.StatusOK || fl.lastStatus != "maintenance" {
		t.Fatalf("status: %d %q", w.Code, fl.lastStatus)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/v1/floors/f2/cameras/CAM1/status", `{"status":"offline"}`); w.Code != http.StatusOK || fl.lastItemID != "CAM1" {
		t.Fatalf("camera status: %d %q", w.Code, fl.lastItemID)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/v1/floors/f2/screens/S1/status", `{"status":"off"}`); w.Code != http.StatusOK || fl.lastItemID != "S1" {
		t.Fatalf("screen status: %d %q", w.Code, fl.lastItemID)
	}
	if w := doJSON(t, r, http.MethodPatch, "/api/v1/floors/f2/status", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing status must be rejected, got %d", w.Code)
	}
}

func TestFloorHandlers_Draft(t *testing.T) {
	fl := &mockFloors{floor: models.Floor{
		ID:          "f1",
		Name:        "Lobby",
		Nodes:       []models.Node{{ID: "N1", X: 1.5}},
		Edges:       []models.Edge{{ID: "E1", From: "N1", To: "N9", StaticWeight: 1}},
		Cameras:     models.CameraBindings{{ID: "CAM1", EdgeID: "E1"}},
		StartPoints: []string{"N1"},
		ExitPoints:  []string{"N1"},
		MapImage:    &models.MapImage{RemoteURL: "https://cdn.example/f1.png"},
	}}
	s := signedIn()
	s.Floors = fl
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/v1/floors/f1/draft", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var resp FloorDraftResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Draft == nil || resp.Draft.Nodes[0].X != "1.5" || resp.Draft.Cameras[0].CameraID != "CAM1" {
		t.Fatalf("unexpected draft %+v", resp.Draft)
	}
	if len(resp.Integrity) != 1 || !strings.Contains(resp.Integrity[0], `"N9"`) {
		t.Fatalf("integrity = %v", resp.Integrity)
	}
	want := []string{"/api/floors/f1/image", "https://cdn.example/f1.png"}
	if len(resp.ImageSources) != 2 || resp.ImageSources[0] != want[0] || resp.ImageSources[1] != want[1] {
		t.Fatalf("image sources = %v", resp.ImageSources)
	}
}

func TestFloorHandlers_ActiveAndCached(t *testing.T) {
	s := signedIn()
	s.Floors = &mockFloors{floors: []models.Floor{
		{ID: "f1", Status: models.FloorActive},
		{ID: "f2", Status: models.FloorMaintenance},
	}}
	r := newTestRouter(s)

	w := doJSON(t, r, http.MethodGet, "/api/v1/floors?status=active", "")
	var floors []models.Floor
	if err := json.Unmarshal(w.Body.Bytes(), &floors); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(floors) != 1 || floors[0].ID != "f1" {
		t.Fatalf("unexpected active floors %+v", floors)
	}

	if w := doJSON(t, r, http.MethodGet, "/api/v1/floors/f2?cached=true", ""); w.Code != http.StatusOK {
		t.Fatalf("cached hit: status=%d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/v1/floors/f9?cached=true", ""); w.Code != http.StatusNotFound {
		t.Fatalf("cached miss: status=%d", w.Code)
	}
}
