package handlers

import (
	"context"
	"net/http"

	"evacconsole/internal/graphedit"
	"evacconsole/internal/models"
	"evacconsole/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockFloors struct {
	floors  []models.Floor
	floor   models.Floor
	err     error
	snap    service.FloorsSnapshot
	deleted []string

	lastDraft    *graphedit.Draft
	lastCreating bool
	lastStatus   string
	lastItemID   string
	selected     string
	submitCalls  int
}

func (m *mockFloors) List(ctx context.Context) ([]models.Floor, error) {
	return m.floors, m.err
}
func (m *mockFloors) Get(ctx context.Context, id string) (models.Floor, error) {
	return m.floor, m.err
}
func (m *mockFloors) Create(ctx context.Context, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error) {
	return m.floor, m.err
}
func (m *mockFloors) Submit(ctx context.Context, d *graphedit.Draft, creating bool) (models.Floor, error) {
	m.submitCalls++
	m.lastDraft = d
	m.lastCreating = creating
	if creating {
		if errs := d.ValidateForCreate(); errs != nil {
			return models.Floor{}, errs
		}
	} else if errs := d.Validate(); errs != nil {
		return models.Floor{}, errs
	}
	return m.floor, m.err
}
func (m *mockFloors) Update(ctx context.Context, id string, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error) {
	return m.floor, m.err
}
func (m *mockFloors) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}
func (m *mockFloors) SetStatus(ctx context.Context, id string, status models.FloorStatus) error {
	m.lastStatus = string(status)
	return m.err
}
func (m *mockFloors) SetCameraStatus(ctx context.Context, floorID, cameraID, status string) error {
	m.lastItemID, m.lastStatus = cameraID, status
	return m.err
}
func (m *mockFloors) SetScreenStatus(ctx context.Context, floorID, screenID, status string) error {
	m.lastItemID, m.lastStatus = screenID, status
	return m.err
}
func (m *mockFloors) Select(id string) { m.selected = id }
func (m *mockFloors) ActiveFloors() []models.Floor {
	var out []models.Floor
	for _, f := range m.floors {
		if f.Status == models.FloorActive {
			out = append(out, f)
		}
	}
	return out
}
func (m *mockFloors) ByID(id string) (models.Floor, bool) {
	for _, f := range m.floors {
		if f.ID == id {
			return f, true
		}
	}
	return models.Floor{}, false
}
func (m *mockFloors) Snapshot() service.FloorsSnapshot {
	return m.snap
}

type mockRoutes struct {
	routes      []models.Route
	err         error
	snap        service.RoutesSnapshot
	lastFloorID string
	lastOp      string
}

func (m *mockRoutes) FetchHistory(ctx context.Context, floorID string) ([]models.Route, error) {
	m.lastFloorID, m.lastOp = floorID, service.OpHistory
	return m.routes, m.err
}
func (m *mockRoutes) FetchLatest(ctx context.Context, floorID string) ([]models.Route, error) {
	m.lastFloorID, m.lastOp = floorID, service.OpLatest
	return m.routes, m.err
}
func (m *mockRoutes) Compute(ctx context.Context, floorID string) ([]models.Route, error) {
	m.lastFloorID, m.lastOp = floorID, service.OpCompute
	return m.routes, m.err
}
func (m *mockRoutes) HazardousRoutes() []models.Route {
	var out []models.Route
	for _, r := range m.routes {
		if r.ExceedsThresholds {
			out = append(out, r)
		}
	}
	return out
}
func (m *mockRoutes) RoutesFrom(startNode string) []models.Route {
	var out []models.Route
	for _, r := range m.routes {
		if r.StartNode == startNode {
			out = append(out, r)
		}
	}
	return out
}
func (m *mockRoutes) Snapshot() service.RoutesSnapshot { return m.snap }

type mockRecords struct {
	page          models.RecordPage
	alerts        []models.Record
	err           error
	lastFilter    models.RecordFilter
	lastThreshold float64
	listCalls     int
	nextCalls     int
	prevCalls     int
}

func (m *mockRecords) List(ctx context.Context, f models.RecordFilter) (models.RecordPage, error) {
	m.listCalls++
	m.lastFilter = f
	if f.FloorID == "" {
		return models.RecordPage{}, service.ErrFloorRequired
	}
	return m.page, m.err
}
func (m *mockRecords) GoToPage(ctx context.Context, page int) (models.RecordPage, error) {
	return m.page, m.err
}
func (m *mockRecords) NextPage(ctx context.Context) (models.RecordPage, error) {
	m.nextCalls++
	return m.page, m.err
}
func (m *mockRecords) PrevPage(ctx context.Context) (models.RecordPage, error) {
	m.prevCalls++
	return m.page, m.err
}
func (m *mockRecords) FireAlerts(threshold float64) []models.Record {
	m.lastThreshold = threshold
	return m.alerts
}
func (m *mockRecords) Snapshot() service.RecordsSnapshot {
	return service.RecordsSnapshot{Records: m.page.Records, Pagination: m.page.Pagination}
}

type mockSystem struct {
	authenticated bool
	loginErr      error
	logoutErr     error
	health        models.Health
	healthErr     error

	lastToken   string
	lastBaseURL string
	logoutCalls int
}

func (m *mockSystem) Login(ctx context.Context, token, baseURL string) error {
	m.lastToken, m.lastBaseURL = token, baseURL
	if m.loginErr == nil {
		m.authenticated = true
	}
	return m.loginErr
}
func (m *mockSystem) Logout(ctx context.Context) error {
	m.logoutCalls++
	if m.logoutErr == nil {
		m.authenticated = false
	}
	return m.logoutErr
}
func (m *mockSystem) CheckHealth(ctx context.Context) (models.Health, error) {
	return m.health, m.healthErr
}
func (m *mockSystem) Authenticated() bool { return m.authenticated }
func (m *mockSystem) Snapshot() service.SystemSnapshot {
	return service.SystemSnapshot{Authenticated: m.authenticated, BaseURL: m.lastBaseURL}
}

type mockSettings struct {
	settings models.Settings
	report   models.SyncReport
	err      error
	lastSent models.Settings
}

func (m *mockSettings) Fetch(ctx context.Context) (models.Settings, error) {
	return m.settings, m.err
}
func (m *mockSettings) Update(ctx context.Context, s models.Settings) (models.Settings, error) {
	m.lastSent = s
	return s, m.err
}
func (m *mockSettings) TriggerSync(ctx context.Context) (models.SyncReport, error) {
	return m.report, m.err
}
func (m *mockSettings) Snapshot() service.SettingsSnapshot { return service.SettingsSnapshot{} }

type mockLayout struct {
	collapsed bool
	err       error
}

func (m *mockLayout) SidebarCollapsed(ctx context.Context) (bool, error) {
	return m.collapsed, m.err
}
func (m *mockLayout) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	if m.err == nil {
		m.collapsed = collapsed
	}
	return m.err
}

// ---- Shared Test Helpers ----

// signedIn returns a service whose system store reports a configured token.
func signedIn() *service.Service {
	return &service.Service{
		Floors:   &mockFloors{},
		Routes:   &mockRoutes{},
		Records:  &mockRecords{},
		System:   &mockSystem{authenticated: true},
		Settings: &mockSettings{},
	}
}

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, &mockLayout{}, Config{}, nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func jsonHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}
