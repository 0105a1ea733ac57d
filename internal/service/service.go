package service

import (
	"context"

	"evacconsole/internal/credentials"
	"evacconsole/internal/graphedit"
	"evacconsole/internal/logger"
	"evacconsole/internal/models"
	"evacconsole/internal/transport"
)

// API is the Transport surface the stores depend on.
type API interface {
	Request(ctx context.Context, method, path string, opts transport.RequestOptions) transport.Result
}

// CredentialStore is the part of the credential context the system store drives.
type CredentialStore interface {
	Get() credentials.Credentials
	Set(ctx context.Context, u credentials.Update) error
	Clear(ctx context.Context) error
	AuthFailed() bool
}

// Floors manages the floor collection and the selected floor.
type Floors interface {
	List(ctx context.Context) ([]models.Floor, error)
	Get(ctx context.Context, id string) (models.Floor, error)
	Create(ctx context.Context, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error)
	Submit(ctx context.Context, d *graphedit.Draft, creating bool) (models.Floor, error)
	Update(ctx context.Context, id string, p models.FloorPayload, image *graphedit.ImageUpload) (models.Floor, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status models.FloorStatus) error
	SetCameraStatus(ctx context.Context, floorID, cameraID, status string) error
	SetScreenStatus(ctx context.Context, floorID, screenID, status string) error
	Select(id string)
	ActiveFloors() []models.Floor
	ByID(id string) (models.Floor, bool)
	Snapshot() FloorsSnapshot
}

// Routes holds the working route list of one floor.
type Routes interface {
	FetchHistory(ctx context.Context, floorID string) ([]models.Route, error)
	FetchLatest(ctx context.Context, floorID string) ([]models.Route, error)
	Compute(ctx context.Context, floorID string) ([]models.Route, error)
	HazardousRoutes() []models.Route
	RoutesFrom(startNode string) []models.Route
	Snapshot() RoutesSnapshot
}

// Records pages through detection records of one floor.
type Records interface {
	List(ctx context.Context, f models.RecordFilter) (models.RecordPage, error)
	GoToPage(ctx context.Context, page int) (models.RecordPage, error)
	NextPage(ctx context.Context) (models.RecordPage, error)
	PrevPage(ctx context.Context) (models.RecordPage, error)
	FireAlerts(threshold float64) []models.Record
	Snapshot() RecordsSnapshot
}

// System covers sign-in state and backend health.
type System interface {
	Login(ctx context.Context, token, baseURL string) error
	Logout(ctx context.Context) error
	CheckHealth(ctx context.Context) (models.Health, error)
	Authenticated() bool
	Snapshot() SystemSnapshot
}

// Settings reads and writes the backend's cloud settings.
type Settings interface {
	Fetch(ctx context.Context) (models.Settings, error)
	Update(ctx context.Context, s models.Settings) (models.Settings, error)
	TriggerSync(ctx context.Context) (models.SyncReport, error)
	Snapshot() SettingsSnapshot
}

// Service aggregates every entity store.
type Service struct {
	Floors   Floors
	Routes   Routes
	Records  Records
	System   System
	Settings Settings
}

// New wires the stores onto one Transport and credential context.
func New(api API, creds CredentialStore, log *logger.Logger) *Service {
	log = logger.OrNop(log)
	return &Service{
		Floors:   NewFloorStore(api, log),
		Routes:   NewRouteStore(api, log),
		Records:  NewRecordStore(api, log),
		System:   NewSystemStore(api, creds, log),
		Settings: NewSettingsStore(api, log),
	}
}

// ConsoleSnapshot is a read-only view of every store.
type ConsoleSnapshot struct {
	Floors   FloorsSnapshot   `json:"floors"`
	Routes   RoutesSnapshot   `json:"routes"`
	Records  RecordsSnapshot  `json:"records"`
	System   SystemSnapshot   `json:"system"`
	Settings SettingsSnapshot `json:"settings"`
}

// Snapshot collects the current view of all stores. Nil stores are skipped.
func (s *Service) Snapshot() ConsoleSnapshot {
	var out ConsoleSnapshot
	if s.Floors != nil {
		out.Floors = s.Floors.Snapshot()
	}
	if s.Routes != nil {
		out.Routes = s.Routes.Snapshot()
	}
	if s.Records != nil {
		out.Records = s.Records.Snapshot()
	}
	if s.System != nil {
		out.System = s.System.Snapshot()
	}
	if s.Settings != nil {
		out.Settings = s.Settings.Snapshot()
	}
	return out
}
