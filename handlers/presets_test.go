package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"presetwave/handlers"
	"presetwave/models"
	"presetwave/services/downloads"
	"presetwave/services/presets"
)

// fakeCatalog implements the preset catalog over a fixed slice.
type fakeCatalog struct {
	items       []models.Preset
	recordedIDs []string
}

func (f *fakeCatalog) List(filter presets.Filter) ([]models.Preset, int) {
	return f.items, len(f.items)
}

func (f *fakeCatalog) Featured() []models.Preset {
	out := make([]models.Preset, 0)
	for _, p := range f.items {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out
}

func (f *fakeCatalog) Categories() map[models.PresetCategory]int {
	counts := make(map[models.PresetCategory]int)
	for _, p := range f.items {
		counts[p.Category]++
	}
	return counts
}

func (f *fakeCatalog) Get(idOrSlug string) (models.Preset, bool) {
	for _, p := range f.items {
		if p.ID == idOrSlug || p.Slug == idOrSlug {
			return p, true
		}
	}
	return models.Preset{}, false
}

func (f *fakeCatalog) RecordDownload(id string) (models.Preset, error) {
	f.recordedIDs = append(f.recordedIDs, id)
	p, ok := f.Get(id)
	if !ok {
		return models.Preset{}, presets.ErrPresetNotFound
	}
	p.Downloads++
	return p, nil
}

type fakeFavorites struct {
	favorited map[string]bool
}

func (f *fakeFavorites) Toggle(accountID, presetID string) (bool, error) {
	if f.favorited == nil {
		f.favorited = make(map[string]bool)
	}
	f.favorited[presetID] = !f.favorited[presetID]
	return f.favorited[presetID], nil
}

func (f *fakeFavorites) List(accountID string) []string {
	out := make([]string, 0)
	for id, on := range f.favorited {
		if on {
			out = append(out, id)
		}
	}
	return out
}

func (f *fakeFavorites) IsFavorite(accountID, presetID string) bool {
	return f.favorited[presetID]
}

func (f *fakeFavorites) RemovePreset(presetID string) error {
	delete(f.favorited, presetID)
	return nil
}

type fakeDownloads struct {
	records []models.DownloadRecord
	job     models.DownloadJob
	jobErr  error
}

func (f *fakeDownloads) Record(accountID string, preset models.Preset) error {
	f.records = append(f.records, models.DownloadRecord{PresetID: preset.ID, PresetName: preset.Name, AccountID: accountID, Time: time.Now()})
	return nil
}

func (f *fakeDownloads) History(accountID string) []models.DownloadRecord {
	return f.records
}

func (f *fakeDownloads) StartJob(accountID, presetID string) models.DownloadJob {
	f.job = models.DownloadJob{ID: "job-1", AccountID: accountID, PresetID: presetID, Status: models.DownloadRunning}
	return f.job
}

func (f *fakeDownloads) Job(accountID, jobID string) (models.DownloadJob, error) {
	if f.jobErr != nil {
		return models.DownloadJob{}, f.jobErr
	}
	return f.job, nil
}

func catalogFixture() []models.Preset {
	return []models.Preset{
		{ID: "p1", Slug: "summer-vibes", Name: "Summer Vibes", Category: models.CategoryPremium, PriceCents: 1999, Featured: true},
		{ID: "p2", Slug: "clean-minimal", Name: "Clean Minimal", Category: models.CategoryFree, Featured: true},
		{ID: "p3", Slug: "urban-street", Name: "Urban Street", Category: models.CategoryFree},
	}
}

func newPresetsHandler(catalog *fakeCatalog, favoritesSvc *fakeFavorites, downloadsSvc *fakeDownloads, activity *fakeActivityRecorder, analytics *fakeAnalytics) *handlers.PresetsHandler {
	return handlers.NewPresetsHandler(
		catalog,
		favoritesSvc,
		downloadsSvc,
		&fakeAccountsService{getAccount: demoUser(), getOK: true},
		activity,
		analytics,
		testLogger(),
	)
}

func TestPresetsList(t *testing.T) {
	h := newPresetsHandler(&fakeCatalog{items: catalogFixture()}, &fakeFavorites{}, &fakeDownloads{}, &fakeActivityRecorder{}, &fakeAnalytics{})

	req := httptest.NewRequest("GET", "/api/v1/presets", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Presets []models.Preset `json:"presets"`
		Total   int             `json:"total"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 3 || len(resp.Presets) != 3 {
		t.Errorf("expected full fixture, got %d of %d", len(resp.Presets), resp.Total)
	}
}

func TestPresetsGet(t *testing.T) {
	analytics := &fakeAnalytics{}
	h := newPresetsHandler(&fakeCatalog{items: catalogFixture()}, &fakeFavorites{}, &fakeDownloads{}, &fakeActivityRecorder{}, analytics)

	req := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/presets/summer-vibes", nil), map[string]string{"id": "summer-vibes"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if analytics.pageViews != 1 {
		t.Error("expected a tracked page view")
	}

	missing := mux.SetURLVars(httptest.NewRequest("GET", "/api/v1/presets/nope", nil), map[string]string{"id": "nope"})
	missingRec := httptest.NewRecorder()
	h.Get(missingRec, missing)
	if missingRec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", missingRec.Code)
	}
}

func TestPresetsDownload(t *testing.T) {
	catalog := &fakeCatalog{items: catalogFixture()}
	downloadsSvc := &fakeDownloads{}
	activity := &fakeActivityRecorder{}
	analytics := &fakeAnalytics{}
	h := newPresetsHandler(catalog, &fakeFavorites{}, downloadsSvc, activity, analytics)

	req := withSession(httptest.NewRequest("POST", "/api/v1/presets/p1/download", nil), userSession())
	req = mux.SetURLVars(req, map[string]string{"id": "p1"})
	rec := httptest.NewRecorder()
	h.Download(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(catalog.recordedIDs) != 1 || catalog.recordedIDs[0] != "p1" {
		t.Error("expected catalog download counter to be bumped")
	}
	if len(downloadsSvc.records) != 1 {
		t.Error("expected a history record")
	}
	if analytics.downloads != 1 {
		t.Error("expected analytics download event")
	}
	if len(activity.actions) != 1 || activity.actions[0] != models.ActivityDownload {
		t.Errorf("expected download activity, got %v", activity.actions)
	}

	var job models.DownloadJob
	if err := json.NewDecoder(rec.Body).Decode(&job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	if job.ID == "" || job.Status != models.DownloadRunning {
		t.Errorf("expected a running job, got %+v", job)
	}
}

func TestPresetsDownloadJob_NotFound(t *testing.T) {
	h := newPresetsHandler(&fakeCatalog{items: catalogFixture()}, &fakeFavorites{}, &fakeDownloads{jobErr: downloads.ErrJobNotFound}, &fakeActivityRecorder{}, &fakeAnalytics{})

	req := withSession(httptest.NewRequest("GET", "/api/v1/me/downloads/jobs/missing", nil), userSession())
	req = mux.SetURLVars(req, map[string]string{"id": "missing"})
	rec := httptest.NewRecorder()
	h.DownloadJob(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPresetsToggleFavorite(t *testing.T) {
	favoritesSvc := &fakeFavorites{}
	h := newPresetsHandler(&fakeCatalog{items: catalogFixture()}, favoritesSvc, &fakeDownloads{}, &fakeActivityRecorder{}, &fakeAnalytics{})

	req := withSession(httptest.NewRequest("POST", "/api/v1/presets/p2/favorite", nil), userSession())
	req = mux.SetURLVars(req, map[string]string{"id": "p2"})
	rec := httptest.NewRecorder()
	h.ToggleFavorite(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]bool
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp["favorite"] {
		t.Error("expected favorite to be on after first toggle")
	}
}

func TestPresetsFavorites_SkipsDeleted(t *testing.T) {
	favoritesSvc := &fakeFavorites{favorited: map[string]bool{"p2": true, "deleted-preset": true}}
	h := newPresetsHandler(&fakeCatalog{items: catalogFixture()}, favoritesSvc, &fakeDownloads{}, &fakeActivityRecorder{}, &fakeAnalytics{})

	req := withSession(httptest.NewRequest("GET", "/api/v1/me/favorites", nil), userSession())
	rec := httptest.NewRecorder()
	h.Favorites(rec, req)

	var resp struct {
		Presets []models.Preset `json:"presets"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Presets) != 1 || resp.Presets[0].ID != "p2" {
		t.Errorf("expected only surviving presets, got %v", resp.Presets)
	}
}
