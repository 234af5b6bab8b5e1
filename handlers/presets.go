package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"presetwave/internal/auth"
	"presetwave/models"
	"presetwave/services/downloads"
	"presetwave/services/presets"
)

type presetCatalogService interface {
	List(f presets.Filter) ([]models.Preset, int)
	Featured() []models.Preset
	Categories() map[models.PresetCategory]int
	Get(idOrSlug string) (models.Preset, bool)
	RecordDownload(id string) (models.Preset, error)
}

type favoritesService interface {
	Toggle(accountID, presetID string) (bool, error)
	List(accountID string) []string
	IsFavorite(accountID, presetID string) bool
}

type downloadsService interface {
	Record(accountID string, preset models.Preset) error
	History(accountID string) []models.DownloadRecord
	StartJob(accountID, presetID string) models.DownloadJob
	Job(accountID, jobID string) (models.DownloadJob, error)
}

type downloadTracker interface {
	TrackPageView(accountID string)
	TrackDownload(accountID string, preset models.Preset)
}

type accountLookup interface {
	Get(id string) (models.Account, bool)
}

// PresetsHandler serves the public catalog plus the authenticated
// download and favorites endpoints.
type PresetsHandler struct {
	presets   presetCatalogService
	favorites favoritesService
	downloads downloadsService
	accounts  accountLookup
	activity  activityRecorder
	analytics downloadTracker
	logger    *log.Logger
}

func NewPresetsHandler(catalog presetCatalogService, favoritesSvc favoritesService, downloadsSvc downloadsService, accountsSvc accountLookup, activitySvc activityRecorder, analyticsSvc downloadTracker, logger *log.Logger) *PresetsHandler {
	return &PresetsHandler{
		presets:   catalog,
		favorites: favoritesSvc,
		downloads: downloadsSvc,
		accounts:  accountsSvc,
		activity:  activitySvc,
		analytics: analyticsSvc,
		logger:    logger,
	}
}

// List returns a filtered page of the catalog. All query parameters are
// optional; the zero filter returns the most downloaded presets first.
func (h *PresetsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := presets.Filter{
		Search:   q.Get("q"),
		Category: models.PresetCategory(q.Get("category")),
		Tag:      q.Get("tag"),
		Sort:     presets.SortOrder(q.Get("sort")),
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}

	items, total := h.presets.List(filter)
	writeJSON(w, http.StatusOK, struct {
		Presets []models.Preset `json:"presets"`
		Total   int             `json:"total"`
	}{Presets: items, Total: total})
}

func (h *PresetsHandler) Featured(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]models.Preset{"presets": h.presets.Featured()})
}

func (h *PresetsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.presets.Categories())
}

// Get returns a single preset by id or slug and records a page view for
// the analytics conversion funnel.
func (h *PresetsHandler) Get(w http.ResponseWriter, r *http.Request) {
	preset, ok := h.presets.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}

	h.analytics.TrackPageView(auth.UserID(r))

	view := auth.SessionFromRequest(r)
	favorite := false
	if view.IsAuthenticated {
		favorite = h.favorites.IsFavorite(view.UserID, preset.ID)
	}

	writeJSON(w, http.StatusOK, struct {
		models.Preset
		Favorite bool `json:"favorite"`
	}{Preset: preset, Favorite: favorite})
}

// Download starts a simulated download job for the signed-in user and
// records the download in the history, activity log and analytics.
func (h *PresetsHandler) Download(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)

	preset, ok := h.presets.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}

	if _, err := h.presets.RecordDownload(preset.ID); err != nil {
		h.logger.Printf("presets: failed to count download of %s: %v", preset.ID, err)
	}
	if err := h.downloads.Record(view.UserID, preset); err != nil {
		h.logger.Printf("presets: failed to record download history: %v", err)
	}

	if actor, ok := h.accounts.Get(view.UserID); ok {
		h.activity.Record(actor, models.ActivityDownload, "Downloaded "+preset.Name, preset.Slug)
	}
	h.analytics.TrackDownload(view.UserID, preset)

	job := h.downloads.StartJob(view.UserID, preset.ID)
	writeJSON(w, http.StatusAccepted, job)
}

// DownloadJob reports progress of an in-flight download job. Jobs are
// scoped to the account that started them.
func (h *PresetsHandler) DownloadJob(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)

	job, err := h.downloads.Job(view.UserID, mux.Vars(r)["id"])
	if err != nil {
		if err == downloads.ErrJobNotFound {
			writeError(w, http.StatusNotFound, "download job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load download job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// DownloadHistory lists the signed-in user's past downloads, newest first.
func (h *PresetsHandler) DownloadHistory(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)
	writeJSON(w, http.StatusOK, map[string][]models.DownloadRecord{
		"downloads": h.downloads.History(view.UserID),
	})
}

// ToggleFavorite flips the favorite state of a preset for the signed-in
// user and reports the new state.
func (h *PresetsHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)

	preset, ok := h.presets.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, "preset not found")
		return
	}

	favorite, err := h.favorites.Toggle(view.UserID, preset.ID)
	if err != nil {
		h.logger.Printf("presets: failed to toggle favorite: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update favorites")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"favorite": favorite})
}

// Favorites returns the signed-in user's favorite presets. Favorites
// whose preset has since been removed are skipped.
func (h *PresetsHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)

	ids := h.favorites.List(view.UserID)
	items := make([]models.Preset, 0, len(ids))
	for _, id := range ids {
		if preset, ok := h.presets.Get(id); ok {
			items = append(items, preset)
		}
	}
	writeJSON(w, http.StatusOK, map[string][]models.Preset{"presets": items})
}
