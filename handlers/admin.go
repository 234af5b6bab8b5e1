package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sethvargo/go-password/password"

	"presetwave/internal/auth"
	"presetwave/internal/database"
	"presetwave/models"
	"presetwave/services/accounts"
	"presetwave/services/analytics"
	"presetwave/services/presets"
)

type adminAccountsService interface {
	List() []models.Account
	Get(id string) (models.Account, bool)
	Create(name, email, password string, role models.Role) (models.Account, error)
	Rename(id, newName string) error
	SetRole(id string, role models.Role) error
	SetStatus(id string, status models.AccountStatus) error
	UpdatePassword(id, newPassword string) error
	BumpEpoch(id string) error
	Delete(id string) error
}

type adminPresetsService interface {
	Get(idOrSlug string) (models.Preset, bool)
	Create(in presets.Input) (models.Preset, error)
	Update(id string, in presets.Input) (models.Preset, error)
	Delete(id string) error
}

type adminInvitationsService interface {
	Create(createdBy string, expiresIn time.Duration) (models.Invitation, error)
	List() []models.Invitation
	Revoke(id string) error
}

type activityLister interface {
	List(f database.ActivityFilter) ([]models.ActivityEntry, int, error)
}

type analyticsOverview interface {
	Overview(windowDays int) (analytics.Overview, error)
}

type favoritesCleaner interface {
	RemovePreset(presetID string) error
}

// AdminHandler serves the back-office API: user management, preset CRUD,
// the activity log, analytics and invitations. Routes are registered
// behind the admin middleware; each method re-checks the role anyway so
// a misregistered route fails closed.
type AdminHandler struct {
	accounts    adminAccountsService
	presets     adminPresetsService
	favorites   favoritesCleaner
	invitations adminInvitationsService
	activity    activityLister
	recorder    activityRecorder
	analytics   analyticsOverview
	logger      *log.Logger
}

func NewAdminHandler(accountsSvc adminAccountsService, presetsSvc adminPresetsService, favoritesSvc favoritesCleaner, invitationsSvc adminInvitationsService, activitySvc activityLister, recorder activityRecorder, analyticsSvc analyticsOverview, logger *log.Logger) *AdminHandler {
	return &AdminHandler{
		accounts:    accountsSvc,
		presets:     presetsSvc,
		favorites:   favoritesSvc,
		invitations: invitationsSvc,
		activity:    activitySvc,
		recorder:    recorder,
		analytics:   analyticsSvc,
		logger:      logger,
	}
}

func (h *AdminHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (models.Account, bool) {
	view := auth.SessionFromRequest(r)
	if !view.IsAuthenticated {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return models.Account{}, false
	}
	if !view.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin access required")
		return models.Account{}, false
	}
	actor, ok := h.accounts.Get(view.UserID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "account no longer exists")
		return models.Account{}, false
	}
	return actor, true
}

// ListUsers returns every account, admins first.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Account{"users": h.accounts.List()})
}

type createUserRequest struct {
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// CreateUser adds an account with a generated temporary password, which is
// returned once in the response and never stored in the clear.
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role == "" {
		req.Role = models.RoleUser
	}

	tempPassword, err := password.Generate(16, 4, 2, false, false)
	if err != nil {
		h.logger.Printf("admin: failed to generate password: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate password")
		return
	}

	account, err := h.accounts.Create(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), tempPassword, req.Role)
	if err != nil {
		switch err {
		case accounts.ErrEmailExists:
			writeError(w, http.StatusConflict, "email already registered")
		case accounts.ErrInvalidRole:
			writeError(w, http.StatusBadRequest, "invalid role")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Created account "+account.Email, account.ID)
	writeJSON(w, http.StatusCreated, struct {
		User         models.Account `json:"user"`
		TempPassword string         `json:"tempPassword"`
	}{User: account, TempPassword: tempPassword})
}

type updateUserRequest struct {
	Name   *string               `json:"name,omitempty"`
	Role   *models.Role          `json:"role,omitempty"`
	Status *models.AccountStatus `json:"status,omitempty"`
}

// UpdateUser applies a partial update to an account. Deactivating or
// demoting takes effect on existing sessions through the epoch check.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name != nil {
		if err := h.accounts.Rename(id, strings.TrimSpace(*req.Name)); err != nil {
			h.writeAccountError(w, err)
			return
		}
	}
	if req.Role != nil {
		if err := h.accounts.SetRole(id, *req.Role); err != nil {
			h.writeAccountError(w, err)
			return
		}
	}
	if req.Status != nil {
		if err := h.accounts.SetStatus(id, *req.Status); err != nil {
			h.writeAccountError(w, err)
			return
		}
	}

	account, ok := h.accounts.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Updated account "+account.Email, account.ID)
	writeJSON(w, http.StatusOK, map[string]models.Account{"user": account})
}

// ResetPassword generates a new temporary password for an account and
// invalidates its existing sessions.
func (h *AdminHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	tempPassword, err := password.Generate(16, 4, 2, false, false)
	if err != nil {
		h.logger.Printf("admin: failed to generate password: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to generate password")
		return
	}

	if err := h.accounts.UpdatePassword(id, tempPassword); err != nil {
		h.writeAccountError(w, err)
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Reset password", id)
	writeJSON(w, http.StatusOK, map[string]string{"tempPassword": tempPassword})
}

// ForceLogout invalidates every outstanding session for an account by
// advancing its token epoch.
func (h *AdminHandler) ForceLogout(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.accounts.BumpEpoch(id); err != nil {
		h.writeAccountError(w, err)
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Revoked sessions", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sessions revoked"})
}

// DeleteUser removes an account. The last remaining admin cannot be
// deleted.
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.accounts.Delete(id); err != nil {
		h.writeAccountError(w, err)
		return
	}

	h.recorder.Record(actor, models.ActivityDelete, "Deleted account", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) writeAccountError(w http.ResponseWriter, err error) {
	switch err {
	case accounts.ErrAccountNotFound:
		writeError(w, http.StatusNotFound, "account not found")
	case accounts.ErrCannotDeleteLastAdm:
		writeError(w, http.StatusConflict, "cannot remove the last admin")
	case accounts.ErrInvalidRole:
		writeError(w, http.StatusBadRequest, "invalid role")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// CreatePreset adds a preset to the catalog.
func (h *AdminHandler) CreatePreset(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var in presets.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preset, err := h.presets.Create(in)
	if err != nil {
		h.writePresetError(w, err)
		return
	}

	h.recorder.Record(actor, models.ActivityUpload, "Added preset "+preset.Name, preset.Slug)
	writeJSON(w, http.StatusCreated, preset)
}

// UpdatePreset replaces the editable fields of a preset.
func (h *AdminHandler) UpdatePreset(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	var in presets.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preset, err := h.presets.Update(id, in)
	if err != nil {
		h.writePresetError(w, err)
		return
	}

	h.recorder.Record(actor, models.ActivityEdit, "Updated preset "+preset.Name, preset.Slug)
	writeJSON(w, http.StatusOK, preset)
}

// DeletePreset removes a preset and clears it from everyone's favorites.
func (h *AdminHandler) DeletePreset(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	preset, found := h.presets.Get(id)

	if err := h.presets.Delete(id); err != nil {
		h.writePresetError(w, err)
		return
	}
	if err := h.favorites.RemovePreset(id); err != nil {
		h.logger.Printf("admin: failed to clear favorites for %s: %v", id, err)
	}

	target := id
	if found {
		target = preset.Slug
	}
	h.recorder.Record(actor, models.ActivityDelete, "Deleted preset", target)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *AdminHandler) writePresetError(w http.ResponseWriter, err error) {
	switch err {
	case presets.ErrPresetNotFound:
		writeError(w, http.StatusNotFound, "preset not found")
	case presets.ErrSlugExists:
		writeError(w, http.StatusConflict, "a preset with that name already exists")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

// Activity returns a filtered page of the activity log, newest first.
func (h *AdminHandler) Activity(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	q := r.URL.Query()
	filter := database.ActivityFilter{
		Action: models.ActivityAction(q.Get("action")),
		Search: q.Get("q"),
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		filter.Offset = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter.Limit = v
	}

	entries, total, err := h.activity.List(filter)
	if err != nil {
		h.logger.Printf("admin: failed to list activity: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load activity log")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Entries []models.ActivityEntry `json:"entries"`
		Total   int                    `json:"total"`
	}{Entries: entries, Total: total})
}

// Analytics aggregates downloads, active users, revenue and conversion
// over a trailing window (default 30 days).
func (h *AdminHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}

	windowDays := 30
	if v, err := strconv.Atoi(r.URL.Query().Get("window")); err == nil && v > 0 {
		windowDays = v
	}

	overview, err := h.analytics.Overview(windowDays)
	if err != nil {
		h.logger.Printf("admin: failed to build analytics overview: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

type createInvitationRequest struct {
	ExpiresInHours int `json:"expiresInHours"`
}

// CreateInvitation mints a registration invitation token.
func (h *AdminHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	var req createInvitationRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors on an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	expiresIn := 72 * time.Hour
	if req.ExpiresInHours > 0 {
		expiresIn = time.Duration(req.ExpiresInHours) * time.Hour
	}

	invitation, err := h.invitations.Create(actor.ID, expiresIn)
	if err != nil {
		h.logger.Printf("admin: failed to create invitation: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create invitation")
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Created invitation", invitation.ID)
	writeJSON(w, http.StatusCreated, invitation)
}

// ListInvitations returns all invitations, newest first.
func (h *AdminHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireAdmin(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]models.Invitation{"invitations": h.invitations.List()})
}

// RevokeInvitation deletes an unused invitation.
func (h *AdminHandler) RevokeInvitation(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}

	id := mux.Vars(r)["id"]
	if err := h.invitations.Revoke(id); err != nil {
		writeError(w, http.StatusNotFound, "invitation not found")
		return
	}

	h.recorder.Record(actor, models.ActivityUser, "Revoked invitation", id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
