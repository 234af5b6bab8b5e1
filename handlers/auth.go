package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"presetwave/internal/auth"
	"presetwave/models"
	"presetwave/services/accounts"
	"presetwave/services/invitations"
	"presetwave/utils"
)

type authAccountsService interface {
	Verify(email, password string) (models.Account, error)
	Get(id string) (models.Account, bool)
	Create(name, email, password string, role models.Role) (models.Account, error)
}

type authSessionsService interface {
	Issue(account models.Account) (string, time.Time, error)
	SetCookie(w http.ResponseWriter, token string, expiresAt time.Time)
	ClearCookie(w http.ResponseWriter)
}

type authInvitationsService interface {
	Validate(token string) (models.Invitation, error)
	MarkUsed(id, usedBy string) error
}

type activityRecorder interface {
	Record(actor models.Account, action models.ActivityAction, description, target string)
}

type loginTracker interface {
	TrackLogin(accountID string)
}

// AuthHandler serves login, logout, registration and the current-user
// endpoint. Login failures are reported with a single generic message so
// the response does not reveal whether an email is registered.
type AuthHandler struct {
	accounts    authAccountsService
	sessions    authSessionsService
	invitations authInvitationsService
	activity    activityRecorder
	analytics   loginTracker
	logger      *log.Logger
}

func NewAuthHandler(accountsSvc authAccountsService, sessionsSvc authSessionsService, invitationsSvc authInvitationsService, activitySvc activityRecorder, analyticsSvc loginTracker, logger *log.Logger) *AuthHandler {
	return &AuthHandler{
		accounts:    accountsSvc,
		sessions:    sessionsSvc,
		invitations: invitationsSvc,
		activity:    activitySvc,
		analytics:   analyticsSvc,
		logger:      logger,
	}
}

type loginRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type sessionResponse struct {
	User        userPayload `json:"user"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	CallbackURL string      `json:"callbackUrl,omitempty"`
}

type userPayload struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func accountPayload(a models.Account) userPayload {
	return userPayload{ID: a.ID, Name: a.Name, Email: a.Email, Role: a.Role}
}

// Login verifies credentials and issues a signed session token, delivered
// both as an HttpOnly cookie and in the JSON body for header-based clients.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.accounts.Verify(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		// Every credential failure maps to the same status and message.
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, expiresAt, err := h.sessions.Issue(account)
	if err != nil {
		h.logger.Printf("auth: failed to issue session for %s: %v", account.ID, err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	h.sessions.SetCookie(w, token, expiresAt)
	h.activity.Record(account, models.ActivityLogin, "Signed in", account.Email)
	h.analytics.TrackLogin(account.ID)

	writeJSON(w, http.StatusOK, struct {
		Token string `json:"token"`
		sessionResponse
	}{
		Token: token,
		sessionResponse: sessionResponse{
			User:        accountPayload(account),
			ExpiresAt:   expiresAt,
			CallbackURL: utils.SafeCallbackPath(req.CallbackURL),
		},
	})
}

// Logout clears the session cookie. Tokens are stateless, so a copy held
// elsewhere stays valid until expiry unless the account's epoch is bumped.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.ClearCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the account behind the current session.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	view := auth.SessionFromRequest(r)
	if !view.IsAuthenticated {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	account, ok := h.accounts.Get(view.UserID)
	if !ok {
		writeError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		User      userPayload `json:"user"`
		IssuedAt  time.Time   `json:"issuedAt"`
		ExpiresAt time.Time   `json:"expiresAt"`
	}{
		User:      accountPayload(account),
		IssuedAt:  view.IssuedAt,
		ExpiresAt: view.ExpiresAt,
	})
}

type registerRequest struct {
	Invitation string `json:"invitation"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

// Register creates an account from a valid invitation token and signs the
// new user in immediately.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invitation, err := h.invitations.Validate(req.Invitation)
	if err != nil {
		switch err {
		case invitations.ErrInvitationUsed:
			writeError(w, http.StatusConflict, "invitation already used")
		case invitations.ErrInvitationExpired:
			writeError(w, http.StatusGone, "invitation expired")
		default:
			writeError(w, http.StatusForbidden, "invalid invitation")
		}
		return
	}

	account, err := h.accounts.Create(strings.TrimSpace(req.Name), strings.TrimSpace(req.Email), req.Password, models.RoleUser)
	if err != nil {
		switch err {
		case accounts.ErrEmailExists:
			writeError(w, http.StatusConflict, "email already registered")
		case accounts.ErrPasswordRequired:
			writeError(w, http.StatusBadRequest, "password is required")
		default:
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	if err := h.invitations.MarkUsed(invitation.ID, account.ID); err != nil {
		h.logger.Printf("auth: failed to mark invitation %s used: %v", invitation.ID, err)
	}

	token, expiresAt, err := h.sessions.Issue(account)
	if err != nil {
		h.logger.Printf("auth: failed to issue session for %s: %v", account.ID, err)
		writeError(w, http.StatusInternalServerError, "account created but sign-in failed")
		return
	}

	h.sessions.SetCookie(w, token, expiresAt)
	h.activity.Record(account, models.ActivityUser, "Registered via invitation", account.Email)

	writeJSON(w, http.StatusCreated, struct {
		Token string `json:"token"`
		sessionResponse
	}{
		Token: token,
		sessionResponse: sessionResponse{
			User:      accountPayload(account),
			ExpiresAt: expiresAt,
		},
	})
}

type authErrorInfo struct {
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Fatal       bool   `json:"fatal"`
}

var authErrors = map[string]authErrorInfo{
	"Configuration": {
		Code:        "Configuration",
		Title:       "Server configuration error",
		Description: "The authentication service is misconfigured. Contact an administrator.",
		Fatal:       true,
	},
	"AccessDenied": {
		Code:        "AccessDenied",
		Title:       "Access denied",
		Description: "You do not have permission to view this page.",
	},
	"Verification": {
		Code:        "Verification",
		Title:       "Session invalid",
		Description: "Your session could not be verified. Please sign in again.",
	},
	"CredentialsSignin": {
		Code:        "CredentialsSignin",
		Title:       "Sign-in failed",
		Description: "Invalid email or password.",
	},
}

var defaultAuthError = authErrorInfo{
	Code:        "Default",
	Title:       "Authentication error",
	Description: "Something went wrong during authentication. Please try again.",
}

// Error maps an error code from the login redirect to a user-facing
// title and description.
func (h *AuthHandler) Error(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		code = r.URL.Query().Get("error")
	}

	info, ok := authErrors[code]
	if !ok {
		info = defaultAuthError
	}
	writeJSON(w, http.StatusOK, info)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already committed; an encode failure here means
	// the client went away, so there is nothing useful left to do.
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
