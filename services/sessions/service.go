package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"presetwave/models"
)

var (
	ErrSecretRequired = errors.New("session secret not provided")
	// ErrInvalidSession covers every decode failure: bad signature, malformed
	// payload, expiry, stale epoch. Callers must treat them all as "no
	// session" rather than distinguishing the cause.
	ErrInvalidSession = errors.New("invalid or expired session")
)

const (
	// DefaultMaxAge is the default session lifetime.
	DefaultMaxAge = 30 * 24 * time.Hour
)

// EpochSource reports the current token epoch for an account. Decode uses it
// solely to reject revoked tokens; role and identity still come from the
// token claims alone.
type EpochSource interface {
	TokenEpoch(accountID string) int
}

// Service issues and decodes signed session tokens. The server keeps no
// per-session state: every request is authenticated by re-validating the
// token signature, expiry and epoch.
type Service struct {
	secret       []byte
	maxAge       time.Duration
	cookieName   string
	cookieSecure bool
	epochs       EpochSource
}

// Options configures a sessions service.
type Options struct {
	Secret       string
	MaxAge       time.Duration
	CookieName   string
	CookieSecure bool
	Epochs       EpochSource
}

// NewService creates a sessions service. The signing secret is mandatory.
func NewService(opts Options) (*Service, error) {
	if opts.Secret == "" {
		return nil, ErrSecretRequired
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.CookieName == "" {
		opts.CookieName = "presetwave_session"
	}

	return &Service{
		secret:       []byte(opts.Secret),
		maxAge:       opts.MaxAge,
		cookieName:   opts.CookieName,
		cookieSecure: opts.CookieSecure,
		epochs:       opts.Epochs,
	}, nil
}

// Claims is the session token payload. Role travels in the token so decoded
// sessions never re-query the account registry for it.
type Claims struct {
	Role  models.Role `json:"role"`
	Epoch int         `json:"epoch"`
	jwt.RegisteredClaims
}

// Issue mints a signed, time-bounded token for a verified account.
func (s *Service) Issue(account models.Account) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(s.maxAge)
	claims := Claims{
		Role:  account.Role,
		Epoch: account.TokenEpoch,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Decode verifies a token and projects it into a SessionView. Every failure
// mode (tampered signature, malformed payload, expiry, revoked epoch) yields
// ErrInvalidSession and an unauthenticated view.
func (s *Service) Decode(tokenStr string) (models.SessionView, error) {
	if tokenStr == "" {
		return models.SessionView{}, ErrInvalidSession
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	})
	if err != nil {
		return models.SessionView{}, ErrInvalidSession
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return models.SessionView{}, ErrInvalidSession
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return models.SessionView{}, ErrInvalidSession
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return models.SessionView{}, ErrInvalidSession
	}

	// Revocation check: the registry is consulted for the epoch integer only,
	// never to refresh the role claim.
	if s.epochs != nil && claims.Epoch != s.epochs.TokenEpoch(claims.Subject) {
		return models.SessionView{}, ErrInvalidSession
	}

	return models.SessionView{
		UserID:          claims.Subject,
		Role:            claims.Role,
		IsAuthenticated: true,
		IssuedAt:        claims.IssuedAt.Time,
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

// CookieName returns the configured cookie carrier name.
func (s *Service) CookieName() string {
	return s.cookieName
}

// SetCookie attaches the session token to the response as an HttpOnly cookie.
func (s *Service) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie deletes the session cookie. Sign-out is client-side only:
// the token itself stays valid until expiry or an epoch bump.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// TokenFromRequest extracts the session token from the cookie carrier or,
// for API clients, from a Bearer Authorization header.
func (s *Service) TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(s.cookieName); err == nil && c.Value != "" {
		return c.Value
	}

	const bearerPrefix = "Bearer "
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > len(bearerPrefix) && authHeader[:len(bearerPrefix)] == bearerPrefix {
		return authHeader[len(bearerPrefix):]
	}

	return ""
}
