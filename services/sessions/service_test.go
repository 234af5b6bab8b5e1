package sessions

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"presetwave/models"
)

type fixedEpochs map[string]int

func (f fixedEpochs) TokenEpoch(accountID string) int {
	return f[accountID]
}

func newTestService(t *testing.T, opts Options) *Service {
	t.Helper()
	if opts.Secret == "" {
		opts.Secret = "test-secret"
	}
	svc, err := NewService(opts)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return svc
}

func testAccount() models.Account {
	return models.Account{
		ID:         "42",
		Name:       "Test User",
		Email:      "test@example.com",
		Role:       models.RoleUser,
		Status:     models.AccountActive,
		TokenEpoch: 1,
	}
}

func TestNewService_RequiresSecret(t *testing.T) {
	if _, err := NewService(Options{}); err != ErrSecretRequired {
		t.Errorf("expected ErrSecretRequired, got %v", err)
	}
}

func TestIssueDecode_RoundTrip(t *testing.T) {
	svc := newTestService(t, Options{Epochs: fixedEpochs{"42": 1}})
	account := testAccount()

	token, expiresAt, err := svc.Issue(account)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if until := time.Until(expiresAt); until < 29*24*time.Hour || until > 31*24*time.Hour {
		t.Errorf("expected roughly 30 day lifetime, got %v", until)
	}

	view, err := svc.Decode(token)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.UserID != "42" {
		t.Errorf("expected subject 42, got %q", view.UserID)
	}
	if view.Role != models.RoleUser {
		t.Errorf("expected user role, got %q", view.Role)
	}
	if !view.IsAuthenticated {
		t.Error("expected authenticated view")
	}
	if view.IssuedAt.IsZero() || view.ExpiresAt.IsZero() {
		t.Error("expected issued and expiry timestamps to be set")
	}
}

func TestDecode_TamperedToken(t *testing.T) {
	svc := newTestService(t, Options{Epochs: fixedEpochs{"42": 1}})

	token, _, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Flip one character in the payload segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("expected three token segments, got %d", len(parts))
	}
	payload := []byte(parts[1])
	if payload[3] == 'A' {
		payload[3] = 'B'
	} else {
		payload[3] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := svc.Decode(tampered); err != ErrInvalidSession {
		t.Errorf("expected ErrInvalidSession for tampered token, got %v", err)
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	issuer := newTestService(t, Options{Secret: "secret-a"})
	verifier := newTestService(t, Options{Secret: "secret-b"})

	token, _, err := issuer.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Decode(token); err != ErrInvalidSession {
		t.Errorf("expected ErrInvalidSession across secrets, got %v", err)
	}
}

func TestDecode_Expired(t *testing.T) {
	svc := newTestService(t, Options{MaxAge: 1 * time.Millisecond, Epochs: fixedEpochs{"42": 1}})

	token, _, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, err := svc.Decode(token); err != ErrInvalidSession {
		t.Errorf("expected ErrInvalidSession for expired token, got %v", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	svc := newTestService(t, Options{})

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.Decode(token); err != ErrInvalidSession {
			t.Errorf("Decode(%q): expected ErrInvalidSession, got %v", token, err)
		}
	}
}

func TestDecode_RevokedEpoch(t *testing.T) {
	epochs := fixedEpochs{"42": 1}
	svc := newTestService(t, Options{Epochs: epochs})

	token, _, err := svc.Issue(testAccount())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.Decode(token); err != nil {
		t.Fatalf("expected valid token before revocation, got %v", err)
	}

	epochs["42"] = 2

	if _, err := svc.Decode(token); err != ErrInvalidSession {
		t.Errorf("expected ErrInvalidSession after epoch bump, got %v", err)
	}
}

func TestCookieRoundTrip(t *testing.T) {
	svc := newTestService(t, Options{CookieName: "pw_test"})

	rec := httptest.NewRecorder()
	svc.SetCookie(rec, "tok123", time.Now().Add(time.Hour))

	res := rec.Result()
	cookies := res.Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != "pw_test" || c.Value != "tok123" {
		t.Errorf("unexpected cookie %q=%q", c.Name, c.Value)
	}
	if !c.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite Lax, got %v", c.SameSite)
	}

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(c)
	if got := svc.TokenFromRequest(req); got != "tok123" {
		t.Errorf("expected cookie token, got %q", got)
	}
}

func TestClearCookie(t *testing.T) {
	svc := newTestService(t, Options{CookieName: "pw_test"})

	rec := httptest.NewRecorder()
	svc.ClearCookie(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	if cookies[0].Value != "" || cookies[0].MaxAge != -1 {
		t.Errorf("expected expired empty cookie, got value=%q maxAge=%d", cookies[0].Value, cookies[0].MaxAge)
	}
}

func TestTokenFromRequest_BearerFallback(t *testing.T) {
	svc := newTestService(t, Options{})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer header-token")
	if got := svc.TokenFromRequest(req); got != "header-token" {
		t.Errorf("expected header token, got %q", got)
	}

	bare := httptest.NewRequest("GET", "/", nil)
	if got := svc.TokenFromRequest(bare); got != "" {
		t.Errorf("expected empty token, got %q", got)
	}
}
