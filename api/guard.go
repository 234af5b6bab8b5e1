package api

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"presetwave/internal/auth"
	"presetwave/models"
	"presetwave/utils"
)

// Requirement is the authorization level a route policy demands.
type Requirement int

const (
	// RequireNone allows any request through.
	RequireNone Requirement = iota
	// RequireAuthenticated demands a valid session of any role.
	RequireAuthenticated
	// RequireAdminRole demands a valid admin session.
	RequireAdminRole
)

// Policy maps a path prefix to a requirement. Prefixes match on segment
// boundaries: "/admin" covers "/admin" and "/admin/users" but not
// "/administrators".
type Policy struct {
	Prefix      string
	Requirement Requirement
}

const (
	// LoginPath is where unauthenticated requests are sent.
	LoginPath = "/login"
	// HomePath is the neutral fallback for authenticated-but-unauthorized requests.
	HomePath = "/"
	// CallbackParam carries the originally requested path through the login redirect.
	CallbackParam = "callbackUrl"
)

// DefaultPolicies protects the back-office and the customer dashboard.
// Everything else is public.
var DefaultPolicies = []Policy{
	{Prefix: "/admin", Requirement: RequireAdminRole},
	{Prefix: "/dashboard", Requirement: RequireAuthenticated},
}

// Guard evaluates route policies at the edge, before any page logic runs.
type Guard struct {
	policies []Policy
}

// NewGuard creates a guard over the given policies. Policies are sorted
// longest-prefix-first so exactly one requirement wins per request.
func NewGuard(policies []Policy) *Guard {
	sorted := make([]Policy, len(policies))
	copy(sorted, policies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Guard{policies: sorted}
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allow bool
	// RedirectTo is set when Allow is false.
	RedirectTo string
}

// Allowed is the decision that lets a request through.
var Allowed = Decision{Allow: true}

// Authorize decides whether a request for path may proceed given the session
// view. It is stateless and deterministic: same path and session, same
// decision. Unauthenticated requests to protected paths are redirected to
// the login page with the original path as callback; authenticated requests
// lacking the required role are redirected to the home page.
func (g *Guard) Authorize(path string, view models.SessionView) Decision {
	requirement := RequireNone
	for _, p := range g.policies {
		if prefixMatch(path, p.Prefix) {
			requirement = p.Requirement
			break
		}
	}

	switch requirement {
	case RequireNone:
		return Allowed
	case RequireAuthenticated:
		if view.IsAuthenticated {
			return Allowed
		}
		return Decision{RedirectTo: loginRedirect(path)}
	case RequireAdminRole:
		if !view.IsAuthenticated {
			return Decision{RedirectTo: loginRedirect(path)}
		}
		if view.Role != models.RoleAdmin {
			return Decision{RedirectTo: HomePath}
		}
		return Allowed
	}
	return Allowed
}

// Middleware applies Authorize before the wrapped handler runs. It must be
// installed on every page surface; handler-level role checks exist only as
// defense-in-depth behind it.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		view := auth.SessionFromRequest(r)
		decision := g.Authorize(r.URL.Path, view)
		if !decision.Allow {
			http.Redirect(w, r, decision.RedirectTo, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loginRedirect(path string) string {
	callback := utils.SafeCallbackPath(path)
	if callback == "" {
		return LoginPath
	}
	return LoginPath + "?" + CallbackParam + "=" + url.QueryEscape(callback)
}

func prefixMatch(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
