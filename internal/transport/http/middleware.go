package httptransport

import (
	"net/http"

	"storefront/internal/gate"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
)

// GateDeniedResponse tells the UI shell why a view is closed so it can
// redirect to the login page.
type GateDeniedResponse struct {
	Error  string      `json:"error"`
	Reason gate.Reason `json:"reason"`
}

// RequireSession answers 401 while the tab is anonymous.
func RequireSession(sessions Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions.Current().Anonymous() {
				httputil.WriteJSON(w, http.StatusUnauthorized, GateDeniedResponse{
					Error:  string(dErrors.CodeNoActiveSession),
					Reason: gate.ReasonNotAuthenticated,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapability answers 401 for anonymous tabs and 403 when the role
// does not grant capability.
func RequireCapability(g Gate, capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.CanEnter(capability)
			if !d.Allowed {
				writeDenied(w, d)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeDenied(w http.ResponseWriter, d gate.Decision) {
	status, code := http.StatusForbidden, dErrors.CodeForbidden
	if d.Reason == gate.ReasonNotAuthenticated {
		status, code = http.StatusUnauthorized, dErrors.CodeUnauthorized
	}
	httputil.WriteJSON(w, status, GateDeniedResponse{Error: string(code), Reason: d.Reason})
}
