package httptransport

import (
	"net/http"

	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// HandleGetSession implements GET /api/session. Anonymous tabs get
// {"authenticated": false}.
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(h.Sessions.Current()))
}

// HandleLogin implements POST /api/session/login.
//
// Input: { "email": "jane@example.com", "password": "..." }
// Output: the session, or 401 authentication_rejected with the backend's message.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	snap, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(snap))
}

// HandleUpdateProfile implements PATCH /api/session/profile.
func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r, h.logger)
	if !ok {
		return
	}

	snap, err := h.Auth.UpdateProfile(ctx, req.patch())
	if err != nil {
		h.logger.WarnContext(ctx, "profile update failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(snap))
}

// HandleLogout implements DELETE /api/session. Logging out twice is fine.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context()); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGate implements GET /api/gate?capability=admin. Denials are
// answered with 200 so the shell can branch on the decision body.
func (h *Handler) HandleGate(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.Gate.CanEnter(r.URL.Query().Get("capability")))
}
