// Package auth signs shoppers in against the backend and keeps their
// profile in the session store in step with what the backend stored.
package auth

import (
	"context"
	"log/slog"
	"strings"

	"storefront/internal/backend"
	"storefront/internal/platform/privacy"
	"storefront/internal/session"
	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	strs "storefront/pkg/string"
)

// Backend is the part of the REST backend used for sign-in and profiles.
type Backend interface {
	Login(ctx context.Context, email, password string) (*backend.LoginResult, error)
	UpdateUser(ctx context.Context, token string, userID id.UserID, update backend.UserUpdate) (*backend.User, error)
}

// Sessions is the session store.
type Sessions interface {
	Current() session.Snapshot
	Login(ctx context.Context, sess session.Session) error
	UpdateProfile(ctx context.Context, patch session.ProfilePatch) error
	Logout(ctx context.Context) error
}

type Authenticator struct {
	backend  Backend
	sessions Sessions
	logger   *slog.Logger
	metrics  *Metrics
}

type Option func(*Authenticator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(a *Authenticator) { a.metrics = m }
}

func New(b Backend, sessions Sessions, opts ...Option) *Authenticator {
	a := &Authenticator{backend: b, sessions: sessions}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Login authenticates and installs the resulting session. A refusal leaves
// the current session untouched.
func (a *Authenticator) Login(ctx context.Context, email, password string) (session.Snapshot, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		a.countLogin("invalid")
		return session.Snapshot{}, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	res, err := a.backend.Login(ctx, email, password)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeAuthenticationRejected) {
			a.countLogin("rejected")
			a.logger.InfoContext(ctx, "login rejected", "email", privacy.MaskEmail(email))
		} else {
			a.countLogin("failed")
			a.logger.WarnContext(ctx, "login failed", "email", privacy.MaskEmail(email), "error", err)
		}
		return session.Snapshot{}, err
	}

	sess := sessionFromUser(res.User)
	sess.Token = res.Token
	if err := a.sessions.Login(ctx, sess); err != nil {
		a.countLogin("failed")
		return session.Snapshot{}, err
	}
	a.countLogin("ok")
	return a.sessions.Current(), nil
}

// UpdateProfile sends the merged profile to the backend and stores what the
// backend returned. Role, token and expiry stay as they are.
func (a *Authenticator) UpdateProfile(ctx context.Context, patch session.ProfilePatch) (session.Snapshot, error) {
	cur := a.sessions.Current()
	if cur.Anonymous() {
		return cur, dErrors.New(dErrors.CodeNoActiveSession, "sign in to edit the profile")
	}
	if patch.Empty() {
		return cur, nil
	}

	merged := *cur.Session
	patch.Apply(&merged)
	user, err := a.backend.UpdateUser(ctx, cur.Token(), cur.UserID(), backend.UserUpdate{
		FirstName: merged.FirstName,
		LastName:  merged.LastName,
		Email:     merged.Email,
		Phone:     merged.Phone,
	})
	if err != nil {
		a.logger.WarnContext(ctx, "profile update failed",
			"user_id", cur.UserID(),
			"phone", privacy.MaskPhone(merged.Phone),
			"error", err,
		)
		return cur, err
	}

	stored := sessionFromUser(*user)
	if user.Image == "" {
		stored.AvatarURL = merged.AvatarURL
	}
	if patch.DisplayName != nil {
		stored.DisplayName = merged.DisplayName
	}
	if err := a.sessions.UpdateProfile(ctx, session.ProfilePatch{
		DisplayName: &stored.DisplayName,
		FirstName:   &stored.FirstName,
		LastName:    &stored.LastName,
		Email:       &stored.Email,
		Phone:       &stored.Phone,
		AvatarURL:   &stored.AvatarURL,
	}); err != nil {
		return a.sessions.Current(), err
	}
	return a.sessions.Current(), nil
}

// Logout signs out. Signing out while anonymous is a no-op.
func (a *Authenticator) Logout(ctx context.Context) error {
	return a.sessions.Logout(ctx)
}

func sessionFromUser(u backend.User) session.Session {
	return session.Session{
		UserID:      u.ID,
		DisplayName: DisplayName(u.FirstName, u.LastName),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Phone:       u.Phone,
		RoleCode:    u.RoleCode(),
		AvatarURL:   u.Image,
	}
}

// DisplayName renders "<last> <first>", the order the shop uses.
func DisplayName(first, last string) string {
	return strs.FullName(last, first)
}

func (a *Authenticator) countLogin(outcome string) {
	if a.metrics != nil {
		a.metrics.Logins.WithLabelValues(outcome).Inc()
	}
}
