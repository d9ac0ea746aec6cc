// Package gate decides whether a protected view may be shown for the
// current session. It never navigates; callers redirect on a denial.
package gate

import (
	"strings"

	"storefront/internal/session"
)

// Reason explains a denial.
type Reason string

const (
	ReasonNotAuthenticated Reason = "not_authenticated"
	ReasonInsufficientRole Reason = "insufficient_role"
)

// Decision is the outcome of CanEnter. Reason is empty when Allowed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

// Sessions is the read side of the session store.
type Sessions interface {
	Current() session.Snapshot
	Subscribe(o session.Observer) func()
}

type Gate struct {
	sessions Sessions
}

func New(sessions Sessions) *Gate {
	return &Gate{sessions: sessions}
}

// CanEnter requires a session and, when capability is not blank, a role
// code equal to it ignoring case.
func (g *Gate) CanEnter(capability string) Decision {
	return Evaluate(g.sessions.Current(), capability)
}

// Watch calls fn with the current decision and again after every session
// change. The returned function stops watching.
func (g *Gate) Watch(capability string, fn func(Decision)) func() {
	unsubscribe := g.sessions.Subscribe(func(_, next session.Snapshot) {
		fn(Evaluate(next, capability))
	})
	fn(g.CanEnter(capability))
	return unsubscribe
}

// Evaluate is CanEnter for an explicit snapshot.
func Evaluate(snap session.Snapshot, capability string) Decision {
	if snap.Anonymous() {
		return Decision{Reason: ReasonNotAuthenticated}
	}
	if strings.TrimSpace(capability) != "" && !snap.Session.HasRole(capability) {
		return Decision{Reason: ReasonInsufficientRole}
	}
	return Decision{Allowed: true}
}
