// Package session owns the signed-in shopper's identity and bearer token for
// one tab, persists it for the origin, and expires it with the token.
package session

import (
	"strings"
	"time"

	id "storefront/pkg/domain"
)

// Session is a signed-in shopper. Token and UserID are always set together.
type Session struct {
	UserID      id.UserID
	DisplayName string
	FirstName   string
	LastName    string
	Email       string
	Phone       string
	RoleCode    string
	AvatarURL   string
	Token       string
	ExpiresAt   time.Time
}

// HasRole compares role codes case-insensitively.
func (s Session) HasRole(code string) bool {
	return strings.EqualFold(strings.TrimSpace(s.RoleCode), strings.TrimSpace(code))
}

// Snapshot is an immutable view of the store. A nil Session means anonymous.
type Snapshot struct {
	Session *Session
}

// Anonymous reports whether nobody is signed in.
func (s Snapshot) Anonymous() bool { return s.Session == nil }

// UserID returns the signed-in user, or "" when anonymous.
func (s Snapshot) UserID() id.UserID {
	if s.Session == nil {
		return ""
	}
	return s.Session.UserID
}

// Token returns the bearer token, or "" when anonymous.
func (s Snapshot) Token() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.Token
}

// SameUser reports whether both snapshots are signed in as the same user.
func (s Snapshot) SameUser(other Snapshot) bool {
	return !s.Anonymous() && !other.Anonymous() && s.Session.UserID == other.Session.UserID
}

func snapshotOf(s *Session) Snapshot {
	if s == nil {
		return Snapshot{}
	}
	cp := *s
	return Snapshot{Session: &cp}
}

// ProfilePatch updates profile fields. Nil fields are left unchanged.
// Token, expiry and role are never touched by a profile update.
type ProfilePatch struct {
	DisplayName *string
	FirstName   *string
	LastName    *string
	Email       *string
	Phone       *string
	AvatarURL   *string
}

// Apply copies the set fields onto s, trimmed of surrounding whitespace.
func (p ProfilePatch) Apply(s *Session) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&s.DisplayName, p.DisplayName)
	set(&s.FirstName, p.FirstName)
	set(&s.LastName, p.LastName)
	set(&s.Email, p.Email)
	set(&s.Phone, p.Phone)
	set(&s.AvatarURL, p.AvatarURL)
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.DisplayName == nil && p.FirstName == nil && p.LastName == nil &&
		p.Email == nil && p.Phone == nil && p.AvatarURL == nil
}
