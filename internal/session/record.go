package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	id "storefront/pkg/domain"
)

// record is the persisted form of a Session.
type record struct {
	UserID                  id.UserID `json:"userId"`
	DisplayName             string    `json:"displayName"`
	FirstName               string    `json:"firstname,omitempty"`
	LastName                string    `json:"lastname,omitempty"`
	Email                   string    `json:"email,omitempty"`
	Phone                   string    `json:"phone,omitempty"`
	RoleCode                string    `json:"roleCode,omitempty"`
	AvatarURL               string    `json:"avatarUrl,omitempty"`
	Token                   string    `json:"token"`
	TokenExpiryEpochSeconds int64     `json:"tokenExpiryEpochSeconds"`
}

func encodeRecord(s *Session) ([]byte, error) {
	return json.Marshal(record{
		UserID:                  s.UserID,
		DisplayName:             s.DisplayName,
		FirstName:               s.FirstName,
		LastName:                s.LastName,
		Email:                   s.Email,
		Phone:                   s.Phone,
		RoleCode:                s.RoleCode,
		AvatarURL:               s.AvatarURL,
		Token:                   s.Token,
		TokenExpiryEpochSeconds: s.ExpiresAt.Unix(),
	})
}

// decodeRecord rejects records that do not describe a whole session.
func decodeRecord(b []byte) (*Session, error) {
	var r record
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	if r.UserID.IsNil() || strings.TrimSpace(r.Token) == "" || r.TokenExpiryEpochSeconds <= 0 {
		return nil, fmt.Errorf("decode session record: incomplete session")
	}
	return &Session{
		UserID:      r.UserID,
		DisplayName: r.DisplayName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		RoleCode:    r.RoleCode,
		AvatarURL:   r.AvatarURL,
		Token:       r.Token,
		ExpiresAt:   time.Unix(r.TokenExpiryEpochSeconds, 0).UTC(),
	}, nil
}
