// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/google/uuid"

	dErrors "storefront/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a ProductID where a CartItemID is expected.
type (
	// UserID is the backend's user identifier. The backend emits it either as
	// a JSON number or a JSON string; both decode to the same value.
	UserID string
	// CartItemID is the server-assigned identity of one cart line.
	CartItemID int64
	// ProductID identifies a catalog product.
	ProductID int64
	// TabID identifies one running agent (one "tab") within an origin.
	TabID uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseCartItemID(s string) (CartItemID, error) {
	n, err := parsePositiveInt(s, "cart item ID")
	return CartItemID(n), err
}

func ParseTabID(s string) (TabID, error) {
	if s == "" {
		return TabID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "tab ID cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return TabID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "invalid tab ID format")
	}
	return TabID(id), nil
}

// NewTabID returns a random tab identifier.
func NewTabID() TabID { return TabID(uuid.New()) }

// String methods - for logging, storage keys and URL paths.

func (id UserID) String() string     { return string(id) }
func (id CartItemID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id ProductID) String() string  { return strconv.FormatInt(int64(id), 10) }
func (id TabID) String() string      { return uuid.UUID(id).String() }

// IsNil checks - used for service-layer validation.

func (id UserID) IsNil() bool { return id == "" }
func (id TabID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// UnmarshalJSON accepts both `42` and `"42"`.
func (id *UserID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// MarshalText lets TabID appear as a plain string in JSON and logs.
func (id TabID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

func (id *TabID) UnmarshalText(data []byte) error {
	parsed, err := ParseTabID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parsePositiveInt(s, label string) (int64, error) {
	if s == "" {
		return 0, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	return n, nil
}
