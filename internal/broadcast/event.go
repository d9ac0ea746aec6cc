// Package broadcast propagates change notifications to every tab of an
// origin and to in-process subscribers of the tab that made the change.
package broadcast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "storefront/pkg/domain"
)

// Kind tags an Event. Events carry no payload; receivers re-fetch.
type Kind string

const (
	KindSessionChanged Kind = "session_changed"
	KindCartChanged    Kind = "cart_changed"
)

// Kinds lists every kind a tab listens for.
var Kinds = []Kind{KindSessionChanged, KindCartChanged}

func (k Kind) Valid() bool {
	return k == KindSessionChanged || k == KindCartChanged
}

// signal is the short suffix used in channel and topic names.
func (k Kind) signal() string {
	switch k {
	case KindSessionChanged:
		return "session"
	case KindCartChanged:
		return "cart"
	default:
		return string(k)
	}
}

// Event is one notification. ID and Origin are delivery bookkeeping only.
type Event struct {
	ID     uuid.UUID `json:"id"`
	Kind   Kind      `json:"kind"`
	Origin id.TabID  `json:"origin"`
	At     time.Time `json:"at"`
}

// SignalName returns the well-known signal for kind within origin, e.g.
// "shop:signal:cart".
func SignalName(origin string, kind Kind) string {
	return origin + ":signal:" + kind.signal()
}

func encodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

func decodeEvent(b []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(b, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !ev.Kind.Valid() {
		return Event{}, fmt.Errorf("decode event: unknown kind %q", ev.Kind)
	}
	if ev.ID == uuid.Nil {
		return Event{}, fmt.Errorf("decode event: missing id")
	}
	return ev, nil
}
