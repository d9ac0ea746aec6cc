package httptransport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/broadcast"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

const (
	eventBuffer = 32
	writeWait   = 5 * time.Second
)

// subscribe forwards broadcast events to a buffered channel. A client that
// falls behind loses events; they are cues to re-fetch, so the next one
// serves as well.
func (h *Handler) subscribe() (<-chan EventMessage, func()) {
	out := make(chan EventMessage, eventBuffer)
	tab := h.Events.Tab()
	stop := h.Events.Subscribe(func(ev broadcast.Event) {
		msg := EventMessage{
			ID:     ev.ID.String(),
			Kind:   string(ev.Kind),
			Remote: ev.Origin != tab,
			At:     ev.At,
		}
		select {
		case out <- msg:
		default:
			h.logger.Warn("event stream client too slow; dropping event", "kind", ev.Kind)
		}
	})
	return out, stop
}

// HandleEventStream implements GET /api/events as server-sent events. Each
// broadcast event becomes "event: <kind>" with an EventMessage as data.
func (h *Handler) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}
	events, stop := h.subscribe()
	defer stop()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, ": connected\n\n") //nolint:errcheck // a broken stream ends on the next write
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-events:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Kind, data); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// HandleEventSocket implements GET /api/events/ws. Every broadcast event is
// sent as a JSON EventMessage text frame; client frames are ignored.
func (h *Handler) HandleEventSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket upgrade failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return
	}
	defer conn.Close()

	events, stop := h.subscribe()
	defer stop()

	// The read loop notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(h.heartbeatInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case msg := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // surfaced by WriteJSON
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
