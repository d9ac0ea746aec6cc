// Package httptransport is the agent API the UI shell of a tab talks to.
// Handlers decode, delegate to the session, cart and checkout services and
// translate domain errors; they hold no state of their own.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"storefront/internal/broadcast"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/gate"
	"storefront/internal/session"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/middleware/request"
)

const (
	maxBodyBytes   = 64 << 10
	requestTimeout = 30 * time.Second
)

// Sessions is the read side of the session store.
type Sessions interface {
	Current() session.Snapshot
}

type Authenticator interface {
	Login(ctx context.Context, email, password string) (session.Snapshot, error)
	UpdateProfile(ctx context.Context, patch session.ProfilePatch) (session.Snapshot, error)
	Logout(ctx context.Context) error
}

type Cart interface {
	Current() cart.Snapshot
	Refresh(ctx context.Context) (cart.Snapshot, error)
	AddLine(ctx context.Context, productID id.ProductID, quantity int) error
	SetLineQuantity(ctx context.Context, itemID id.CartItemID, quantity int) error
	RemoveLine(ctx context.Context, itemID id.CartItemID) error
}

type Checkout interface {
	PlaceOrder(ctx context.Context, ship checkout.Shipping, method checkout.Method) (*checkout.Result, error)
}

type Gate interface {
	CanEnter(capability string) gate.Decision
}

// Events is the tab's broadcaster.
type Events interface {
	Subscribe(h broadcast.Handler) func()
	Tab() id.TabID
}

// Services are the components the handlers delegate to.
type Services struct {
	Sessions Sessions
	Auth     Authenticator
	Cart     Cart
	Checkout Checkout
	Gate     Gate
	Events   Events
}

type Handler struct {
	Services
	logger            *slog.Logger
	upgrader          websocket.Upgrader
	heartbeatInterval time.Duration
}

func NewHandler(svc Services, logger *slog.Logger) *Handler {
	return &Handler{
		Services: svc,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		heartbeatInterval: 15 * time.Second,
	}
}

// Register mounts the /api routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// Streams stay open past the request timeout.
		r.Get("/events", h.HandleEventStream)
		r.Get("/events/ws", h.HandleEventSocket)

		r.Group(func(r chi.Router) {
			r.Use(timeout(requestTimeout))
			r.Use(request.BodyLimit(maxBodyBytes))
			r.Use(request.ContentTypeJSON)

			r.Get("/session", h.HandleGetSession)
			r.Post("/session/login", h.HandleLogin)
			r.Delete("/session", h.HandleLogout)
			r.Get("/gate", h.HandleGate)

			r.Group(func(r chi.Router) {
				r.Use(RequireSession(h.Sessions))
				r.Patch("/session/profile", h.HandleUpdateProfile)
				r.Get("/cart", h.HandleGetCart)
				r.Post("/cart/refresh", h.HandleRefreshCart)
				r.Post("/cart/lines", h.HandleAddLine)
				r.Patch("/cart/lines/{id}", h.HandleSetLineQuantity)
				r.Delete("/cart/lines/{id}", h.HandleRemoveLine)
				r.Post("/checkout", h.HandleCheckout)
			})
		})
	})
}

// NewRouter wires the middleware stack and the agent routes. Callers mount
// health and metrics endpoints on the returned router.
func NewRouter(h *Handler, logger *slog.Logger, metrics *request.Metrics) chi.Router {
	r := chi.NewRouter()
	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientDescription)
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(metrics))
	h.Register(r)
	return r
}

func timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
