// Package backendtest is an in-memory REST backend for tests. It speaks the
// same wire format as the real storefront backend.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Route names used for fault injection and call counting.
const (
	RouteLogin       = "login"
	RouteFetchCart   = "fetch_cart"
	RouteUpdateLine  = "update_cart_line"
	RouteRemoveLine  = "remove_cart_line"
	RouteAddLine     = "add_cart_line"
	RouteClearCart   = "clear_cart"
	RouteUpdateUser  = "update_user"
	RouteCreateOrder = "create_order"
)

// Account is a user known to the fake backend.
type Account struct {
	ID        int64
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Image     string
	RoleCode  string
	// Token is returned on login. Defaults to "token-<id>".
	Token string
}

// Line is one stored cart line.
type Line struct {
	ID        int64
	ProductID int64
	Price     int64
	Quantity  int
	Name      string
}

// Order is a recorded order body.
type Order struct {
	UserID        json.RawMessage `json:"userId"`
	Items         []OrderItem     `json:"items"`
	TotalPrice    int64           `json:"totalPrice"`
	PaymentMethod string          `json:"paymentMethod"`
	Phone         string          `json:"phone"`
	Address       string          `json:"shipping_address"`
	Note          string          `json:"note"`
}

type OrderItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

type fault struct {
	status int
	delay  time.Duration
	// gate, when set, blocks the handler until closed.
	gate  chan struct{}
	times int
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*Account
	carts    map[int64][]Line
	prices   map[int64]int64
	nextLine int64
	orders   []Order
	calls    map[string]int
	faults   map[string]*fault
	headers  map[string]http.Header
}

// New starts a fake backend. Close it with Server.Close.
func New() *Server {
	s := &Server{
		accounts: map[string]*Account{},
		carts:    map[int64][]Line{},
		prices:   map[int64]int64{},
		nextLine: 1000,
		calls:    map[string]int{},
		faults:   map[string]*fault{},
		headers:  map[string]http.Header{},
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login", s.route(RouteLogin, s.handleLogin))
	r.Get("/carts/{userId}", s.route(RouteFetchCart, s.handleFetchCart))
	r.Put("/carts/update", s.route(RouteUpdateLine, s.handleUpdateLine))
	r.Delete("/carts/remove", s.route(RouteRemoveLine, s.handleRemoveLine))
	r.Post("/carts/add", s.route(RouteAddLine, s.handleAddLine))
	r.Delete("/carts/clear/{userId}", s.route(RouteClearCart, s.handleClearCart))
	r.Put("/users/{id}", s.route(RouteUpdateUser, s.handleUpdateUser))
	r.Post("/orders", s.route(RouteCreateOrder, s.handleCreateOrder))
	return r
}

// route counts the call and applies any injected fault.
func (s *Server) route(name string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[name]++
		s.headers[name] = r.Header.Clone()
		f := s.faults[name]
		if f != nil {
			f.times--
			if f.times <= 0 {
				delete(s.faults, name)
			}
		}
		s.mu.Unlock()

		if f != nil {
			if f.gate != nil {
				select {
				case <-f.gate:
				case <-r.Context().Done():
					return
				}
			}
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-r.Context().Done():
					return
				}
			}
			if f.status != 0 {
				writeJSON(w, f.status, map[string]any{"message": "injected failure"})
				return
			}
		}
		h(w, r)
	}
}

// AddAccount registers a user that can log in.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.Token == "" {
		a.Token = "token-" + strconv.FormatInt(a.ID, 10)
	}
	s.accounts[a.Email] = &a
}

// SetPrice sets the unit price used when a product is added.
func (s *Server) SetPrice(productID, price int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[productID] = price
}

// SetCart replaces a user's cart.
func (s *Server) SetCart(userID int64, lines ...Line) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[userID] = slices.Clone(lines)
}

// Cart returns a copy of a user's cart.
func (s *Server) Cart(userID int64) []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.carts[userID])
}

// Orders returns every recorded order.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.orders)
}

// Calls returns how many times route was hit.
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// LastHeader returns a header of the most recent request to route.
func (s *Server) LastHeader(route, key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[route].Get(key)
}

// FailNext makes the next n calls to route answer status.
func (s *Server) FailNext(route string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &fault{status: status, times: n}
}

// DelayNext delays the next call to route.
func (s *Server) DelayNext(route string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[route] = &fault{delay: d, times: 1}
}

// HoldNext blocks the next call to route until the returned release
// function is called. If status is non-zero the held call then fails with it.
func (s *Server) HoldNext(route string, status int) (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.faults[route] = &fault{gate: gate, status: status, times: 1}
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
