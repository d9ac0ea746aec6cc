package httptransport_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"storefront/internal/auth"
	"storefront/internal/backend"
	"storefront/internal/backend/backendtest"
	"storefront/internal/broadcast"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/gate"
	"storefront/internal/session"
	"storefront/internal/storage"
	httptransport "storefront/internal/transport/http"
	id "storefront/pkg/domain"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	backend *backendtest.Server
	bus     *broadcast.Broadcaster
	store   *session.Store
	cart    *cart.Synchronizer
	server  *httptest.Server
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.backend = backendtest.New()
	s.backend.AddAccount(backendtest.Account{
		ID: 42, Email: "jane@example.com", Password: "secret",
		FirstName: "Jane", LastName: "Doe", RoleCode: "customer",
		Token: testutil.TokenExpiringAt("42", time.Now().Add(time.Hour)),
	})
	s.backend.SetCart(42,
		backendtest.Line{ID: 101, ProductID: 9001, Price: 100, Quantity: 1, Name: "Ring"},
		backendtest.Line{ID: 102, ProductID: 9002, Price: 250, Quantity: 2, Name: "Bracelet"},
	)
	s.backend.SetPrice(9003, 75)
	client := backend.New(s.backend.URL, backend.WithTimeout(2*time.Second))

	s.bus = broadcast.New(id.NewTabID(), nil)
	s.store = session.NewStore(storage.NewMemory("shop"), s.bus)
	s.Require().NoError(s.store.Initialize(ctx))
	s.cart = cart.New(client, s.store, s.bus)
	s.cart.Start()

	h := httptransport.NewHandler(httptransport.Services{
		Sessions: s.store,
		Auth:     auth.New(client, s.store),
		Cart:     s.cart,
		Checkout: checkout.New(client, s.cart, s.store),
		Gate:     gate.New(s.store),
		Events:   s.bus,
	}, logger)
	s.server = httptest.NewServer(httptransport.NewRouter(h, logger, nil))
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.cart.Close()
	s.store.Close()
	s.backend.Close()
}

func (s *HandlerSuite) do(method, path, body string) (*http.Response, []byte) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, rd)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp, data
}

func (s *HandlerSuite) login() {
	resp, body := s.do(http.MethodPost, "/api/session/login", `{"email":"jane@example.com","password":"secret"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func (s *HandlerSuite) TestSessionLifecycle() {
	resp, body := s.do(http.MethodGet, "/api/session", "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.False(decode[httptransport.SessionResponse](s.T(), body).Authenticated)

	resp, body = s.do(http.MethodPost, "/api/session/login", `{"email":"jane@example.com","password":"secret"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	sess := decode[httptransport.SessionResponse](s.T(), body)
	s.True(sess.Authenticated)
	s.Equal("42", sess.UserID)
	s.Equal("Doe Jane", sess.DisplayName)
	s.NotNil(sess.ExpiresAt)
	s.NotContains(string(body), "eyJ", "the bearer token stays inside the agent")

	resp, body = s.do(http.MethodPatch, "/api/session/profile", `{"firstname":"Janet"}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	s.Equal("Doe Janet", decode[httptransport.SessionResponse](s.T(), body).DisplayName)

	resp, _ = s.do(http.MethodDelete, "/api/session", "")
	s.Equal(http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(http.MethodDelete, "/api/session", "")
	s.Equal(http.StatusNoContent, resp.StatusCode)
	s.True(s.store.Current().Anonymous())
}

func (s *HandlerSuite) TestLoginErrors() {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed json", `{"email":`, http.StatusBadRequest, "bad_request"},
		{"invalid email", `{"email":"nope","password":"secret"}`, http.StatusBadRequest, "validation_failed"},
		{"missing password", `{"email":"jane@example.com"}`, http.StatusBadRequest, "validation_failed"},
		{"wrong password", `{"email":"jane@example.com","password":"wrong"}`, http.StatusUnauthorized, "authentication_rejected"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp, body := s.do(http.MethodPost, "/api/session/login", tt.body)
			s.Equal(tt.status, resp.StatusCode, string(body))
			s.Equal(tt.code, decode[httputil.ErrorResponse](s.T(), body).Error)
		})
	}
	s.True(s.store.Current().Anonymous())
}

func (s *HandlerSuite) TestProtectedRoutesRequireSession() {
	for _, route := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/cart", ""},
		{http.MethodPost, "/api/cart/refresh", ""},
		{http.MethodPatch, "/api/cart/lines/101", `{"quantity":2}`},
		{http.MethodPatch, "/api/session/profile", `{"firstname":"X"}`},
		{http.MethodPost, "/api/checkout", `{"paymentMethod":"cod"}`},
	} {
		resp, body := s.do(route.method, route.path, route.body)
		s.Equal(http.StatusUnauthorized, resp.StatusCode, route.path)
		denied := decode[httptransport.GateDeniedResponse](s.T(), body)
		s.Equal(gate.ReasonNotAuthenticated, denied.Reason)
	}
}

func (s *HandlerSuite) TestCartFlow() {
	s.login()

	resp, body := s.do(http.MethodPost, "/api/cart/refresh", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	c := decode[httptransport.CartResponse](s.T(), body)
	s.Equal(3, c.TotalQuantity)
	s.Equal(int64(600), c.TotalPrice)
	s.Len(c.Lines, 2)

	resp, body = s.do(http.MethodPatch, "/api/cart/lines/101", `{"quantity":100}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
	s.Equal("invalid_quantity", decode[httputil.ErrorResponse](s.T(), body).Error)

	resp, body = s.do(http.MethodPatch, "/api/cart/lines/101", `{"quantity":4}`)
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	s.Equal(6, decode[httptransport.CartResponse](s.T(), body).TotalQuantity)

	resp, body = s.do(http.MethodDelete, "/api/cart/lines/102", "")
	s.Require().Equal(http.StatusOK, resp.StatusCode, string(body))
	s.Len(decode[httptransport.CartResponse](s.T(), body).Lines, 1)

	resp, body = s.do(http.MethodPost, "/api/cart/lines", `{"productId":9003,"quantity":2}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	c = decode[httptransport.CartResponse](s.T(), body)
	s.Equal(6, c.TotalQuantity)
	s.Equal(int64(550), c.TotalPrice)

	resp, _ = s.do(http.MethodDelete, "/api/cart/lines/abc", "")
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodDelete, "/api/cart/lines/555", "")
	s.Equal(http.StatusNotFound, resp.StatusCode, string(body))
}

func (s *HandlerSuite) TestCartMutationFailureRollsBack() {
	s.login()
	_, err := s.cart.Refresh(context.Background())
	s.Require().NoError(err)
	s.backend.FailNext(backendtest.RouteUpdateLine, http.StatusBadGateway, 1)

	resp, body := s.do(http.MethodPatch, "/api/cart/lines/101", `{"quantity":9}`)
	s.Equal(http.StatusBadGateway, resp.StatusCode)
	errBody := decode[httputil.ErrorResponse](s.T(), body)
	s.Equal("network_failure", errBody.Error)
	s.True(errBody.Retryable)

	_, body = s.do(http.MethodGet, "/api/cart", "")
	s.Equal(3, decode[httptransport.CartResponse](s.T(), body).TotalQuantity)
}

func (s *HandlerSuite) TestCheckout() {
	s.login()

	resp, body := s.do(http.MethodPost, "/api/checkout", `{"fullname":"Doe Jane","phone":"0901234567","address":"12 Hang Bac","paymentMethod":"bank"}`)
	s.Equal(http.StatusBadRequest, resp.StatusCode, string(body))

	resp, body = s.do(http.MethodPost, "/api/checkout", `{"fullname":"Doe Jane","phone":"0901234567","address":"12 Hang Bac","paymentMethod":"cod"}`)
	s.Require().Equal(http.StatusCreated, resp.StatusCode, string(body))
	out := decode[httptransport.CheckoutResponse](s.T(), body)
	s.Equal("cod", out.Method)
	s.Equal(int64(600), out.TotalPrice)
	s.Empty(s.backend.Cart(42))
}

func (s *HandlerSuite) TestGate() {
	_, body := s.do(http.MethodGet, "/api/gate?capability=admin", "")
	s.Equal(gate.Decision{Reason: gate.ReasonNotAuthenticated}, decode[gate.Decision](s.T(), body))

	s.login()
	_, body = s.do(http.MethodGet, "/api/gate?capability=admin", "")
	s.Equal(gate.Decision{Reason: gate.ReasonInsufficientRole}, decode[gate.Decision](s.T(), body))
	_, body = s.do(http.MethodGet, "/api/gate?capability=CUSTOMER", "")
	s.Equal(gate.Decision{Allowed: true}, decode[gate.Decision](s.T(), body))
}

func (s *HandlerSuite) TestEventStream() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.server.URL+"/api/events", nil)
	s.Require().NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal("text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	s.Require().True(lines.Scan())
	s.Equal(": connected", lines.Text())

	s.login()

	var kinds []string
	for len(kinds) == 0 && lines.Scan() {
		if kind, ok := strings.CutPrefix(lines.Text(), "event: "); ok {
			kinds = append(kinds, kind)
		}
	}
	s.Contains(kinds, string(broadcast.KindSessionChanged))
}

func (s *HandlerSuite) TestEventSocket() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/api/events/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	defer resp.Body.Close()
	defer conn.Close()

	// The subscription is registered after the upgrade completes, so keep
	// publishing until the first frame arrives.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-stop:
				return
			case <-tick.C:
				_ = s.bus.Publish(context.Background(), broadcast.KindCartChanged)
			}
		}
	}()

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	var msg httptransport.EventMessage
	s.Require().NoError(conn.ReadJSON(&msg))
	s.Equal(string(broadcast.KindCartChanged), msg.Kind)
	s.False(msg.Remote)
	s.NotEmpty(msg.ID)
}

func TestRequireCapability(t *testing.T) {
	store := session.NewStore(storage.NewMemory("shop"), nil)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(store.Close)

	r := chi.NewRouter()
	r.With(httptransport.RequireCapability(gate.New(store), "admin")).
		Get("/admin", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	call := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, call().Code)

	require.NoError(t, store.Login(context.Background(), session.Session{
		UserID: "1", Token: "t", RoleCode: "customer", ExpiresAt: time.Now().Add(time.Hour),
	}))
	rec := call()
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"insufficient_role"`)

	require.NoError(t, store.Login(context.Background(), session.Session{
		UserID: "1", Token: "t", RoleCode: "ADMIN", ExpiresAt: time.Now().Add(time.Hour),
	}))
	assert.Equal(t, http.StatusNoContent, call().Code)
}
