package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

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
)

const origin = "shop"

// Tab is one agent instance serving its HTTP API.
type Tab struct {
	Server *httptest.Server
	close  func()
}

// TestContext holds one scenario's fake backend and the tabs sharing an
// origin through an in-process hub and storage.
type TestContext struct {
	Backend *backendtest.Server
	Client  *backend.Client
	Hub     *broadcast.Hub
	Shared  *storage.MemoryBackend
	Tabs    map[string]*Tab

	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte
}

// NewTestContext starts a fake backend for a scenario.
func NewTestContext() *TestContext {
	b := backendtest.New()
	return &TestContext{
		Backend:    b,
		Client:     backend.New(b.URL, backend.WithTimeout(2*time.Second)),
		Hub:        broadcast.NewHub(),
		Shared:     storage.NewMemoryBackend(),
		Tabs:       map[string]*Tab{},
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// OpenTab wires a full agent against the shared hub and storage.
func (tc *TestContext) OpenTab(name string) error {
	if _, ok := tc.Tabs[name]; ok {
		return fmt.Errorf("tab %q already open", name)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := broadcast.New(id.NewTabID(), tc.Hub.Channel(origin), broadcast.WithLogger(logger))
	store := session.NewStore(tc.Shared.For(origin), bus, session.WithLogger(logger))
	carts := cart.New(tc.Client, store, bus, cart.WithLogger(logger), cart.WithRequestTimeout(2*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	before := tc.Hub.Listeners(origin)
	go func() {
		defer close(done)
		_ = bus.Run(ctx)
	}()
	if err := waitFor(time.Second, func() bool { return tc.Hub.Listeners(origin) > before }); err != nil {
		cancel()
		return fmt.Errorf("tab %q never joined the hub", name)
	}
	if err := store.Initialize(ctx); err != nil {
		cancel()
		return err
	}
	carts.Start()

	h := httptransport.NewHandler(httptransport.Services{
		Sessions: store,
		Auth:     auth.New(tc.Client, store, auth.WithLogger(logger)),
		Cart:     carts,
		Checkout: checkout.New(tc.Client, carts, store, checkout.WithLogger(logger)),
		Gate:     gate.New(store),
		Events:   bus,
	}, logger)
	srv := httptest.NewServer(httptransport.NewRouter(h, logger, nil))

	tc.Tabs[name] = &Tab{Server: srv, close: func() {
		srv.Close()
		cancel()
		<-done
		carts.Close()
		store.Close()
	}}
	return nil
}

// Close shuts every tab and the backend down.
func (tc *TestContext) Close() {
	for _, t := range tc.Tabs {
		t.close()
	}
	tc.Backend.Close()
}

// Do sends a request to a tab and records the response.
func (tc *TestContext) Do(tab, method, path, body string) error {
	t, ok := tc.Tabs[tab]
	if !ok {
		return fmt.Errorf("tab %q is not open", tab)
	}
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, t.Server.URL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

func waitFor(timeout time.Duration, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("condition not met within %s", timeout)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
