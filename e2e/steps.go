package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"storefront/internal/backend/backendtest"
	httptransport "storefront/internal/transport/http"
	"storefront/pkg/testutil"
)

const eventually = 2 * time.Second

type steps struct {
	tc func() *TestContext
}

// RegisterSteps registers all step definitions. tc returns the current
// scenario's context.
func RegisterSteps(ctx *godog.ScenarioContext, tc func() *TestContext) {
	s := &steps{tc: tc}

	// Backend fixtures
	ctx.Step(`^the backend knows user (\d+) as "([^"]*)" with password "([^"]*)"$`, s.backendKnowsUser)
	ctx.Step(`^user (\d+) has (\d+) of product (\d+) priced (\d+) in cart line (\d+)$`, s.userHasCartLine)
	ctx.Step(`^product (\d+) is priced (\d+)$`, s.productIsPriced)
	ctx.Step(`^the backend fails the next cart update$`, s.backendFailsNextUpdate)

	// Tab actions
	ctx.Step(`^tab "([^"]*)" is open$`, s.tabIsOpen)
	ctx.Step(`^tab "([^"]*)" logs in as "([^"]*)" with password "([^"]*)"$`, s.tabLogsIn)
	ctx.Step(`^tab "([^"]*)" logs out$`, s.tabLogsOut)
	ctx.Step(`^tab "([^"]*)" sets line (\d+) to quantity (\d+)$`, s.tabSetsQuantity)
	ctx.Step(`^tab "([^"]*)" removes line (\d+)$`, s.tabRemovesLine)
	ctx.Step(`^tab "([^"]*)" adds (\d+) of product (\d+)$`, s.tabAddsProduct)
	ctx.Step(`^tab "([^"]*)" checks out with "([^"]*)"$`, s.tabChecksOut)

	// Assertions
	ctx.Step(`^the response status should be (\d+)$`, s.responseStatusShouldBe)
	ctx.Step(`^tab "([^"]*)" should show line (\d+) with quantity (\d+)$`, s.tabShouldShowQuantity)
	ctx.Step(`^tab "([^"]*)" should not show line (\d+)$`, s.tabShouldNotShowLine)
	ctx.Step(`^tab "([^"]*)" should show a cart of (\d+) items$`, s.tabShouldShowTotalQuantity)
	ctx.Step(`^tab "([^"]*)" should be signed in as user "([^"]*)"$`, s.tabShouldBeSignedIn)
	ctx.Step(`^tab "([^"]*)" should be signed out$`, s.tabShouldBeSignedOut)
	ctx.Step(`^the backend should have recorded (\d+) orders?$`, s.backendShouldHaveOrders)
}

func (s *steps) backendKnowsUser(_ context.Context, userID int64, email, password string) error {
	s.tc().Backend.AddAccount(backendtest.Account{
		ID: userID, Email: email, Password: password,
		FirstName: "Jane", LastName: "Doe", RoleCode: "customer",
		Token: testutil.TokenExpiringAt(fmt.Sprint(userID), time.Now().Add(time.Hour)),
	})
	return nil
}

func (s *steps) userHasCartLine(_ context.Context, userID int64, quantity int, productID, price, lineID int64) error {
	b := s.tc().Backend
	lines := append(b.Cart(userID), backendtest.Line{
		ID: lineID, ProductID: productID, Price: price, Quantity: quantity,
		Name: fmt.Sprintf("product %d", productID),
	})
	b.SetCart(userID, lines...)
	return nil
}

func (s *steps) productIsPriced(_ context.Context, productID, price int64) error {
	s.tc().Backend.SetPrice(productID, price)
	return nil
}

func (s *steps) backendFailsNextUpdate(context.Context) error {
	s.tc().Backend.FailNext(backendtest.RouteUpdateLine, http.StatusBadGateway, 1)
	return nil
}

func (s *steps) tabIsOpen(_ context.Context, tab string) error {
	return s.tc().OpenTab(tab)
}

func (s *steps) tabLogsIn(_ context.Context, tab, email, password string) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return err
	}
	return s.tc().Do(tab, http.MethodPost, "/api/session/login", string(body))
}

func (s *steps) tabLogsOut(_ context.Context, tab string) error {
	return s.tc().Do(tab, http.MethodDelete, "/api/session", "")
}

func (s *steps) tabSetsQuantity(_ context.Context, tab string, lineID int64, quantity int) error {
	return s.tc().Do(tab, http.MethodPatch, fmt.Sprintf("/api/cart/lines/%d", lineID), fmt.Sprintf(`{"quantity":%d}`, quantity))
}

func (s *steps) tabRemovesLine(_ context.Context, tab string, lineID int64) error {
	return s.tc().Do(tab, http.MethodDelete, fmt.Sprintf("/api/cart/lines/%d", lineID), "")
}

func (s *steps) tabAddsProduct(_ context.Context, tab string, quantity int, productID int64) error {
	return s.tc().Do(tab, http.MethodPost, "/api/cart/lines", fmt.Sprintf(`{"productId":%d,"quantity":%d}`, productID, quantity))
}

func (s *steps) tabChecksOut(_ context.Context, tab, method string) error {
	body, err := json.Marshal(httptransport.CheckoutRequest{
		Name: "Doe Jane", Phone: "0901234567", Address: "12 Hang Bac", PaymentMethod: method,
	})
	if err != nil {
		return err
	}
	return s.tc().Do(tab, http.MethodPost, "/api/checkout", string(body))
}

func (s *steps) responseStatusShouldBe(_ context.Context, expected int) error {
	tc := s.tc()
	if tc.LastResponse == nil {
		return fmt.Errorf("no request was made")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d but got %d: %s", expected, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

// cart reads a tab's cart without touching LastResponse.
func (s *steps) cart(tab string) (*httptransport.CartResponse, error) {
	tc := s.tc()
	t, ok := tc.Tabs[tab]
	if !ok {
		return nil, fmt.Errorf("tab %q is not open", tab)
	}
	resp, err := tc.HTTPClient.Get(t.Server.URL + "/api/cart")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /api/cart: status %d", resp.StatusCode)
	}
	var out httptransport.CartResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *steps) session(tab string) (*httptransport.SessionResponse, error) {
	tc := s.tc()
	t, ok := tc.Tabs[tab]
	if !ok {
		return nil, fmt.Errorf("tab %q is not open", tab)
	}
	resp, err := tc.HTTPClient.Get(t.Server.URL + "/api/session")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out httptransport.SessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func quantityOf(c *httptransport.CartResponse, lineID int64) (int, bool) {
	for _, l := range c.Lines {
		if l.CartItemID == lineID {
			return l.Quantity, true
		}
	}
	return 0, false
}

func (s *steps) tabShouldShowQuantity(_ context.Context, tab string, lineID int64, quantity int) error {
	var last string
	err := waitFor(eventually, func() bool {
		c, err := s.cart(tab)
		if err != nil {
			last = err.Error()
			return false
		}
		got, ok := quantityOf(c, lineID)
		last = fmt.Sprintf("line %d present=%v quantity=%d", lineID, ok, got)
		return ok && got == quantity
	})
	if err != nil {
		return fmt.Errorf("tab %q: %w (last: %s)", tab, err, last)
	}
	return nil
}

func (s *steps) tabShouldNotShowLine(_ context.Context, tab string, lineID int64) error {
	err := waitFor(eventually, func() bool {
		c, err := s.cart(tab)
		if err != nil {
			return false
		}
		_, ok := quantityOf(c, lineID)
		return !ok
	})
	if err != nil {
		return fmt.Errorf("tab %q still shows line %d: %w", tab, lineID, err)
	}
	return nil
}

func (s *steps) tabShouldShowTotalQuantity(_ context.Context, tab string, total int) error {
	var last int
	err := waitFor(eventually, func() bool {
		c, err := s.cart(tab)
		if err != nil {
			return false
		}
		last = c.TotalQuantity
		return last == total
	})
	if err != nil {
		return fmt.Errorf("tab %q shows %d items: %w", tab, last, err)
	}
	return nil
}

func (s *steps) tabShouldBeSignedIn(_ context.Context, tab, userID string) error {
	err := waitFor(eventually, func() bool {
		sess, err := s.session(tab)
		return err == nil && sess.Authenticated && sess.UserID == userID
	})
	if err != nil {
		return fmt.Errorf("tab %q is not signed in as %s: %w", tab, userID, err)
	}
	return nil
}

func (s *steps) tabShouldBeSignedOut(_ context.Context, tab string) error {
	err := waitFor(eventually, func() bool {
		sess, err := s.session(tab)
		return err == nil && !sess.Authenticated
	})
	if err != nil {
		return fmt.Errorf("tab %q is still signed in: %w", tab, err)
	}
	return nil
}

func (s *steps) backendShouldHaveOrders(_ context.Context, n int) error {
	if got := len(s.tc().Backend.Orders()); got != n {
		return fmt.Errorf("expected %d orders but backend recorded %d", n, got)
	}
	return nil
}
