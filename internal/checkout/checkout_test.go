package checkout_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"storefront/internal/backend"
	"storefront/internal/backend/backendtest"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/session"
	"storefront/internal/storage"
	dErrors "storefront/pkg/domain-errors"
)

type CheckoutSuite struct {
	suite.Suite
	ctx      context.Context
	server   *backendtest.Server
	store    *session.Store
	cart     *cart.Synchronizer
	checkout *checkout.Service
	ship     checkout.Shipping
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutSuite))
}

func (s *CheckoutSuite) SetupTest() {
	s.ctx = context.Background()
	s.server = backendtest.New()
	s.server.SetCart(42,
		backendtest.Line{ID: 101, ProductID: 9001, Price: 150000, Quantity: 2, Name: "Ring"},
		backendtest.Line{ID: 102, ProductID: 9002, Price: 90000, Quantity: 1, Name: "Hairpin"},
	)
	client := backend.New(s.server.URL, backend.WithTimeout(2*time.Second))

	s.store = session.NewStore(storage.NewMemory("shop"), nil)
	s.Require().NoError(s.store.Initialize(s.ctx))
	s.Require().NoError(s.store.Login(s.ctx, session.Session{
		UserID: "42", DisplayName: "Doe Jane", Token: "tok-42", ExpiresAt: time.Now().Add(time.Hour),
	}))
	s.cart = cart.New(client, s.store, nil)
	s.checkout = checkout.New(client, s.cart, s.store)
	s.ship = checkout.Shipping{
		Name: "Doe Jane", Phone: "0901234567", Address: "12 Hang Bac, Hanoi", Note: "after 5pm",
	}
}

func (s *CheckoutSuite) TearDownTest() {
	s.cart.Close()
	s.store.Close()
	s.server.Close()
}

func (s *CheckoutSuite) TestCashOnDeliveryClearsCart() {
	res, err := s.checkout.PlaceOrder(s.ctx, s.ship, checkout.MethodCOD)
	s.Require().NoError(err)
	s.Empty(res.RedirectURL)
	s.Equal(int64(390000), res.TotalPrice)
	s.Equal("1", res.OrderID)

	orders := s.server.Orders()
	s.Require().Len(orders, 1)
	o := orders[0]
	s.Equal("cod", o.PaymentMethod)
	s.Equal(int64(390000), o.TotalPrice)
	s.Equal("12 Hang Bac, Hanoi", o.Address)
	s.Equal("0901234567", o.Phone)
	s.Len(o.Items, 2)
	s.Equal(backendtest.OrderItem{ProductID: 9001, Quantity: 2, Price: 150000}, o.Items[0])

	s.Empty(s.server.Cart(42))
	s.True(s.cart.Current().Empty())
}

func (s *CheckoutSuite) TestPayPalReturnsApprovalAndKeepsCart() {
	res, err := s.checkout.PlaceOrder(s.ctx, s.ship, checkout.MethodPayPal)
	s.Require().NoError(err)
	s.Contains(res.RedirectURL, "paypal.com")
	s.Len(s.server.Cart(42), 2)
	s.Equal(3, s.cart.Current().TotalQuantity)
	s.Zero(s.server.Calls(backendtest.RouteClearCart))
}

func (s *CheckoutSuite) TestEmptyCartIsRejected() {
	s.server.SetCart(42)

	_, err := s.checkout.PlaceOrder(s.ctx, s.ship, checkout.MethodCOD)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	s.Zero(s.server.Calls(backendtest.RouteCreateOrder))
}

func (s *CheckoutSuite) TestInvalidInput() {
	_, err := s.checkout.PlaceOrder(s.ctx, s.ship, "card")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

	bad := s.ship
	bad.Phone = "12345"
	_, err = s.checkout.PlaceOrder(s.ctx, bad, checkout.MethodCOD)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	bad = s.ship
	bad.Address = "   "
	_, err = s.checkout.PlaceOrder(s.ctx, bad, checkout.MethodCOD)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.server.Calls(backendtest.RouteCreateOrder))
}

func (s *CheckoutSuite) TestRequiresSession() {
	s.Require().NoError(s.store.Logout(s.ctx))

	_, err := s.checkout.PlaceOrder(s.ctx, s.ship, checkout.MethodCOD)
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveSession))
}

func (s *CheckoutSuite) TestBackendFailureKeepsCart() {
	s.server.FailNext(backendtest.RouteCreateOrder, http.StatusInternalServerError, 1)

	_, err := s.checkout.PlaceOrder(s.ctx, s.ship, checkout.MethodCOD)
	s.True(dErrors.HasCode(err, dErrors.CodeNetworkFailure))
	s.Len(s.server.Cart(42), 2)
	s.Equal(3, s.cart.Current().TotalQuantity)
}
