package checkout_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/backend"
	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/session"
	dErrors "storefront/pkg/domain-errors"
)

// MockBackend is a testify mock for checkout.Backend
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateOrder(ctx context.Context, token string, order backend.OrderRequest) (*backend.OrderResult, error) {
	args := m.Called(ctx, token, order)
	if res := args.Get(0); res != nil {
		return res.(*backend.OrderResult), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockCart is a testify mock for checkout.Cart
type MockCart struct {
	mock.Mock
}

func (m *MockCart) Refresh(ctx context.Context) (cart.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(cart.Snapshot), args.Error(1)
}

func (m *MockCart) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type fixedSession session.Snapshot

func (f fixedSession) Current() session.Snapshot { return session.Snapshot(f) }

func signedIn() fixedSession {
	return fixedSession{Session: &session.Session{UserID: "42", Token: "tok-42"}}
}

var shipping = checkout.Shipping{Name: "Doe Jane", Phone: "0901234567", Address: "12 Hang Bac"}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestPlaceOrderSucceedsWhenClearFails(t *testing.T) {
	b, c := new(MockBackend), new(MockCart)
	c.On("Refresh", mock.Anything).Return(cart.Snapshot{
		UserID:        "42",
		Lines:         []cart.Line{{CartItemID: 1, ProductID: 7, UnitPrice: 50, Quantity: 2}},
		TotalQuantity: 2,
		TotalPrice:    100,
	}, nil)
	b.On("CreateOrder", mock.Anything, "tok-42", mock.MatchedBy(func(o backend.OrderRequest) bool {
		return o.PaymentMethod == "cod" && o.TotalPrice == 100 && len(o.Items) == 1 && o.Items[0].Price == 50
	})).Return(&backend.OrderResult{OrderID: "9"}, nil)
	c.On("Clear", mock.Anything).Return(dErrors.New(dErrors.CodeNetworkFailure, "clear cart"))

	svc := checkout.New(b, c, signedIn(), checkout.WithLogger(quietLogger()))
	res, err := svc.PlaceOrder(context.Background(), shipping, checkout.MethodCOD)

	require.NoError(t, err)
	assert.Equal(t, "9", res.OrderID)
	assert.Equal(t, int64(100), res.TotalPrice)
	b.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestPlaceOrderSurfacesRefreshFailure(t *testing.T) {
	b, c := new(MockBackend), new(MockCart)
	c.On("Refresh", mock.Anything).Return(cart.Snapshot{}, dErrors.Wrap(errors.New("dial tcp"), dErrors.CodeNetworkFailure, "fetch cart"))

	svc := checkout.New(b, c, signedIn(), checkout.WithLogger(quietLogger()))
	_, err := svc.PlaceOrder(context.Background(), shipping, checkout.MethodPayPal)

	assert.True(t, dErrors.HasCode(err, dErrors.CodeNetworkFailure))
	b.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything, mock.Anything)
	c.AssertNotCalled(t, "Clear", mock.Anything)
}

func TestPayPalWithoutApprovalURLClearsCart(t *testing.T) {
	b, c := new(MockBackend), new(MockCart)
	c.On("Refresh", mock.Anything).Return(cart.Snapshot{
		UserID: "42", Lines: []cart.Line{{CartItemID: 1, ProductID: 7, UnitPrice: 50, Quantity: 1}},
		TotalQuantity: 1, TotalPrice: 50,
	}, nil)
	b.On("CreateOrder", mock.Anything, "tok-42", mock.Anything).Return(&backend.OrderResult{OrderID: "3"}, nil)
	c.On("Clear", mock.Anything).Return(nil)

	svc := checkout.New(b, c, signedIn(), checkout.WithLogger(quietLogger()))
	res, err := svc.PlaceOrder(context.Background(), shipping, checkout.MethodPayPal)

	require.NoError(t, err)
	assert.Empty(t, res.RedirectURL)
	c.AssertCalled(t, "Clear", mock.Anything)
}
