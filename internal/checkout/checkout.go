// Package checkout turns the signed-in shopper's cart into an order.
package checkout

import (
	"context"
	"log/slog"

	"storefront/internal/backend"
	"storefront/internal/cart"
	"storefront/internal/platform/privacy"
	"storefront/internal/session"
	dErrors "storefront/pkg/domain-errors"
	strs "storefront/pkg/string"
	"storefront/pkg/validation"
)

// Method is how the shopper pays.
type Method string

const (
	MethodCOD    Method = "cod"
	MethodPayPal Method = "paypal"
)

func (m Method) Valid() bool { return m == MethodCOD || m == MethodPayPal }

// Shipping is where and to whom the order goes.
type Shipping struct {
	Name    string `validate:"notblank,max=120"`
	Phone   string `validate:"required,len=10,numeric"`
	Address string `validate:"notblank,max=500"`
	Note    string `validate:"max=500"`
}

// Result is a placed order. RedirectURL is set when the shopper still has
// to approve a PayPal payment; the cart is left as it is in that case.
type Result struct {
	OrderID     string
	Method      Method
	TotalPrice  int64
	RedirectURL string
}

type Backend interface {
	CreateOrder(ctx context.Context, token string, order backend.OrderRequest) (*backend.OrderResult, error)
}

type Cart interface {
	Refresh(ctx context.Context) (cart.Snapshot, error)
	Clear(ctx context.Context) error
}

type Sessions interface {
	Current() session.Snapshot
}

type Service struct {
	backend  Backend
	cart     Cart
	sessions Sessions
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(b Backend, c Cart, sessions Sessions, opts ...Option) *Service {
	s := &Service{backend: b, cart: c, sessions: sessions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder orders every line of the cart as the backend currently holds
// it. Cash-on-delivery orders clear the cart, which other tabs observe
// through the cart synchronizer.
func (s *Service) PlaceOrder(ctx context.Context, ship Shipping, method Method) (*Result, error) {
	if !method.Valid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "payment method must be cod or paypal")
	}
	strs.TrimStrings(&ship.Name, &ship.Phone, &ship.Address, &ship.Note)
	if err := validation.Validate(ship); err != nil {
		return nil, err
	}
	sess := s.sessions.Current()
	if sess.Anonymous() {
		return nil, dErrors.New(dErrors.CodeNoActiveSession, "sign in to place an order")
	}

	snap, err := s.cart.Refresh(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Empty() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "cart is empty")
	}

	order := backend.OrderRequest{
		UserID:          sess.UserID(),
		Items:           make([]backend.OrderItem, 0, len(snap.Lines)),
		TotalPrice:      backend.Money(snap.TotalPrice),
		Note:            ship.Note,
		ShippingAddress: ship.Address,
		Phone:           ship.Phone,
		PaymentMethod:   string(method),
	}
	for _, l := range snap.Lines {
		order.Items = append(order.Items, backend.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     backend.Money(l.UnitPrice),
		})
	}

	res, err := s.backend.CreateOrder(ctx, sess.Token(), order)
	if err != nil {
		s.logger.WarnContext(ctx, "order failed",
			"user_id", sess.UserID(),
			"method", method,
			"phone", privacy.MaskPhone(ship.Phone),
			"error", err,
		)
		return nil, err
	}
	out := &Result{OrderID: res.OrderID, Method: method, TotalPrice: snap.TotalPrice}

	if method == MethodPayPal && res.ApproveURL != "" {
		out.RedirectURL = res.ApproveURL
		s.logger.InfoContext(ctx, "order awaiting paypal approval", "user_id", sess.UserID(), "order_id", res.OrderID)
		return out, nil
	}

	// The order exists; a failed clear is reported in the log only.
	if err := s.cart.Clear(ctx); err != nil {
		s.logger.WarnContext(ctx, "cart clear after order failed", "user_id", sess.UserID(), "error", err)
	}
	s.logger.InfoContext(ctx, "order placed", "user_id", sess.UserID(), "order_id", res.OrderID, "method", method)
	return out, nil
}
