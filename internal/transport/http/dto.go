package httptransport

import (
	"time"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/session"
	strs "storefront/pkg/string"
	"storefront/pkg/validation"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=256"`
}

func (r *LoginRequest) Normalize() { strs.TrimStrings(&r.Email) }

func (r *LoginRequest) Validate() error { return validation.Validate(r) }

// UpdateProfileRequest carries only the fields to change.
type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitnil,notblank,max=120"`
	FirstName   *string `json:"firstname" validate:"omitnil,notblank,max=60"`
	LastName    *string `json:"lastname" validate:"omitnil,notblank,max=60"`
	Email       *string `json:"email" validate:"omitnil,email"`
	Phone       *string `json:"phone" validate:"omitnil,len=10,numeric"`
	AvatarURL   *string `json:"avatarUrl" validate:"omitnil,url"`
}

func (r *UpdateProfileRequest) Normalize() {
	for _, p := range []*string{r.DisplayName, r.FirstName, r.LastName, r.Email, r.Phone, r.AvatarURL} {
		if p != nil {
			strs.TrimStrings(p)
		}
	}
}

func (r *UpdateProfileRequest) Validate() error { return validation.Validate(r) }

func (r *UpdateProfileRequest) patch() session.ProfilePatch {
	return session.ProfilePatch{
		DisplayName: r.DisplayName,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Phone:       r.Phone,
		AvatarURL:   r.AvatarURL,
	}
}

// AddLineRequest leaves quantity range checks to the cart so an out-of-range
// value is reported as invalid_quantity.
type AddLineRequest struct {
	ProductID int64 `json:"productId" validate:"required,gt=0"`
	Quantity  int   `json:"quantity"`
}

func (r *AddLineRequest) Validate() error { return validation.Validate(r) }

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	Name          string `json:"fullname"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
	Note          string `json:"note"`
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cod paypal"`
}

func (r *CheckoutRequest) Normalize() {
	strs.TrimStrings(&r.Name, &r.Phone, &r.Address, &r.Note, &r.PaymentMethod)
}

func (r *CheckoutRequest) Validate() error { return validation.Validate(r) }

func (r *CheckoutRequest) shipping() checkout.Shipping {
	return checkout.Shipping{Name: r.Name, Phone: r.Phone, Address: r.Address, Note: r.Note}
}

type SessionResponse struct {
	Authenticated bool       `json:"authenticated"`
	UserID        string     `json:"userId,omitempty"`
	DisplayName   string     `json:"displayName,omitempty"`
	FirstName     string     `json:"firstname,omitempty"`
	LastName      string     `json:"lastname,omitempty"`
	Email         string     `json:"email,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	RoleCode      string     `json:"roleCode,omitempty"`
	AvatarURL     string     `json:"avatarUrl,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
}

// toSessionResponse never exposes the bearer token.
func toSessionResponse(snap session.Snapshot) SessionResponse {
	if snap.Anonymous() {
		return SessionResponse{}
	}
	s := snap.Session
	exp := s.ExpiresAt
	return SessionResponse{
		Authenticated: true,
		UserID:        s.UserID.String(),
		DisplayName:   s.DisplayName,
		FirstName:     s.FirstName,
		LastName:      s.LastName,
		Email:         s.Email,
		Phone:         s.Phone,
		RoleCode:      s.RoleCode,
		AvatarURL:     s.AvatarURL,
		ExpiresAt:     &exp,
	}
}

type LineResponse struct {
	CartItemID  int64  `json:"cartItemId"`
	ProductID   int64  `json:"productId"`
	ProductName string `json:"productName"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Slug        string `json:"slug,omitempty"`
	UnitPrice   int64  `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type CartResponse struct {
	UserID        string         `json:"userId,omitempty"`
	Lines         []LineResponse `json:"lines"`
	TotalQuantity int            `json:"totalQuantity"`
	TotalPrice    int64          `json:"totalPrice"`
}

func toCartResponse(snap cart.Snapshot) CartResponse {
	out := CartResponse{
		UserID:        snap.UserID.String(),
		Lines:         make([]LineResponse, 0, len(snap.Lines)),
		TotalQuantity: snap.TotalQuantity,
		TotalPrice:    snap.TotalPrice,
	}
	for _, l := range snap.Lines {
		out.Lines = append(out.Lines, LineResponse{
			CartItemID:  int64(l.CartItemID),
			ProductID:   int64(l.ProductID),
			ProductName: l.ProductName,
			ImageURL:    l.ImageURL,
			Slug:        l.Slug,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.UnitPrice * int64(l.Quantity),
		})
	}
	return out
}

type CheckoutResponse struct {
	OrderID     string `json:"orderId,omitempty"`
	Method      string `json:"paymentMethod"`
	TotalPrice  int64  `json:"totalPrice"`
	RedirectURL string `json:"redirectUrl,omitempty"`
}

// EventMessage is one broadcast event as streamed to the UI shell.
type EventMessage struct {
	ID     string    `json:"id"`
	Kind   string    `json:"kind"`
	Remote bool      `json:"remote"`
	At     time.Time `json:"at"`
}
