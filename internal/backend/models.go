package backend

import (
	"encoding/json"
	"strconv"

	id "storefront/pkg/domain"
)

// User is the backend's user resource.
type User struct {
	ID        id.UserID `json:"id"`
	FirstName string    `json:"firstname"`
	LastName  string    `json:"lastname"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Image     string    `json:"image"`
	Role      *Role     `json:"role,omitempty"`
}

// Role is the nested role object on a user.
type Role struct {
	Code string `json:"code"`
}

// RoleCode returns the role code or "" when the user has no role.
func (u User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token string
	User  User
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	User    *User  `json:"user"`
}

// CartItem is one line of GET /carts/{userId}.
type CartItem struct {
	ID        id.CartItemID `json:"id"`
	ProductID id.ProductID  `json:"productId"`
	Price     Money         `json:"price"`
	Quantity  int           `json:"quantity"`
	Product   *Product      `json:"product,omitempty"`
}

// Product is the product summary embedded in a cart item.
type Product struct {
	Name  string `json:"name"`
	Image string `json:"image"`
	Slug  string `json:"slug"`
}

type cartResponse struct {
	Data []CartItem `json:"data"`
}

type updateCartLineRequest struct {
	CartItemID id.CartItemID `json:"cartItemId"`
	Quantity   int           `json:"quantity"`
}

type removeCartLineRequest struct {
	CartItemID id.CartItemID `json:"cartItemId"`
}

type addCartLineRequest struct {
	UserID    id.UserID    `json:"userId"`
	ProductID id.ProductID `json:"productId"`
	Quantity  int          `json:"quantity"`
}

// OrderItem is one purchased line.
type OrderItem struct {
	ProductID id.ProductID `json:"productId"`
	Quantity  int          `json:"quantity"`
	Price     Money        `json:"price"`
}

// OrderRequest is the body of POST /orders.
type OrderRequest struct {
	UserID          id.UserID   `json:"userId"`
	Items           []OrderItem `json:"items"`
	TotalPrice      Money       `json:"totalPrice"`
	Note            string      `json:"note"`
	ShippingAddress string      `json:"shipping_address"`
	Phone           string      `json:"phone"`
	PaymentMethod   string      `json:"paymentMethod"`
}

// OrderResult is the relevant part of the order response.
type OrderResult struct {
	OrderID    string `json:"-"`
	ApproveURL string `json:"approveUrl"`
	Message    string `json:"message"`
}

type orderResponse struct {
	ApproveURL string          `json:"approveUrl"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

type userResponse struct {
	Data User `json:"data"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Money is a price in the shop's minor-less currency unit (VND). The
// backend sends prices as numbers or numeric strings.
type Money int64

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*m = Money(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*m = Money(f)
	return nil
}
