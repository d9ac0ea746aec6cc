package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
)

// Login exchanges credentials for a token. A refusal (400, 401, 403 or
// success=false) is authentication_rejected carrying the backend's message.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out loginResponse
	resp, err := c.do(ctx, call{
		op:     "login",
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		accept: []int{http.StatusOK, http.StatusCreated, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(resp.body, &out); err != nil && resp.status < 300 {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "malformed login response")
	}
	if resp.status >= 300 || !out.Success {
		msg := out.Message
		if msg == "" {
			msg = backendMessage(resp.body)
		}
		if msg == "" {
			msg = "invalid email or password"
		}
		return nil, dErrors.New(dErrors.CodeAuthenticationRejected, msg)
	}
	if strings.TrimSpace(out.Token) == "" || out.User == nil || out.User.ID.IsNil() {
		return nil, dErrors.New(dErrors.CodeNetworkFailure, "login response missing token or user")
	}
	return &LoginResult{Token: out.Token, User: *out.User}, nil
}

// FetchCart reads every line of userID's cart.
func (c *Client) FetchCart(ctx context.Context, token string, userID id.UserID) ([]CartItem, error) {
	var out cartResponse
	if _, err := c.do(ctx, call{
		op:     "fetch_cart",
		method: http.MethodGet,
		path:   "/carts/" + url.PathEscape(userID.String()),
		token:  token,
	}, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		return []CartItem{}, nil
	}
	return out.Data, nil
}

// UpdateCartLine sets the quantity of one line.
func (c *Client) UpdateCartLine(ctx context.Context, token string, itemID id.CartItemID, quantity int) error {
	_, err := c.do(ctx, call{
		op:     "update_cart_line",
		method: http.MethodPut,
		path:   "/carts/update",
		token:  token,
		body:   updateCartLineRequest{CartItemID: itemID, Quantity: quantity},
	}, nil)
	return err
}

// RemoveCartLine deletes one line.
func (c *Client) RemoveCartLine(ctx context.Context, token string, itemID id.CartItemID) error {
	_, err := c.do(ctx, call{
		op:     "remove_cart_line",
		method: http.MethodDelete,
		path:   "/carts/remove",
		token:  token,
		body:   removeCartLineRequest{CartItemID: itemID},
	}, nil)
	return err
}

// AddCartLine adds quantity of productID. The backend merges with an
// existing line for the same product.
func (c *Client) AddCartLine(ctx context.Context, token string, userID id.UserID, productID id.ProductID, quantity int) error {
	_, err := c.do(ctx, call{
		op:     "add_cart_line",
		method: http.MethodPost,
		path:   "/carts/add",
		token:  token,
		body:   addCartLineRequest{UserID: userID, ProductID: productID, Quantity: quantity},
		accept: []int{http.StatusOK, http.StatusCreated},
	}, nil)
	return err
}

// ClearCart removes every line of userID's cart.
func (c *Client) ClearCart(ctx context.Context, token string, userID id.UserID) error {
	_, err := c.do(ctx, call{
		op:     "clear_cart",
		method: http.MethodDelete,
		path:   "/carts/clear/" + url.PathEscape(userID.String()),
		token:  token,
	}, nil)
	return err
}

// UserUpdate holds the editable profile fields. Empty fields are omitted.
type UserUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (u UserUpdate) fields() map[string]string {
	out := map[string]string{}
	for k, v := range map[string]string{
		"firstname": u.FirstName,
		"lastname":  u.LastName,
		"email":     u.Email,
		"phone":     u.Phone,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// UpdateUser updates the profile of userID and returns the stored user.
// A 400/401/403 is returned as validation or unauthorized with the
// backend's message; other failures are network_failure.
func (c *Client) UpdateUser(ctx context.Context, token string, userID id.UserID, update UserUpdate) (*User, error) {
	resp, err := c.do(ctx, call{
		op:     "update_user",
		method: http.MethodPut,
		path:   "/users/" + url.PathEscape(userID.String()),
		token:  token,
		form:   update.fields(),
		accept: []int{http.StatusOK, http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden},
	}, nil)
	if err != nil {
		return nil, err
	}
	switch resp.status {
	case http.StatusBadRequest:
		return nil, dErrors.New(dErrors.CodeValidation, messageOr(resp.body, "profile update rejected"))
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, dErrors.New(dErrors.CodeUnauthorized, messageOr(resp.body, "not allowed to update profile"))
	}

	var out userResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNetworkFailure, "malformed user response")
	}
	return &out.Data, nil
}

// CreateOrder places an order.
func (c *Client) CreateOrder(ctx context.Context, token string, order OrderRequest) (*OrderResult, error) {
	var out orderResponse
	if _, err := c.do(ctx, call{
		op:     "create_order",
		method: http.MethodPost,
		path:   "/orders",
		token:  token,
		body:   order,
		accept: []int{http.StatusOK, http.StatusCreated},
	}, &out); err != nil {
		return nil, err
	}
	res := &OrderResult{ApproveURL: out.ApproveURL, Message: out.Message}
	var created struct {
		ID json.Number `json:"id"`
	}
	if len(out.Data) > 0 && json.Unmarshal(out.Data, &created) == nil {
		res.OrderID = created.ID.String()
	}
	return res, nil
}

func messageOr(body []byte, fallback string) string {
	if msg := backendMessage(body); msg != "" {
		return msg
	}
	return fallback
}
