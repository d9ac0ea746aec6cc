package backendtest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func userJSON(a *Account) map[string]any {
	return map[string]any{
		"id":        a.ID,
		"firstname": a.FirstName,
		"lastname":  a.LastName,
		"email":     a.Email,
		"phone":     a.Phone,
		"image":     a.Image,
		"role":      map[string]any{"code": a.RoleCode},
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid body"})
		return
	}
	s.mu.Lock()
	a, ok := s.accounts[req.Email]
	s.mu.Unlock()
	if !ok || a.Password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Email hoặc mật khẩu không đúng"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "ok",
		"token":   a.Token,
		"user":    userJSON(a),
	})
}

func (s *Server) handleFetchCart(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad user id"})
		return
	}
	s.mu.Lock()
	lines := s.carts[userID]
	data := make([]map[string]any, 0, len(lines))
	for _, l := range lines {
		data = append(data, map[string]any{
			"id":        l.ID,
			"productId": l.ProductID,
			"price":     l.Price,
			"quantity":  l.Quantity,
			"product":   map[string]any{"name": l.Name, "image": "", "slug": ""},
		})
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"data": data})
}

// findLine locates a line across carts. Caller holds s.mu.
func (s *Server) findLine(id int64) (int64, int) {
	for user, lines := range s.carts {
		for i, l := range lines {
			if l.ID == id {
				return user, i
			}
		}
	}
	return 0, -1
}

func (s *Server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartItemID int64 `json:"cartItemId"`
		Quantity   int   `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, i := s.findLine(req.CartItemID)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "cart item not found"})
		return
	}
	s.carts[user][i].Quantity = req.Quantity
	writeJSON(w, http.StatusOK, map[string]any{"message": "updated"})
}

func (s *Server) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CartItemID int64 `json:"cartItemId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	user, i := s.findLine(req.CartItemID)
	if i < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "cart item not found"})
		return
	}
	s.carts[user] = append(s.carts[user][:i:i], s.carts[user][i+1:]...)
	writeJSON(w, http.StatusOK, map[string]any{"message": "removed"})
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    json.Number `json:"userId"`
		ProductID int64       `json:"productId"`
		Quantity  int         `json:"quantity"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil || req.Quantity < 1 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid body"})
		return
	}
	userID, err := req.UserID.Int64()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad user id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, l := range s.carts[userID] {
		if l.ProductID == req.ProductID {
			s.carts[userID][i].Quantity += req.Quantity
			writeJSON(w, http.StatusOK, map[string]any{"message": "merged"})
			return
		}
	}
	s.nextLine++
	s.carts[userID] = append(s.carts[userID], Line{
		ID:        s.nextLine,
		ProductID: req.ProductID,
		Price:     s.prices[req.ProductID],
		Quantity:  req.Quantity,
	})
	writeJSON(w, http.StatusCreated, map[string]any{"message": "added"})
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad user id"})
		return
	}
	s.mu.Lock()
	delete(s.carts, userID)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "cleared"})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "bad user id"})
		return
	}
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "expected multipart form"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var acct *Account
	for _, a := range s.accounts {
		if a.ID == userID {
			acct = a
		}
	}
	if acct == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "user not found"})
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+acct.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "invalid token"})
		return
	}
	if v := r.FormValue("firstname"); v != "" {
		acct.FirstName = v
	}
	if v := r.FormValue("lastname"); v != "" {
		acct.LastName = v
	}
	if v := r.FormValue("phone"); v != "" {
		acct.Phone = v
	}
	if v := r.FormValue("email"); v != "" && v != acct.Email {
		delete(s.accounts, acct.Email)
		acct.Email = v
		s.accounts[v] = acct
	}
	// The real backend omits the role on this response.
	user := userJSON(acct)
	delete(user, "role")
	writeJSON(w, http.StatusOK, map[string]any{"data": user})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var o Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil || len(o.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "invalid order"})
		return
	}
	s.mu.Lock()
	s.orders = append(s.orders, o)
	n := len(s.orders)
	s.mu.Unlock()

	body := map[string]any{"message": "created", "data": map[string]any{"id": n}}
	if o.PaymentMethod == "paypal" {
		body["approveUrl"] = "https://www.sandbox.paypal.com/checkoutnow?token=ORDER-" + strconv.Itoa(n)
	}
	writeJSON(w, http.StatusCreated, body)
}
