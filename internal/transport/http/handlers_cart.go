package httptransport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	id "storefront/pkg/domain"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// HandleGetCart implements GET /api/cart. It returns the local snapshot
// without contacting the backend.
func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(h.Cart.Current()))
}

// HandleRefreshCart implements POST /api/cart/refresh.
func (h *Handler) HandleRefreshCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Cart.Refresh(r.Context())
	if err != nil {
		h.cartFailed(r, "refresh", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(snap))
}

// HandleAddLine implements POST /api/cart/lines.
//
// Input: { "productId": 9001, "quantity": 2 }
func (h *Handler) HandleAddLine(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[AddLineRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.Cart.AddLine(r.Context(), id.ProductID(req.ProductID), req.Quantity); err != nil {
		h.cartFailed(r, "add", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toCartResponse(h.Cart.Current()))
}

// HandleSetLineQuantity implements PATCH /api/cart/lines/{id}. A refused
// change has already been rolled back when the error is written.
func (h *Handler) HandleSetLineQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := cartItemIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetQuantityRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.Cart.SetLineQuantity(r.Context(), itemID, req.Quantity); err != nil {
		h.cartFailed(r, "set_quantity", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(h.Cart.Current()))
}

// HandleRemoveLine implements DELETE /api/cart/lines/{id}.
func (h *Handler) HandleRemoveLine(w http.ResponseWriter, r *http.Request) {
	itemID, ok := cartItemIDParam(w, r)
	if !ok {
		return
	}
	if err := h.Cart.RemoveLine(r.Context(), itemID); err != nil {
		h.cartFailed(r, "remove", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toCartResponse(h.Cart.Current()))
}

func cartItemIDParam(w http.ResponseWriter, r *http.Request) (id.CartItemID, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || n <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "cart item id must be a positive integer"))
		return 0, false
	}
	return id.CartItemID(n), true
}

func (h *Handler) cartFailed(r *http.Request, op string, err error) {
	ctx := r.Context()
	h.logger.WarnContext(ctx, "cart operation failed",
		"operation", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
