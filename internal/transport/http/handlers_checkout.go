package httptransport

import (
	"net/http"

	"storefront/internal/checkout"
	"storefront/pkg/platform/httputil"
	"storefront/pkg/requestcontext"
)

// HandleCheckout implements POST /api/checkout.
//
// Input: { "fullname": "...", "phone": "0901234567", "address": "...", "note": "", "paymentMethod": "cod" }
// Output: 201 with the order; paypal orders carry "redirectUrl".
func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CheckoutRequest](w, r, h.logger)
	if !ok {
		return
	}

	res, err := h.Checkout.PlaceOrder(ctx, req.shipping(), checkout.Method(req.PaymentMethod))
	if err != nil {
		h.logger.WarnContext(ctx, "checkout failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, CheckoutResponse{
		OrderID:     res.OrderID,
		Method:      string(res.Method),
		TotalPrice:  res.TotalPrice,
		RedirectURL: res.RedirectURL,
	})
}
