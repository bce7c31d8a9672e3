package handler

import (
	"net/http"

	"storefront/service"
	"storefront/session"
)

type checkoutReq struct {
	Email           string `json:"email"`
	ShippingAddress string `json:"shippingAddress"`
}

// Checkout handles POST /api/checkout
// body: { "email": "...", "shippingAddress": "..." }
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	ord, err := h.checkout.Checkout(r.Context(), service.CheckoutRequest{
		SessionID:       session.FromContext(r.Context()),
		UserID:          h.currentUserID(r),
		Email:           req.Email,
		ShippingAddress: req.ShippingAddress,
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ord)
}

// GetOrder handles GET /api/orders/{id}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "order")
	if !ok {
		return
	}
	ord, err := h.checkout.GetOrder(r.Context(), session.FromContext(r.Context()), h.currentUserID(r), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ord)
}
