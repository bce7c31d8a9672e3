package handler

import (
	"encoding/json"
	"net/http"

	"storefront/session"
)

type addItemReq struct {
	ProductID json.RawMessage `json:"productId"`
	Quantity  json.RawMessage `json:"quantity"`
}

type updateQuantityReq struct {
	Quantity json.RawMessage `json:"quantity"`
}

// GetCart handles GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetCart(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// AddItem handles POST /api/cart
// body: { "productId": 1, "quantity": 2 }
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	productID, fe := integral(req.ProductID, "productId")
	if fe == nil && productID < 1 {
		fe = &fieldError{field: "productId", msg: "productId must be a positive integer"}
	}
	if fe != nil {
		writeFieldErr(w, fe)
		return
	}
	qty := 1
	if present(req.Quantity) {
		if qty, fe = integral(req.Quantity, "quantity"); fe == nil && qty < 1 {
			fe = &fieldError{field: "quantity", msg: "quantity must be at least 1"}
		}
		if fe != nil {
			writeFieldErr(w, fe)
			return
		}
	}

	cart, err := h.carts.AddItem(r.Context(), session.FromContext(r.Context()), int64(productID), qty)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cart)
}

// UpdateQuantity handles PUT /api/cart/{lineItemId}
// body: { "quantity": 3 }; zero or less removes the line item
func (h *Handler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "lineItemId", "line item")
	if !ok {
		return
	}
	var req updateQuantityReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	qty, fe := integral(req.Quantity, "quantity")
	if fe != nil {
		writeFieldErr(w, fe)
		return
	}

	cart, err := h.carts.UpdateQuantity(r.Context(), session.FromContext(r.Context()), id, qty)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/cart/{lineItemId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "lineItemId", "line item")
	if !ok {
		return
	}
	cart, err := h.carts.RemoveItem(r.Context(), session.FromContext(r.Context()), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// ClearCart handles DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.ClearCart(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}
