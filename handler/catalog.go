package handler

import (
	"net/http"

	"storefront/store"
)

// ListProducts handles GET /api/products?category=&brand=
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ps, err := h.catalog.ListProducts(r.Context(), store.ProductFilter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	})
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// GetProduct handles GET /api/products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "product")
	if !ok {
		return
	}
	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
