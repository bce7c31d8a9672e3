package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"storefront/middleware"
	"storefront/service"
	"storefront/session"
)

// Handler is the HTTP layer over the cart, catalog, checkout and account
// services.
type Handler struct {
	carts    service.CartServiceInterface
	catalog  service.CatalogServiceInterface
	checkout service.CheckoutServiceInterface
	accounts service.AccountServiceInterface

	resolver      *session.Resolver
	sessionHeader string
	cookies       sessions.Store
	log           *zap.Logger
}

type Deps struct {
	Carts    service.CartServiceInterface
	Catalog  service.CatalogServiceInterface
	Checkout service.CheckoutServiceInterface
	Accounts service.AccountServiceInterface

	Resolver      *session.Resolver
	SessionHeader string
	// Cookies holds the login session; carts never read it.
	Cookies sessions.Store
	Log     *zap.Logger
}

// NewHandler returns a Handler instance
func NewHandler(d Deps) *Handler {
	h := &Handler{
		carts:         d.Carts,
		catalog:       d.Catalog,
		checkout:      d.Checkout,
		accounts:      d.Accounts,
		resolver:      d.Resolver,
		sessionHeader: d.SessionHeader,
		cookies:       d.Cookies,
		log:           d.Log,
	}
	if h.resolver == nil {
		h.resolver = session.NewResolver()
	}
	if h.sessionHeader == "" {
		h.sessionHeader = session.DefaultHeader
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	if h.cookies == nil {
		h.cookies = NewCookieStore(false, securecookie.GenerateRandomKey(32))
	}
	return h
}

// RegisterRoutes registers all routes on the provided router
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Session scoped: cart, checkout, orders
	scoped := api.NewRoute().Subrouter()
	scoped.Use(session.Middleware(h.resolver, h.sessionHeader))
	scoped.HandleFunc("/cart", h.GetCart).Methods("GET")
	scoped.HandleFunc("/cart", h.AddItem).Methods("POST")
	scoped.HandleFunc("/cart", h.ClearCart).Methods("DELETE")
	scoped.HandleFunc("/cart/{lineItemId}", h.UpdateQuantity).Methods("PUT")
	scoped.HandleFunc("/cart/{lineItemId}", h.RemoveItem).Methods("DELETE")
	scoped.HandleFunc("/checkout", h.Checkout).Methods("POST")
	scoped.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET")

	// Catalog
	api.HandleFunc("/products", h.ListProducts).Methods("GET")
	api.HandleFunc("/products/{id}", h.GetProduct).Methods("GET")

	// Accounts
	api.HandleFunc("/auth/register", h.Register).Methods("POST")
	api.HandleFunc("/auth/login", h.Login).Methods("POST")
	api.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	api.HandleFunc("/auth/me", h.Me).Methods("GET")
	api.HandleFunc("/auth/profile", h.UpdateProfile).Methods("PUT")
	api.HandleFunc("/auth/password", h.ChangePassword).Methods("PUT")
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeFieldErr(w http.ResponseWriter, fe *fieldError) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: fe.msg, Field: fe.field})
}

// writeServiceErr maps the service taxonomy to status codes. Internal
// details never reach the client.
func (h *Handler) writeServiceErr(w http.ResponseWriter, r *http.Request, err error) {
	var se *service.Error
	if !errors.As(err, &se) {
		h.log.Error("unhandled error",
			zap.String("request_id", middleware.RequestIDFromContext(r.Context())),
			zap.String("session_id", session.FromContext(r.Context())),
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()),
			zap.Error(err))
		writeErr(w, http.StatusInternalServerError, "internal server error")
		return
	}
	switch se.Kind {
	case service.KindInvalidInput:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: se.Message, Field: se.Field})
	case service.KindNotFound:
		writeErr(w, http.StatusNotFound, se.Message)
	case service.KindConflict:
		writeJSON(w, http.StatusConflict, errorBody{Error: se.Message, Field: se.Field})
	case service.KindUnauthorized:
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: se.Message, Field: se.Field})
	default:
		// integrity violations are logged where they are detected
		writeErr(w, http.StatusInternalServerError, "internal server error")
	}
}
