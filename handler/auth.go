package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	authSessionName = "storefront_auth"
	userIDKey       = "user_id"
)

// NewCookieStore returns the login session store. keyPairs are passed to
// securecookie as hash/encryption key pairs.
func NewCookieStore(secure bool, keyPairs ...[]byte) *sessions.CookieStore {
	cs := sessions.NewCookieStore(keyPairs...)
	cs.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return cs
}

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileReq struct {
	Name string `json:"name"`
}

type passwordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// currentUserID returns the logged-in user, nil for anonymous callers. An
// undecodable cookie counts as anonymous.
func (h *Handler) currentUserID(r *http.Request) *int64 {
	sess, err := h.cookies.Get(r, authSessionName)
	if err != nil {
		return nil
	}
	id, ok := sess.Values[userIDKey].(int64)
	if !ok {
		return nil
	}
	return &id
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := h.currentUserID(r)
	if id == nil {
		writeErr(w, http.StatusUnauthorized, "not logged in")
		return 0, false
	}
	return *id, true
}

// Register handles POST /api/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	u, err := h.accounts.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	u, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	sess, _ := h.cookies.Get(r, authSessionName)
	sess.Values[userIDKey] = u.ID
	if err := sess.Save(r, w); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	h.log.Info("user logged in", zap.Int64("user_id", u.ID))
	writeJSON(w, http.StatusOK, u)
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := h.cookies.Get(r, authSessionName)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/auth/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	u, err := h.accounts.GetUser(r.Context(), id)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateProfile handles PUT /api/auth/profile
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req profileReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	u, err := h.accounts.UpdateProfile(r.Context(), id, req.Name)
	if err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ChangePassword handles PUT /api/auth/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	var req passwordReq
	if fe := decodeJSON(w, r, &req); fe != nil {
		writeFieldErr(w, fe)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		h.writeServiceErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
