// Package httpapi exposes the local auth path over HTTP: register, login
// and logout handlers plus the route gate that fronts page requests.
package httpapi

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/doorward/doorward/internal/logutil"
	"github.com/doorward/doorward/password"
	"github.com/doorward/doorward/session"
	"github.com/doorward/doorward/userstore"
	"github.com/julienschmidt/httprouter"
)

// CookieName carries the signed session token. Max age matches the token
// lifetime so cookie and token expire together.
const (
	CookieName   = "auth-token"
	cookieMaxAge = int(session.Lifetime / time.Second)
)

type (
	Handler struct {
		store        *userstore.Store
		hasher       password.Hasher
		issuer       *session.Issuer
		secureCookie bool
	}

	registerRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}

	loginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	// PublicUser is the only shape of a user that ever leaves the
	// process, the hash stays behind.
	PublicUser struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
)

func NewHandler(store *userstore.Store, hasher password.Hasher, issuer *session.Issuer, secureCookie bool) *Handler {
	return &Handler{
		store:        store,
		hasher:       hasher,
		issuer:       issuer,
		secureCookie: secureCookie,
	}
}

// AsHandler mounts the auth endpoints on a fresh router.
func (h *Handler) AsHandler() http.Handler {
	router := httprouter.New()
	router.HandlerFunc("POST", "/api/auth/register", h.register)
	router.HandlerFunc("POST", "/api/auth/login", h.login)
	router.HandlerFunc("POST", "/api/auth/logout", h.logout)
	router.HandlerFunc("GET", "/api/auth/me", h.me)
	return router
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func errorJSON(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func publicUser(u userstore.User) PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}

func validateRegistration(req registerRequest) map[string]string {
	fields := map[string]string{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "must be a valid email address"
	}
	if len(req.Password) < 6 {
		fields["password"] = "must be at least 6 characters"
	}
	if len(strings.TrimSpace(req.Name)) < 2 {
		fields["name"] = "must be at least 2 characters"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context())
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if fields := validateRegistration(req); fields != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": fields,
		})
		return
	}
	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		log.Error().Err(err).Msg("Unable to hash password during registration")
		errorJSON(w, http.StatusInternalServerError, "registration failed")
		return
	}
	user, err := h.store.Create(r.Context(), req.Email, hash, strings.TrimSpace(req.Name))
	switch err.(type) {
	case nil:
	case userstore.DuplicateEmail:
		errorJSON(w, http.StatusBadRequest, "email already registered")
		return
	default:
		log.Error().Err(err).Msg("Unable to create user")
		errorJSON(w, http.StatusInternalServerError, "registration failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "registration successful",
		"user":    publicUser(user),
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	log := logutil.GetOrDefault(r.Context())
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorJSON(w, http.StatusBadRequest, "invalid request body")
		return
	}
	user, err := h.store.FindByEmail(r.Context(), req.Email)
	switch err.(type) {
	case nil:
	case userstore.UserNotFound:
		// same status and body as a bad password, an attacker cannot
		// probe which addresses exist
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	default:
		log.Error().Err(err).Msg("Unable to look up user during login")
		errorJSON(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !h.hasher.Verify(req.Password, user.PasswordHash) {
		errorJSON(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token, err := h.issuer.Issue(user.ID, user.Email)
	if err != nil {
		log.Error().Err(err).Msg("Unable to issue session token")
		errorJSON(w, http.StatusInternalServerError, "login failed")
		return
	}
	http.SetCookie(w, h.sessionCookie(token, cookieMaxAge))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "login successful",
		"user":    publicUser(user),
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// unconditional: clearing a session that never existed is still a 200
	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logout successful"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	claims := h.issuer.Decode(cookie.Value)
	if claims == nil {
		errorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	id, err := claims.UserID()
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	user, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		errorJSON(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"user": publicUser(user)})
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secureCookie,
	}
}
