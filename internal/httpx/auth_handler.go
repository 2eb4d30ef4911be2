package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fikriandhika/go-storefront/internal/auth"
)

type AuthHandler struct {
	Auth *auth.Service
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResp struct {
	User  *auth.User `json:"user"`
	Token string     `json:"token"`
}

func (h *AuthHandler) Register(r *chi.Mux) {
	r.Post("/auth/signup", h.signUp)
	r.Post("/auth/signin", h.signIn)
	r.Post("/auth/signout", h.signOut)
}

func (h *AuthHandler) signUp(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.Auth.SignUp)
}

func (h *AuthHandler) signIn(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.Auth.SignIn)
}

func (h *AuthHandler) handle(w http.ResponseWriter, r *http.Request, fn func(context.Context, string, string) (*auth.User, error)) {
	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	u, err := fn(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, authResp{User: u, Token: u.Token})
}

func (h *AuthHandler) signOut(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing token")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.SignOut(ctx, token); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
