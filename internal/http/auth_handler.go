package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/SrFlag/Melos-Company/internal/auth"
)

type AuthHandler struct {
	authn *auth.Authenticator
}

func NewAuthHandler(authn *auth.Authenticator) *AuthHandler {
	return &AuthHandler{authn: authn}
}

type LoginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponseDTO struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	token, exp, err := h.authn.Login(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, r, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}
		respondError(w, r, http.StatusInternalServerError, "internal_error", "could not issue token")
		return
	}
	respondJSON(w, r, http.StatusOK, LoginResponseDTO{Token: token, ExpiresAt: exp})
}
