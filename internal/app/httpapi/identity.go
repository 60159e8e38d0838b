package httpapi

import (
	"net/http"
	"strings"

	"github.com/egov-platform/citizen-services/internal/app/auth"
	"github.com/egov-platform/citizen-services/internal/app/domain/identity"
	"github.com/egov-platform/citizen-services/internal/errors"
	"github.com/egov-platform/citizen-services/internal/middleware"
)

// tokenResponse mirrors the shape clients receive on signup, login and
// refresh.
type tokenResponse struct {
	Access  string        `json:"access"`
	Refresh string        `json:"refresh"`
	User    identity.User `json:"user"`
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, pair, err := h.app.Identity.Signup(r.Context(), payload.Username, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: user})
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	user, pair, err := h.app.Identity.Login(r.Context(), payload.Username, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: user})
}

// refresh accepts a refresh token as the bearer credential and reissues a
// pair. It sits on the auth middleware's skip list because the middleware
// only admits access tokens.
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		writeError(w, errors.Unauthorized("refresh token required"))
		return
	}

	claims, err := h.app.Tokens.Verify(r.Context(), parts[1])
	if err != nil {
		writeError(w, err)
		return
	}
	if claims.TokenType != auth.TokenRefresh {
		writeError(w, errors.Unauthorized("refresh token required"))
		return
	}

	user, pair, err := h.app.Identity.Refresh(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Access: pair.Access, Refresh: pair.Refresh, User: user})
}

func (h *handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, err)
		return
	}

	userID := middleware.GetUserID(r.Context())
	if err := h.app.Identity.ChangePassword(r.Context(), userID, payload.OldPassword, payload.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *handler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if err := h.app.Identity.Delete(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
