package http

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/polls/internal/core/domain"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	userKey   contextKey = "user"
)

// RequireStaff lets the request through only for a signed-in staff user.
// An expired access token is renewed from the refresh token cookie.
// Anonymous visitors are sent to the login page.
func (h *AuthHandler) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.authenticate(w, r)
		if err != nil {
			h.redirectToLogin(w, r)
			return
		}

		user, err := h.userService.GetStaff(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				h.expireCookies(w)
				h.redirectToLogin(w, r)
				return
			}
			if errors.Is(err, domain.ErrNotStaff) {
				h.renderLogin(w, r, http.StatusForbidden, loginPage{Forbidden: true})
				return
			}
			h.renderer.serverError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
		ctx = context.WithValue(ctx, userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *AuthHandler) authenticate(w http.ResponseWriter, r *http.Request) (uuid.UUID, error) {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		if id, err := h.authService.ParseAccessToken(cookie.Value); err == nil {
			return id, nil
		}
	}

	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidToken
	}
	accessToken, _, err := h.authService.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		return uuid.Nil, err
	}
	h.setAccessTokenCookie(w, accessToken)

	return h.authService.ParseAccessToken(accessToken)
}

func (h *AuthHandler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	target := loginPath
	if r.Method == http.MethodGet && r.URL.Path != adminPath {
		target += "?" + url.Values{"next": {r.URL.RequestURI()}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// CurrentUser returns the staff user set by RequireStaff.
func CurrentUser(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userKey).(*domain.User)
	return user
}
