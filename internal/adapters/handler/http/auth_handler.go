package http

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vncsmyrnk/polls/internal/core/domain"
	"github.com/vncsmyrnk/polls/internal/core/ports"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	// Google posts the same random value as a cookie and a form field.
	googleCSRFField = "g_csrf_token"

	loginPath    = "/admin/login/"
	callbackPath = "/admin/login/callback/"
	adminPath    = "/admin/"
)

type AuthHandler struct {
	authService    ports.AuthService
	userService    ports.UserService
	renderer       *Renderer
	googleClientID string
	cookieSecure   bool
	cookieSameSite http.SameSite
}

func NewAuthHandler(authService ports.AuthService, userService ports.UserService, renderer *Renderer, googleClientID string, cookieSecure bool) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		userService:    userService,
		renderer:       renderer,
		googleClientID: googleClientID,
		cookieSecure:   cookieSecure,
		cookieSameSite: http.SameSiteLaxMode,
	}
}

type loginPage struct {
	adminPage
	ClientID    string
	CallbackURL string
	Forbidden   bool
	Failed      bool
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.renderLogin(w, r, http.StatusOK, loginPage{})
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	csrfCookie, err := r.Cookie(googleCSRFField)
	if err != nil || csrfCookie.Value == "" || csrfCookie.Value != r.PostFormValue(googleCSRFField) {
		http.Error(w, "Failed to verify double submit cookie", http.StatusBadRequest)
		return
	}

	credential := r.PostFormValue("credential")
	if credential == "" {
		http.Error(w, "Missing credential", http.StatusBadRequest)
		return
	}

	accessToken, refreshToken, err := h.authService.LoginWithGoogle(r.Context(), credential)
	if err != nil {
		if errors.Is(err, domain.ErrNotStaff) {
			h.renderLogin(w, r, http.StatusForbidden, loginPage{Forbidden: true})
			return
		}
		if errors.Is(err, domain.ErrInvalidToken) {
			slog.Warn("google sign-in rejected", "error", err)
			h.renderLogin(w, r, http.StatusUnauthorized, loginPage{Failed: true})
			return
		}
		h.renderer.serverError(w, r, err)
		return
	}

	h.setAccessTokenCookie(w, accessToken)
	h.setRefreshTokenCookie(w, refreshToken)

	http.Redirect(w, r, nextPath(r), http.StatusSeeOther)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err != nil {
		http.Error(w, "Missing refresh token", http.StatusUnauthorized)
		return
	}

	accessToken, refreshToken, err := h.authService.RefreshAccessToken(r.Context(), cookie.Value)
	if err != nil {
		h.expireCookies(w)
		http.Error(w, "Refresh failed", http.StatusUnauthorized)
		return
	}

	h.setAccessTokenCookie(w, accessToken)

	// If refresh token was rotated, update it too
	if refreshToken != "" && refreshToken != cookie.Value {
		h.setRefreshTokenCookie(w, refreshToken)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(refreshTokenCookie)
	if err == nil && cookie.Value != "" {
		if err := h.authService.Logout(r.Context(), cookie.Value); err != nil {
			slog.Error("failed to revoke refresh token", "error", err)
		}
	}

	h.expireCookies(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (h *AuthHandler) renderLogin(w http.ResponseWriter, r *http.Request, status int, page loginPage) {
	page.ClientID = h.googleClientID
	page.CallbackURL = callbackPath
	if next := r.URL.Query().Get("next"); next != "" {
		page.CallbackURL += "?" + url.Values{"next": {next}}.Encode()
	}
	h.renderer.render(w, r, status, "admin/login", page)
}

func (h *AuthHandler) setAccessTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     accessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: h.cookieSameSite,
		MaxAge:   15 * 60, // 15 minutes
	})
}

func (h *AuthHandler) setRefreshTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookie,
		Value:    token,
		Path:     "/admin/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: h.cookieSameSite,
		MaxAge:   7 * 24 * 60 * 60, // 7 days
	})
}

func (h *AuthHandler) expireCookies(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: accessTokenCookie, MaxAge: -1, Path: "/"})
	http.SetCookie(w, &http.Cookie{Name: refreshTokenCookie, MaxAge: -1, Path: "/admin/"})
}

// nextPath returns the local page to go to after signing in.
func nextPath(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if !strings.HasPrefix(next, adminPath) || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return adminPath
	}
	return next
}
