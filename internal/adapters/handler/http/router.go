package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Renderer *Renderer
	Polls    *PollHandler
	Votes    *VoteHandler
	Admin    *AdminHandler
	Auth     *AuthHandler
	Store    Pinger
}

func NewHandler(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Google posts the sign-in form from its own origin and is checked
	// with its double submit cookie instead.
	csrf := http.NewCrossOriginProtection()
	csrf.AddInsecureBypassPattern("POST " + callbackPath)
	r.Use(csrf.Handler)

	r.NotFound(appendSlash(r, h.Renderer.notFound))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/polls/", http.StatusFound)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := h.Store.Ping(r.Context()); err != nil {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Route("/polls", func(r chi.Router) {
		r.Get("/", h.Polls.Index)
		r.Get("/{id}/", h.Polls.Detail)
		r.Get("/{id}/results/", h.Polls.Results)
		r.Post("/{id}/vote/", h.Votes.Vote)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login/", h.Auth.LoginPage)
		r.Post("/login/callback/", h.Auth.GoogleCallback)
		r.Post("/refresh/", h.Auth.Refresh)
		r.Post("/logout/", h.Auth.Logout)

		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireStaff)

			r.Get("/", h.Admin.Changelist)
			r.Route("/polls/question", func(r chi.Router) {
				r.Get("/add/", h.Admin.AddForm)
				r.Post("/add/", h.Admin.Add)
				r.Get("/{id}/change/", h.Admin.ChangeForm)
				r.Post("/{id}/change/", h.Admin.Change)
				r.Get("/{id}/delete/", h.Admin.DeleteConfirm)
				r.Post("/{id}/delete/", h.Admin.Delete)
			})
		})
	})

	return r
}

// appendSlash redirects GET requests for a path without its trailing slash
// when the slashed path exists.
func appendSlash(mux *chi.Mux, notFound http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && !strings.HasSuffix(r.URL.Path, "/") {
			slashed := r.URL.Path + "/"
			if mux.Match(chi.NewRouteContext(), r.Method, slashed) {
				target := slashed
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
		}
		notFound(w, r)
	}
}
