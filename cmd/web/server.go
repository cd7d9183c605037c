package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mw "cybat.ai/cybat-web/internal/middleware"
	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/partners"
)

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(chimw.StripSlashes)
	r.Use(mw.Logger(a.logger.Named("http")))
	r.Use(mw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(a.cfg.Server.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Handle("/assets/*", http.StripPrefix("/assets", mw.AssetsWithCache(subFS(a.public, "assets"))))
	r.Get("/"+partners.FileName, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		http.ServeFileFS(w, r, a.public, partners.FileName)
	})
	r.Get("/views/{name}.html", a.fragmentHandler)

	r.Group(func(r chi.Router) {
		r.Use(mw.HTMX)
		r.Use(a.sessions.Handler)
		r.Use(mw.CSRF(a.sessions.Secure()))

		for _, route := range pages.Routes {
			r.Get(route.Path, a.pageHandler(route))
		}
		r.Post("/ui/menu/toggle", a.menuToggleHandler)
		r.Post("/ui/menu/close", a.menuCloseHandler)
		r.Post("/ui/faq/{index}", a.faqToggleHandler)
		r.Post("/connect", a.connectHandler)

		r.NotFound(a.notFoundHandler)
	})

	return r
}
