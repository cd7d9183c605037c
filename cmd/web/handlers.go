package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	mw "cybat.ai/cybat-web/internal/middleware"
	"cybat.ai/cybat-web/internal/observability"
	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/site"
)

// controller returns the visitor's controller, mounting it on first use.
// Handlers that change state use it.
func (a *app) controller(r *http.Request) *site.Controller {
	ctrl := a.store.Get(mw.GetSession(r).ID)
	ctrl.Mount(r.Context())
	return ctrl
}

// viewController serves read-only requests. A visitor without stored state
// gets a throwaway controller.
func (a *app) viewController(r *http.Request) *site.Controller {
	ctrl := a.store.Peek(mw.GetSession(r).ID)
	ctrl.Mount(r.Context())
	return ctrl
}

// pageHandler renders a routed page. Navigating always closes the mobile menu.
func (a *app) pageHandler(route pages.Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl := a.viewController(r)
		ctrl.CloseMobileMenu()

		page, err := a.resolver.Resolve(r.Context(), route.Key)
		if err != nil {
			a.renderLoadError(w, r, ctrl, err)
			return
		}
		a.renderPage(w, r, http.StatusOK, page, ctrl)
	}
}

func (a *app) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	ctrl := a.viewController(r)
	ctrl.CloseMobileMenu()
	a.renderPage(w, r, http.StatusNotFound, a.resolver.NotFound(r.Context()), ctrl)
}

func (a *app) renderLoadError(w http.ResponseWriter, r *http.Request, ctrl *site.Controller, err error) {
	logger := observability.FromContext(r.Context())
	var loadErr *pages.LoadError
	if errors.As(err, &loadErr) {
		logger.Error("page load failed", zap.String("key", string(loadErr.Key)), zap.Error(loadErr.Err))
	} else {
		logger.Error("page load failed", zap.Error(err))
	}
	a.renderPage(w, r, http.StatusBadGateway, a.resolver.ErrorPage(), ctrl)
}

// fragmentHandler serves the raw markup of a page fragment.
func (a *app) fragmentHandler(w http.ResponseWriter, r *http.Request) {
	key := pages.Key(chi.URLParam(r, "name"))
	if key == pages.KeyNotFound || !pages.Known(key) {
		http.NotFound(w, r)
		return
	}
	page, err := a.resolver.Resolve(r.Context(), key)
	if err != nil {
		observability.FromContext(r.Context()).Warn("fragment unavailable", zap.String("key", string(key)), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(page.Fragment.Markup))
}

func (a *app) menuToggleHandler(w http.ResponseWriter, r *http.Request) {
	ctrl := a.controller(r)
	ctrl.ToggleMobileMenu()
	a.respondPartial(w, r, "mobile_menu", ctrl)
}

func (a *app) menuCloseHandler(w http.ResponseWriter, r *http.Request) {
	ctrl := a.controller(r)
	ctrl.CloseMobileMenu()
	a.respondPartial(w, r, "mobile_menu", ctrl)
}

func (a *app) faqToggleHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid FAQ index", http.StatusBadRequest)
		return
	}
	ctrl := a.controller(r)
	ctrl.ToggleFAQ(index)
	a.respondPartial(w, r, "faq", ctrl)
}

// connectHandler stores the submitted draft and relays it.
func (a *app) connectHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ctrl := a.controller(r)
	ctrl.SetDraft(site.Draft{
		Name:    strings.TrimSpace(r.PostFormValue("name")),
		Email:   strings.TrimSpace(r.PostFormValue("email")),
		Company: strings.TrimSpace(r.PostFormValue("company")),
		Message: strings.TrimSpace(r.PostFormValue("message")),
	})

	status, err := ctrl.Submit(r.Context())
	logger := observability.FromContext(r.Context())
	if err != nil {
		logger.Info("partner form not delivered", zap.String("status", status.String()), zap.Error(err))
	}

	if mw.IsHTMX(r.Context()) {
		a.renderPartial(w, r, "partner_form", ctrl)
		return
	}
	page, err := a.resolver.Resolve(r.Context(), pages.KeyContact)
	if err != nil {
		a.renderLoadError(w, r, ctrl, err)
		return
	}
	a.renderPage(w, r, http.StatusOK, page, ctrl)
}

// respondPartial renders name for htmx and redirects plain form posts back
// to the page they came from.
func (a *app) respondPartial(w http.ResponseWriter, r *http.Request, name string, ctrl *site.Controller) {
	if mw.IsHTMX(r.Context()) {
		a.renderPartial(w, r, name, ctrl)
		return
	}
	http.Redirect(w, r, returnPath(r.PostFormValue("return_to")), http.StatusSeeOther)
}

// returnPath only allows routed paths so the redirect cannot leave the site.
func returnPath(raw string) string {
	if route, ok := pages.Lookup(raw); ok {
		return route.Path
	}
	return "/"
}
