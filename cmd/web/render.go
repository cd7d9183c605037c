package main

import (
	"bytes"
	"io/fs"
	"net/http"

	"go.uber.org/zap"

	"cybat.ai/cybat-web/internal/handlers"
	mw "cybat.ai/cybat-web/internal/middleware"
	"cybat.ai/cybat-web/internal/observability"
	"cybat.ai/cybat-web/internal/pages"
	"cybat.ai/cybat-web/internal/site"
)

// renderPage writes the full layout, or only the outlet plus an out-of-band
// mobile menu for htmx navigation.
func (a *app) renderPage(w http.ResponseWriter, r *http.Request, status int, page *pages.Page, ctrl *site.Controller) {
	data := handlers.BuildPageData(page, r.URL.Path, mw.GetSession(r).CSRFToken, ctrl.View())

	var buf bytes.Buffer
	if mw.IsHTMX(r.Context()) {
		if err := page.Render(&buf, "outlet", data); err != nil {
			a.renderFailed(w, r, err)
			return
		}
		data.OOB = true
		if err := page.Render(&buf, "mobile_menu", data); err != nil {
			a.renderFailed(w, r, err)
			return
		}
	} else if err := page.Render(&buf, "base", data); err != nil {
		a.renderFailed(w, r, err)
		return
	}
	writeHTML(w, status, buf.Bytes())
}

// renderPartial writes one layout partial.
func (a *app) renderPartial(w http.ResponseWriter, r *http.Request, name string, ctrl *site.Controller) {
	path := returnPath(r.PostFormValue("return_to"))
	data := handlers.BuildPageData(nil, path, mw.GetSession(r).CSRFToken, ctrl.View())

	var buf bytes.Buffer
	if err := a.resolver.Chrome().Render(&buf, name, data); err != nil {
		a.renderFailed(w, r, err)
		return
	}
	writeHTML(w, http.StatusOK, buf.Bytes())
}

func (a *app) renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("template exec error", zap.Error(err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func subFS(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return fsys
	}
	return sub
}
