package middleware

import (
	"net/http"
)

// writeError answers htmx requests with a small fragment it can swap in and
// everything else with plain text.
func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	if IsHTMX(r.Context()) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("HX-Reswap", "none")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`<p class="request-error">` + http.StatusText(code) + `</p>`))
		return
	}
	http.Error(w, msg, code)
}
