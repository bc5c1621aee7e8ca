package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	mbp "go.messdienerplan.de/core/mainboilerplate"
)

func TestDebugRoutesFollowDiagnosticsConfig(t *testing.T) {
	var app = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "plan")
	})
	var get = func(h http.Handler, path string) *httptest.ResponseRecorder {
		var rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		return rec
	}

	// pprof and expvar register with the default mux on import, but aren't
	// served unless diagnostics are enabled.
	var disabled = mbp.DiagnosticsConfig{Enabled: false}
	mbp.InitDiagnosticsAndRecover(disabled)

	var h = newHandler(app, disabled)
	for _, path := range []string{"/debug/pprof/", "/debug/vars", "/debug/ready", "/debug/metrics"} {
		require.Equal(t, http.StatusNotFound, get(h, path).Code, path)
	}
	require.Equal(t, "plan", get(h, "/").Body.String())

	var enabled = mbp.DiagnosticsConfig{Enabled: true}
	mbp.InitDiagnosticsAndRecover(enabled)

	h = newHandler(app, enabled)
	for _, path := range []string{"/debug/pprof/", "/debug/ready", "/debug/metrics"} {
		require.Equal(t, http.StatusOK, get(h, path).Code, path)
	}
	require.Equal(t, "plan", get(h, "/").Body.String())
}
