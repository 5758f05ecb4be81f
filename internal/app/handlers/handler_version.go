package handlers

import (
	"net/http"

	"github.com/thushan/ollabridge/internal/core/constants"
)

// HandleVersion implements GET /api/version (spec §6): best-effort proxy to
// the local daemon, falling back to a canned response when it's unreachable
// so the endpoint stays usable even with no local backend configured.
func (a *Application) HandleVersion(w http.ResponseWriter, r *http.Request) {
	raw, status, err := a.proxyRawToLocal(r.Context(), http.MethodGet, constants.PathAPIVersion, nil)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"version": "0.6.4", "mock": true})
		return
	}
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}
