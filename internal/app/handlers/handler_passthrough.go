package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/thushan/ollabridge/internal/core/constants"
)

// cannedPassthrough holds responses for the management endpoints a mock-only
// setup still needs to answer plausibly when there's no local daemon to ask.
var cannedPassthrough = map[string]map[string]any{
	"pull":   {"status": "success"},
	"delete": {"status": "success"},
	"copy":   {"status": "success"},
}

// HandlePassthrough implements the catch-all under /api/ (spec §6): anything
// not handled by a more specific route is forwarded verbatim to the local
// daemon, falling back to a canned response for the few management verbs a
// mock-only deployment still needs to answer.
func (a *Application) HandlePassthrough(w http.ResponseWriter, r *http.Request) {
	reqBody, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(reqBody) == 0 {
		reqBody = nil
	}

	raw, status, err := a.proxyRawToLocal(r.Context(), r.Method, r.URL.Path, reqBody)
	if err == nil {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write(raw)
		return
	}

	verb := strings.TrimPrefix(r.URL.Path, constants.PathAPIPassthroughStem)
	if canned, ok := cannedPassthrough[verb]; ok {
		writeJSON(w, http.StatusOK, canned)
		return
	}

	writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
}
