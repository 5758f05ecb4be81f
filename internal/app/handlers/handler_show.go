package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/util"
)

// HandleShow implements POST /api/show (spec §6): a non-local resolution
// returns a synthetic descriptor; a local one proxies straight to the
// daemon.
func (a *Application) HandleShow(w http.ResponseWriter, r *http.Request) {
	body, err := decodeJSONBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	model := util.GetString(body, "model")

	resolved, err := a.resolver.Resolve(model)
	if err != nil {
		writeError(w, err)
		return
	}

	if resolved.Group.Name == domain.LocalGroupName {
		raw, err := json.Marshal(body)
		if err != nil {
			writeError(w, &domain.DecodeError{Err: err, Reason: "re-encoding show request body"})
			return
		}
		respBody, status, err := a.proxyRawToLocal(r.Context(), http.MethodPost, constants.PathAPIShow, raw)
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.WriteHeader(status)
		_, _ = w.Write(respBody)
		return
	}

	writeJSON(w, http.StatusOK, syntheticShow(resolved))
}

func syntheticShow(resolved *domain.ResolvedModel) map[string]any {
	group := resolved.Group
	details := group.AvailableModels[resolved.VirtualName]
	name := group.Name + "/" + resolved.VirtualName

	actual := details.ActualModel
	if actual == "" {
		actual = resolved.VirtualName
	}
	remoteHost := ""
	if len(group.Endpoints) > 0 {
		ep := group.Endpoints[0]
		actual = ep.ActualModel(resolved.VirtualName, actual)
		remoteHost = ep.BaseURL
	}

	return map[string]any{
		"name":         name,
		"modelfile":    "",
		"parameters":   "",
		"template":     "",
		"capabilities": details.Capabilities,
		"remote_model": actual,
		"remote_host":  remoteHost,
		"details": map[string]any{
			"family":              group.Name,
			"families":            []string{group.Name},
			"parameter_size":      "",
			"quantization_level":  "",
			"format":              "api",
		},
		"model_info": map[string]any{
			"general.architecture":      group.Name,
			"general.context_length":    details.ContextLength,
			"general.embedding_length":  details.EmbeddingLength,
		},
	}
}
