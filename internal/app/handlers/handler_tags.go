package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
)

// HandleTags implements GET /api/tags (spec §6): the concatenation of
// models probed verbatim from the local daemon and virtual models
// synthesized from every non-local configured group.
func (a *Application) HandleTags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	models := make([]map[string]any, 0, 16)

	if a.probe == nil || a.probe.IsUp(ctx) {
		local, err := a.fetchLocalTags(ctx)
		if err != nil {
			a.logger.Warn("tags: local daemon unreachable, omitting local models", "error", err)
		} else {
			models = append(models, local...)
		}
	}

	for _, group := range a.resolver.Groups() {
		if group.Name == domain.LocalGroupName {
			continue
		}
		models = append(models, virtualTagsFor(group)...)
	}

	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (a *Application) fetchLocalTags(ctx context.Context) ([]map[string]any, error) {
	raw, status, err := a.proxyRawToLocal(ctx, http.MethodGet, constants.PathAPITags, nil)
	if err != nil {
		return nil, err
	}
	if status >= 300 {
		return nil, &domain.UpstreamError{StatusCode: status, RouterName: domain.LocalRouterName, Text: string(raw)}
	}

	var decoded struct {
		Models []map[string]any `json:"models"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, &domain.DecodeError{Err: err, Reason: "decoding local /api/tags response"}
	}
	return decoded.Models, nil
}

// virtualTagsFor synthesizes one /api/tags entry per virtual model declared
// under group, per spec §6: name/model are "<group>/<inner>", format is
// "api", family is the group name, and remote_model/remote_host identify
// the actual upstream model and endpoint.
func virtualTagsFor(group *domain.ModelGroup) []map[string]any {
	out := make([]map[string]any, 0, len(group.AvailableModels))
	for virtual, details := range group.AvailableModels {
		name := group.Name + "/" + virtual
		actual := details.ActualModel
		if actual == "" {
			actual = virtual
		}
		remoteHost := ""
		if len(group.Endpoints) > 0 {
			ep := group.Endpoints[0]
			actual = ep.ActualModel(virtual, actual)
			remoteHost = ep.BaseURL
		}

		out = append(out, map[string]any{
			"name":         name,
			"model":        name,
			"modified_at":  "",
			"size":         0,
			"digest":       "",
			"remote_model": actual,
			"remote_host":  remoteHost,
			"details": map[string]any{
				"parent_model":       "",
				"format":             "api",
				"family":             group.Name,
				"families":           []string{group.Name},
				"parameter_size":     "",
				"quantization_level": "",
			},
		})
	}
	return out
}
