package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/util"
)

// HandleGenerate implements POST /api/generate (spec §6): the request is
// resolved, translated to an OpenAI chat body for any non-local target,
// dispatched, and — for a non-stream response — translated back to the
// Ollama generate shape.
func (a *Application) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r, requestID := withRequestContext(r, constants.DialectOllama)
	rlog := a.styled.WithRequestID(requestID)
	ctx := r.Context()

	body, err := decodeJSONBody(r)
	if err != nil {
		rlog.Warn("generate: request decode failed", "error", err)
		writeError(w, err)
		return
	}

	model := util.GetString(body, "model")
	stream, _ := body["stream"].(bool)

	resolveStart := time.Now()
	resolved, err := a.resolver.Resolve(model)
	resolveMs := time.Since(resolveStart).Milliseconds()
	if err != nil {
		rlog.Warn("generate: resolve failed", "model", model, "error", err)
		writeError(w, err)
		return
	}

	outBody := body
	if resolved.Group.Name != domain.LocalGroupName {
		outBody = toChatBody(body)
	}

	dispatchStart := time.Now()
	result, err := a.dispatcher.Dispatch(ctx, model, outBody, stream)
	dispatchMs := time.Since(dispatchStart).Milliseconds()
	if err != nil {
		rlog.Warn("generate: dispatch failed", "model", model, "error", err, "resolve_ms", resolveMs, "dispatch_ms", dispatchMs)
		writeError(w, err)
		return
	}

	if result.StreamResult != nil {
		writeStream(w, result.StreamResult)
		rlog.Info("generate: streamed", "model", model, "router", result.RouterType,
			"resolve_ms", resolveMs, "dispatch_ms", dispatchMs, "total_ms", time.Since(start).Milliseconds())
		return
	}

	translated := result.Router.ToOllama(result.HandleResult.Body, model)
	writeJSON(w, http.StatusOK, translated)
	rlog.Info("generate: completed", "model", model, "router", result.RouterType,
		"resolve_ms", resolveMs, "dispatch_ms", dispatchMs, "total_ms", time.Since(start).Milliseconds())
}

// toChatBody translates an Ollama generate request into the OpenAI chat
// body non-local backends expect (spec §6): a single user message carrying
// the prompt, with temperature and max_tokens defaulted from options.
func toChatBody(body map[string]any) map[string]any {
	prompt := util.GetString(body, "prompt")
	options, _ := body["options"].(map[string]any)

	temperature := 0.7
	if t, ok := util.GetFloat(options, "temperature"); ok {
		temperature = t
	}
	maxTokens := int64(2048)
	if n, ok := util.GetFloat64(options, "num_predict"); ok {
		maxTokens = n
	}

	return map[string]any{
		"messages": []any{
			map[string]any{"role": "user", "content": prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
}

func withRequestContext(r *http.Request, dialect constants.Dialect) (*http.Request, string) {
	requestID := util.GenerateRequestID()
	ctx := context.WithValue(r.Context(), constants.ContextRequestIDKey, requestID)
	ctx = context.WithValue(ctx, constants.ContextDialectKey, dialect)
	return r.WithContext(ctx), requestID
}
