package handlers

import (
	"net/http"
	"time"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/util"
)

// HandleChatCompletions implements POST /v1/chat/completions (spec §6): the
// body is already OpenAI-shaped, so it is forwarded unchanged with no
// response translation on the way back.
func (a *Application) HandleChatCompletions(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r, requestID := withRequestContext(r, constants.DialectOpenAI)
	rlog := a.styled.WithRequestID(requestID)
	ctx := r.Context()

	body, err := decodeJSONBody(r)
	if err != nil {
		rlog.Warn("chat: request decode failed", "error", err)
		writeError(w, err)
		return
	}

	model := util.GetString(body, "model")
	stream, _ := body["stream"].(bool)

	dispatchStart := time.Now()
	result, err := a.dispatcher.Dispatch(ctx, model, body, stream)
	dispatchMs := time.Since(dispatchStart).Milliseconds()
	if err != nil {
		rlog.Warn("chat: dispatch failed", "model", model, "error", err, "dispatch_ms", dispatchMs)
		writeError(w, err)
		return
	}

	if result.StreamResult != nil {
		writeStream(w, result.StreamResult)
		rlog.Info("chat: streamed", "model", model, "router", result.RouterType,
			"dispatch_ms", dispatchMs, "total_ms", time.Since(start).Milliseconds())
		return
	}

	writeJSON(w, http.StatusOK, result.HandleResult.Body)
	rlog.Info("chat: completed", "model", model, "router", result.RouterType,
		"dispatch_ms", dispatchMs, "total_ms", time.Since(start).Milliseconds())
}
