package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/thushan/ollabridge/internal/core/constants"
	"github.com/thushan/ollabridge/internal/core/domain"
	"github.com/thushan/ollabridge/internal/core/ports"
	"github.com/thushan/ollabridge/internal/util"
	"github.com/thushan/ollabridge/pkg/pool"
)

// byteBuffer is a fixed-size scratch buffer recycled across streaming
// responses so the hot forwarding path (spec §5: "no CPU-bound work longer
// than a single JSON serialize") doesn't allocate per chunk.
type byteBuffer struct {
	data [32 * 1024]byte
}

var streamBufPool = pool.NewLitePool(func() *byteBuffer { return &byteBuffer{} })

// decodeJSONBody implements spec §4.8's lenient body parsing: strict
// decoding first, then a lossy UTF-8 repair-and-retry before giving up.
func decodeJSONBody(r *http.Request) (map[string]any, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, &domain.DecodeError{Err: err, Reason: "reading request body"}
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		return body, nil
	}

	sanitized := util.SanitizeUTF8(raw)
	if err := json.Unmarshal(sanitized, &body); err != nil {
		return nil, &domain.DecodeError{Err: err, Reason: "parsing request body even after UTF-8 replacement"}
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error kinds of spec §7 onto HTTP status codes. A
// DispatchError is unwrapped to the last candidate's error before mapping,
// since that error's concrete type determines the reported status.
func writeError(w http.ResponseWriter, err error) {
	var dispatchErr *domain.DispatchError
	if errors.As(err, &dispatchErr) {
		writeError(w, dispatchErr.Err)
		return
	}

	var notFound *domain.NotFoundError
	var decodeErr *domain.DecodeError
	var upstreamErr *domain.UpstreamError

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &decodeErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &upstreamErr):
		writeJSON(w, upstreamErr.StatusCode, map[string]string{"error": upstreamErr.Text})
	default:
		// ClientInitError and TransportError (all candidates failed) both
		// surface as a generic 500, per spec §7.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

// writeStream forwards a StreamResult's body to w chunk-by-chunk, flushing
// after every read so a slow upstream doesn't buffer behind Go's own
// response buffering (spec §5's ordering guarantee: bytes forwarded in the
// exact order received).
func writeStream(w http.ResponseWriter, result *ports.StreamResult) {
	defer result.Body.Close()

	w.Header().Set(constants.HeaderContentType, result.MediaType)
	w.WriteHeader(http.StatusOK)
	flusher, canFlush := w.(http.Flusher)

	scratch := streamBufPool.Get()
	defer streamBufPool.Put(scratch)
	buf := scratch.data[:]

	for {
		n, err := result.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if canFlush {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// proxyRawToLocal issues a bare passthrough request against the local
// daemon for the handlers (show, version, generic passthrough) that fall
// back to it directly rather than going through the failover dispatcher.
func (a *Application) proxyRawToLocal(ctx context.Context, method, path string, body []byte) ([]byte, int, error) {
	baseURL := a.cfg.LocalOllama.BaseURL
	client, err := a.pool.Acquire(ctx, baseURL, "", a.cfg.Proxy.DefaultTimeout.Milliseconds(), false)
	if err != nil {
		return nil, 0, err
	}
	defer a.pool.Release(baseURL, "", false)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return raw, resp.StatusCode, nil
}
