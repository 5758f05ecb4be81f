// Package common holds the streaming primitive and wire-framing helpers
// shared by every backend router (spec §4.4.4), grounded on
// internal/adapter/proxy/core/streaming.go's content-type sniffing and on
// the SSE-scanning pattern in other_examples' openai-compatible provider.
package common

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/thushan/ollabridge/internal/core/ports"
)

// Framing selects how a mid-stream or terminal error is encoded for the
// caller, matching whichever wire format the upstream itself used.
type Framing int

const (
	FramingSSE Framing = iota
	FramingNDJSON
)

// Stream issues req against client and returns a StreamResult whose Body
// forwards upstream bytes chunk-by-chunk, with no re-framing and no retry.
// A non-2xx response is converted to a single framed error chunk so the
// caller always receives a well-formed stream rather than a raw HTTP
// error. A transport failure before headers are returned as an error; a
// transport failure after the connection is accepted is handled by the
// caller continuing to read from the wrapped body, which will surface the
// failure as a read error translated into a trailing framed error chunk.
func Stream(ctx context.Context, client *http.Client, req *http.Request, framing Framing, mediaType, routerName string, logger *slog.Logger) (*ports.StreamResult, error) {
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return &ports.StreamResult{
			Body:      io.NopCloser(bytes.NewReader(frameError(framing, fmt.Sprintf("upstream returned HTTP %d: %s", resp.StatusCode, text)))),
			MediaType: mediaType,
		}, nil
	}

	return &ports.StreamResult{
		Body:      newMetricsReader(resp.Body, framing, routerName, start, logger),
		MediaType: mediaType,
	}, nil
}

// metricsReader wraps the upstream response body, forwarding bytes
// unchanged while tracking time-to-first-byte, chunk count and total
// bytes, and converting a read error mid-stream into a trailing framed
// error chunk instead of silently truncating the response.
type metricsReader struct {
	upstream     io.ReadCloser
	framing      Framing
	routerName   string
	start        time.Time
	logger       *slog.Logger
	firstByteAt  time.Time
	chunks       int
	bytes        int64
	trailer      *bytes.Reader
	trailerDone  bool
	sawFirstByte bool
}

func newMetricsReader(upstream io.ReadCloser, framing Framing, routerName string, start time.Time, logger *slog.Logger) *metricsReader {
	return &metricsReader{upstream: upstream, framing: framing, routerName: routerName, start: start, logger: logger}
}

func (r *metricsReader) Read(p []byte) (int, error) {
	if r.trailer != nil {
		n, err := r.trailer.Read(p)
		if err == io.EOF {
			r.trailerDone = true
		}
		return n, err
	}

	n, err := r.upstream.Read(p)
	if n > 0 {
		if !r.sawFirstByte {
			r.sawFirstByte = true
			r.firstByteAt = time.Now()
		}
		r.chunks++
		r.bytes += int64(n)
	}

	if err != nil && err != io.EOF {
		r.logger.Warn("mid-stream transport error", "router", r.routerName, "bytes_sent", r.bytes, "error", err)
		r.trailer = bytes.NewReader(frameError(r.framing, err.Error()))
		tn, terr := r.trailer.Read(p[n:])
		if terr == io.EOF {
			r.trailerDone = true
		}
		return n + tn, nil
	}

	if err == io.EOF {
		r.logger.Debug("stream complete", "router", r.routerName,
			"ttfb_ms", r.firstByteAt.Sub(r.start).Milliseconds(),
			"chunks", r.chunks, "bytes", r.bytes,
			"total_ms", time.Since(r.start).Milliseconds())
	}
	return n, err
}

func (r *metricsReader) Close() error {
	return r.upstream.Close()
}

func frameError(framing Framing, text string) []byte {
	payload, _ := json.Marshal(map[string]string{"error": text})
	switch framing {
	case FramingSSE:
		return []byte(fmt.Sprintf("data: %s\n\n", payload))
	default:
		return append(payload, '\n')
	}
}

// ScanSSE splits an SSE byte stream on blank-line-terminated events,
// stripping the leading "data: " prefix, for callers (the OpenAI SDK
// fallback path) that need individual JSON payloads rather than raw bytes.
func ScanSSE(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(scanSSEEvents)
	return scanner
}

func scanSSEEvents(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if idx := bytes.Index(data, []byte("\n\n")); idx >= 0 {
		return idx + 2, bytes.TrimPrefix(bytes.TrimSpace(data[:idx]), []byte("data: ")), nil
	}
	if atEOF && len(data) > 0 {
		return len(data), bytes.TrimPrefix(bytes.TrimSpace(data), []byte("data: ")), nil
	}
	return 0, nil, nil
}
