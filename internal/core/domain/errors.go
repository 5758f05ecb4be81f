package domain

import (
	"fmt"
	"time"
)

// NotFoundError reports that a requested model string did not resolve to
// any configured group. Reported to the client as HTTP 404.
type NotFoundError struct {
	Model string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %q does not resolve to any configured backend", e.Model)
}

// ClientInitError reports that the client pool could not produce a usable
// client for an endpoint. Reported as HTTP 500.
type ClientInitError struct {
	Err     error
	BaseURL string
}

func (e *ClientInitError) Error() string {
	return fmt.Sprintf("failed to initialise client for %s: %v", e.BaseURL, e.Err)
}

func (e *ClientInitError) Unwrap() error { return e.Err }

// UpstreamError reports a non-2xx response received before any bytes were
// streamed to the caller. It is reported to the client with the same
// status code, and contributes to failover.
type UpstreamError struct {
	Text       string
	RouterName string
	StatusCode int
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned HTTP %d: %s", e.RouterName, e.StatusCode, truncate(e.Text, 500))
}

// TransportError reports a network failure before the first byte was
// produced. It contributes to failover; if every candidate fails this way
// the last TransportError is reported as HTTP 500.
type TransportError struct {
	Err        error
	RouterName string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error calling %s: %v", e.RouterName, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MidStreamError reports a network failure after streaming has already
// begun. It is never propagated as a Go error to the dispatcher; the
// streaming primitive converts it into a framed error chunk and closes the
// stream cleanly (spec §7).
type MidStreamError struct {
	Err        error
	RouterName string
	BytesSent  int64
}

func (e *MidStreamError) Error() string {
	return fmt.Sprintf("mid-stream error from %s after %d bytes: %v", e.RouterName, e.BytesSent, e.Err)
}

func (e *MidStreamError) Unwrap() error { return e.Err }

// DecodeError reports that an inbound request body could not be parsed,
// even with lossy UTF-8 replacement. Reported as HTTP 400.
type DecodeError struct {
	Err    error
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode request: %s: %v", e.Reason, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DispatchError wraps the final error carried out of the failover loop,
// recording which candidates were tried so it can be logged without
// re-deriving the attempt list.
type DispatchError struct {
	Err           error
	Model         string
	Attempted     []string
	TotalDuration time.Duration
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed for %q after trying %v (%s): %v", e.Model, e.Attempted, e.TotalDuration, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
