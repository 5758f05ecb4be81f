package logger

import (
	"log/slog"

	"github.com/thushan/ollabridge/theme"
)

// LogContext carries two argument lists for StyledLogger's *WithContext
// methods: UserArgs go on the first record. When DetailedArgs is non-empty
// a second record is logged carrying endpoint_name, UserArgs and
// DetailedArgs; every handler (terminal and file alike) receives both
// records, since no handler filters on the detailed context marker.
type LogContext struct {
	UserArgs     []any
	DetailedArgs []any
}

// StyledLogger is a theme-aware facade over *slog.Logger. Two
// implementations exist: PrettyStyledLogger, which colours values with
// pterm styles, and PlainStyledLogger, which emits the same messages
// without ANSI codes.
type StyledLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	InfoWithCount(msg string, count int, args ...any)
	InfoWithEndpoint(msg string, endpoint string, args ...any)
	WarnWithEndpoint(msg string, endpoint string, args ...any)
	ErrorWithEndpoint(msg string, endpoint string, args ...any)
	InfoWithNumbers(msg string, numbers ...int64)

	InfoWithContext(msg string, endpoint string, ctx LogContext)
	WarnWithContext(msg string, endpoint string, ctx LogContext)
	ErrorWithContext(msg string, endpoint string, ctx LogContext)

	// ProbeUp/ProbeDown report C9's local-daemon liveness transitions.
	ProbeUp(name string)
	ProbeDown(name string, reason string)

	GetUnderlying() *slog.Logger
	WithRequestID(requestID string) StyledLogger
	WithAttrs(attrs ...slog.Attr) StyledLogger
	With(args ...any) StyledLogger
}

// NewWithTheme creates both a regular logger and a styled logger sharing
// the same handlers, picking the pretty implementation when cfg.PrettyLogs
// is set and the plain one otherwise.
func NewWithTheme(cfg *Config) (*slog.Logger, StyledLogger, func(), error) {
	base, cleanup, err := New(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	var styled StyledLogger
	if cfg.PrettyLogs {
		styled = NewPrettyStyledLogger(base, theme.GetTheme(cfg.Theme))
	} else {
		styled = NewPlainStyledLogger(base)
	}

	return base, styled, cleanup, nil
}

func toInterfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
