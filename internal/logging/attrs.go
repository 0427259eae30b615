package logging

import (
	"context"
	"log/slog"
)

type Attr = slog.Attr

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error attaches err under the "error" key; a nil error is rendered
// explicitly so the field never silently disappears.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// DeliveryType tags a line with the delivery type (AP or PE).
func DeliveryType(t string) Attr { return slog.String(FieldDeliveryType, t) }

// DeliveryNumber tags a line with the delivery number within its type.
func DeliveryNumber(n int) Attr { return slog.Int(FieldDeliveryNumber, n) }

func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

// NewComponentLogger tags every line of logger with component. A nil logger
// becomes a no-op one.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

// WarnWithContext logs a warning that always carries event_type, error_hint
// and impact, filling defaults for the ones attrs does not set.
func WarnWithContext(logger *slog.Logger, msg, eventType string, attrs ...Attr) {
	if logger == nil {
		return
	}
	defaults := []Attr{
		String(FieldEventType, eventType),
		String(FieldErrorHint, "check the grd log for details"),
		String(FieldImpact, "delivery completed with warnings"),
	}
	args := make([]any, 0, len(attrs)+len(defaults))
	for _, a := range attrs {
		args = append(args, a)
	}
	for _, d := range defaults {
		if !hasKey(attrs, d.Key) {
			args = append(args, d)
		}
	}
	logger.Warn(msg, args...)
}

func hasKey(attrs []Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h noopHandler) WithGroup(string) slog.Handler { return h }
