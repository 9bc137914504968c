package observability

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLoggerLevels(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "debug", level: "debug"},
		{name: "info", level: "info"},
		{name: "warn upper", level: "WARN"},
		{name: "empty defaults to info", level: ""},
		{name: "padded", level: "  error  "},
		{name: "invalid", level: "loud", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			logger, err := NewLogger(tc.level)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("NewLogger(%q) = nil error, want error", tc.level)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewLogger(%q) error = %v", tc.level, err)
			}
			if logger == nil {
				t.Fatal("NewLogger() returned nil logger")
			}
		})
	}
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := WithCorrelationID(context.Background(), "corr-1")

	got, ok := CorrelationIDFromContext(ctx)
	if !ok || got != "corr-1" {
		t.Fatalf("CorrelationIDFromContext() = (%q, %v), want (corr-1, true)", got, ok)
	}

	if _, ok := CorrelationIDFromContext(context.Background()); ok {
		t.Fatal("correlation id found on an empty context")
	}
}

func TestWithCorrelationIDIgnoresBlank(t *testing.T) {
	t.Parallel()

	ctx := WithCorrelationID(context.Background(), "   ")
	if _, ok := CorrelationIDFromContext(ctx); ok {
		t.Fatal("blank correlation id stored on context")
	}
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	base := zap.NewNop()

	if got := ContextLogger(base, context.Background()); got != base {
		t.Fatal("logger changed for a context without a correlation id")
	}

	ctx := WithCorrelationID(context.Background(), "corr-2")
	if got := ContextLogger(base, ctx); got == base {
		t.Fatal("logger not enriched for a context with a correlation id")
	}

	if got := ContextLogger(nil, ctx); got != nil {
		t.Fatal("nil logger not passed through")
	}
}
