package utils

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	errBackend := errors.New("backend down")
	failing := func(context.Context) error { return errBackend }
	succeeding := func(context.Context) error { return nil }

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "test",
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
	})
	cb.now = func() time.Time { return now }
	ctx := context.Background()

	if err := cb.Call(ctx, failing); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after one failure, got %s", cb.GetState())
	}

	_ = cb.Call(ctx, failing)
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after threshold, got %s", cb.GetState())
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("open breaker must not invoke the call")
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Call(ctx, failing); !errors.Is(err, errBackend) {
		t.Fatalf("expected trial call to run, got %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected failed trial to reopen, got %s", cb.GetState())
	}

	now = now.Add(2 * time.Minute)
	if err := cb.Call(ctx, succeeding); err != nil {
		t.Fatalf("expected trial call to succeed, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected closed after successful trial, got %s", cb.GetState())
	}

	m := cb.GetMetrics()
	if m.TotalRequests != 4 || m.TotalFailures != 3 || m.TotalSuccesses != 1 || m.TotalRejected != 1 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestCircuitBreakerCallTimeout(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "timeout", CallTimeout: 10 * time.Millisecond})

	err := cb.Call(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestTraceIDFromContextWithoutSpan(t *testing.T) {
	if id := TraceIDFromContext(context.Background()); id != "" {
		t.Errorf("expected empty trace id, got %q", id)
	}
}
