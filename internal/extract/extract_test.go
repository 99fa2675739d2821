package extract

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestClientExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k1" {
			t.Errorf("auth header = %q", got)
		}
		var req extractRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sancion":{"monto":"USD 1000"}}`))
	}))
	defer srv.Close()

	out, err := NewClient(srv.URL, "k1", time.Second).Extract(context.Background(), "NOMBRE_AB12CD34 fue sancionado")
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(out) {
		t.Errorf("invalid JSON response: %s", out)
	}
}

func TestClientRetryableStatuses(t *testing.T) {
	for _, status := range []int{http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewClient(srv.URL, "", time.Second).Extract(context.Background(), "x")
		if !errors.Is(err, ErrOverloaded) {
			t.Errorf("status %d: err = %v, want ErrOverloaded", status, err)
		}
		srv.Close()
	}
}

func TestClientNonRetryableStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Extract(context.Background(), "x")
	if err == nil || errors.Is(err, ErrOverloaded) {
		t.Errorf("err = %v, want non-retryable failure", err)
	}
}

type flakyExtractor struct {
	calls    atomic.Int32
	failures int32
}

func (f *flakyExtractor) Extract(context.Context, string) (json.RawMessage, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, ErrOverloaded
	}
	return json.RawMessage(`{}`), nil
}

func TestWithRetryRecovers(t *testing.T) {
	inner := &flakyExtractor{failures: 2}
	ext := WithRetry(inner, 5, time.Millisecond, 10*time.Millisecond)

	if _, err := ext.Extract(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestWithRetryGivesUp(t *testing.T) {
	inner := &flakyExtractor{failures: 100}
	ext := WithRetry(inner, 3, time.Millisecond, 10*time.Millisecond)

	if _, err := ext.Extract(context.Background(), "x"); !errors.Is(err, ErrOverloaded) {
		t.Errorf("err = %v, want ErrOverloaded", err)
	}
	if got := inner.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

type hardFailExtractor struct{ calls atomic.Int32 }

func (h *hardFailExtractor) Extract(context.Context, string) (json.RawMessage, error) {
	h.calls.Add(1)
	return nil, errors.New("schema rejected")
}

func TestWithRetryDoesNotRetryHardErrors(t *testing.T) {
	inner := &hardFailExtractor{}
	ext := WithRetry(inner, 5, time.Millisecond, 10*time.Millisecond)

	if _, err := ext.Extract(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if got := inner.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestWithRetryHonorsContext(t *testing.T) {
	inner := &flakyExtractor{failures: 100}
	ext := WithRetry(inner, 5, time.Hour, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := ext.Extract(ctx, "x"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
}
