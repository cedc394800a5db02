package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/trustscore/trustscored/internal/metrics"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	return env
}

func TestWriteErrorValidation(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	reg := metrics.New()

	WriteError(rec, req, NewValidationError("bad input"), reg)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("got status %d, want 400", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != "ValidationError" {
		t.Errorf("got code %q, want ValidationError", env.Code)
	}
	if env.RequestID == "" {
		t.Error("expected a non-empty request id")
	}
	if got := reg.ErrorStats().ByKind["ValidationError"]; got != 1 {
		t.Errorf("got ValidationError count %d, want 1", got)
	}
}

func TestWriteErrorCooldownIsConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, NewCooldownError("already rated"), nil)

	if rec.Code != http.StatusConflict {
		t.Errorf("got status %d, want 409", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != "RateLimitError" {
		t.Errorf("got code %q, want RateLimitError", env.Code)
	}
}

func TestWriteErrorRateLimitIsTooManyRequests(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, NewRateLimitError("slow down"), nil)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("got status %d, want 429", rec.Code)
	}
}

func TestWriteErrorUnknownBecomesInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, errUnrecognised{}, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env.Code != "InternalError" {
		t.Errorf("got code %q, want InternalError", env.Code)
	}
}

type errUnrecognised struct{}

func (errUnrecognised) Error() string { return "boom" }
