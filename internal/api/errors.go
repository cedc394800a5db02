package api

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/trustscore/trustscored/internal/metrics"
)

// Kind is one of the error categories the spec's error handling design
// names, each mapped to a fixed HTTP status. The server never returns 406.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindAuth       Kind = "AuthError"
	KindCooldown   Kind = "RateLimitError" // 24h submission cooldown, surfaced as a 409 below
	KindRateLimit  Kind = "RateLimitError"
	KindDatabase   Kind = "DatabaseError"
	KindInternal   Kind = "InternalError"
)

// Error is a typed API error carrying the kind, a human message, and an
// optional wrapped cause (never serialised to the client).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func NewValidationError(msg string) *Error { return &Error{Kind: KindValidation, Message: msg} }
func NewAuthError(msg string) *Error       { return &Error{Kind: KindAuth, Message: msg} }
func NewDatabaseError(msg string, cause error) *Error {
	return &Error{Kind: KindDatabase, Message: msg, Cause: cause}
}
func NewInternalError(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// Cooldown errors (NewCooldownError) are distinguished from generic rate
// limiting (NewRateLimitError) only by HTTP status (409 vs 429); both report as
// RateLimitError per the envelope's fixed code enum, since the spec's
// error envelope code set has no distinct "Conflict" value.
type statusOverride struct {
	*Error
	status int
}

func NewCooldownError(msg string) error {
	return statusOverride{Error: &Error{Kind: KindCooldown, Message: msg}, status: http.StatusConflict}
}

func NewRateLimitError(msg string) error {
	return statusOverride{Error: &Error{Kind: KindRateLimit, Message: msg}, status: http.StatusTooManyRequests}
}

// envelope is the wire format for every failure response.
type envelope struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// WriteError converts any error into the JSON envelope and an appropriate
// HTTP status. Unrecognised errors become InternalError/500 with a fresh
// request id rather than leaking internal detail. reg may be nil (tests
// that don't care about error counters), in which case nothing is recorded.
func WriteError(w http.ResponseWriter, r *http.Request, err error, reg *metrics.Registry) {
	status := http.StatusInternalServerError
	kind := KindInternal
	message := "internal error"

	switch e := err.(type) {
	case statusOverride:
		status = e.status
		kind = e.Kind
		message = e.Message
	case *Error:
		kind = e.Kind
		message = e.Message
		switch e.Kind {
		case KindValidation:
			status = http.StatusBadRequest
		case KindAuth:
			status = http.StatusUnauthorized
		case KindDatabase:
			status = http.StatusInternalServerError
		case KindInternal:
			status = http.StatusInternalServerError
		}
	}

	if reg != nil {
		reg.APIErrors.WithLabelValues(string(kind)).Inc()
	}

	requestID := middleware.GetReqID(r.Context())
	if requestID == "" {
		requestID = newRequestID()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Error:     message,
		Code:      string(kind),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	})
}

func newRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
