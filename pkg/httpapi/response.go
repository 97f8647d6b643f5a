package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/dmitrymomot/rollout/pkg/feature"
	"github.com/dmitrymomot/rollout/pkg/identity"
	"github.com/dmitrymomot/rollout/pkg/metrics"
	"github.com/dmitrymomot/rollout/pkg/rollout"
)

// maxBodySize caps request bodies.
const maxBodySize = 1 << 20

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var (
	errUnsupportedMediaType = errors.New("content type must be application/json")
	errBadBody              = errors.New("malformed request body")
	errBadEventType         = errors.New("unknown event type")
	errBadOutcome           = errors.New("kind must be success, error or latency")
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func ok(w http.ResponseWriter, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, Meta: meta})
}

// fail maps domain errors to status codes.
func fail(w http.ResponseWriter, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, feature.ErrUnknownFlag):
		status, code = http.StatusNotFound, "unknown_flag"
	case errors.Is(err, rollout.ErrUnknownVariant):
		status, code = http.StatusNotFound, "unknown_variant"
	case errors.Is(err, feature.ErrInvalidFlagValue):
		status, code = http.StatusUnprocessableEntity, "invalid_flag_value"
	case errors.Is(err, identity.ErrNoIdentity):
		status, code = http.StatusBadRequest, "missing_identity"
	case errors.Is(err, metrics.ErrBufferFull), errors.Is(err, metrics.ErrSinkClosed):
		status, code = http.StatusServiceUnavailable, "sink_unavailable"
	case errors.Is(err, errUnsupportedMediaType):
		status, code = http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, errBadBody), errors.Is(err, errBadEventType), errors.Is(err, errBadOutcome):
		status, code = http.StatusBadRequest, "bad_request"
	}
	writeJSON(w, status, Envelope{Error: &ErrorDetail{Code: code, Message: err.Error()}})
}

// decodeJSON reads one JSON object from the body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errUnsupportedMediaType
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadBody, fmt.Errorf("decode: %w", err))
	}
	return nil
}
