package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
)

type errorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorResponse is the envelope of every failed request.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

// Responder maps errors onto HTTP responses.
type Responder struct {
	exposeInternal bool
	log            zerolog.Logger
}

// NewResponder creates a responder. With exposeInternal set, internal error
// text is included in the details of 500 responses.
func NewResponder(exposeInternal bool, log zerolog.Logger) *Responder {
	return &Responder{exposeInternal: exposeInternal, log: log}
}

// Error writes err using the status of its kind. Errors that are not
// *apperror.Error are treated as internal.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	requestID := chimw.GetReqID(r.Context())

	appErr, ok := apperror.As(err)
	if !ok || appErr.Kind == apperror.KindInternal {
		rs.log.Error().
			Err(err).
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")

		body := errorBody{Code: "INTERNAL_ERROR", Message: "internal server error", RequestID: requestID}
		if rs.exposeInternal {
			body.Details = map[string]interface{}{"error": err.Error()}
		}
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{Error: body})
		return
	}

	respondJSON(w, appErr.Status(), ErrorResponse{Error: errorBody{
		Code:      appErr.Code,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	}})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

var errBodyTooLarge = apperror.New(apperror.KindValidation, "BODY_TOO_LARGE", "request body too large")

// decodeJSON reads a single JSON document of at most limit bytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst interface{}) error {
	body := http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return errBodyTooLarge.WithDetail("limit", limit)
		case errors.Is(err, io.EOF):
			return apperror.Validation("request body is required")
		default:
			return apperror.Validation("invalid request body")
		}
	}
	return nil
}
