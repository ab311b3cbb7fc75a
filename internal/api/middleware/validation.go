package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
)

// maxBodyBytes caps request bodies accepted by ValidateJSON.
const maxBodyBytes = 1 << 20

// Validator interface for types that can validate themselves.
type Validator interface {
	Validate() error
}

// ValidationError represents a field validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationResponse represents the error response format.
type ValidationResponse struct {
	Error  string            `json:"error"`
	Code   int               `json:"code"`
	Errors []ValidationError `json:"errors"`
}

// DecodeOption adjusts how ValidateJSON decodes a body.
type DecodeOption func(*decodeConfig)

type decodeConfig struct {
	allowUnknownFields bool
}

// AllowUnknownFields makes ValidateJSON ignore fields T does not declare.
// Unknown fields are rejected by default.
func AllowUnknownFields() DecodeOption {
	return func(c *decodeConfig) {
		c.allowUnknownFields = true
	}
}

// ValidateJSON decodes and validates a JSON request body before calling next.
// T must implement the Validator interface; pointer types are allocated by the decoder.
func ValidateJSON[T Validator](next func(w http.ResponseWriter, r *http.Request, body T), opts ...DecodeOption) http.Handler {
	var cfg decodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := r.Header.Get("Content-Type")
		if !strings.Contains(contentType, "application/json") {
			writeValidationError(w, []ValidationError{
				{Field: "content-type", Message: "Content-Type must be application/json"},
			})
			return
		}

		var body T
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if !cfg.allowUnknownFields {
			decoder.DisallowUnknownFields()
		}

		if err := decoder.Decode(&body); err != nil {
			writeValidationError(w, []ValidationError{decodeError(err)})
			return
		}

		if isNil(body) {
			writeValidationError(w, []ValidationError{
				{Field: "body", Message: "request body is required"},
			})
			return
		}

		if err := body.Validate(); err != nil {
			writeValidationError(w, parseValidationError(err))
			return
		}

		next(w, r, body)
	})
}

// decodeError classifies a JSON decoding failure.
func decodeError(err error) ValidationError {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError

	switch {
	case errors.Is(err, io.EOF):
		return ValidationError{Field: "body", Message: "request body is required"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return ValidationError{Field: "json", Message: "invalid JSON format"}
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return ValidationError{Field: field, Message: "must be of type " + typeErr.Type.String()}
	case errors.As(err, &maxErr):
		return ValidationError{Field: "body", Message: "request body too large"}
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return ValidationError{Field: extractFieldFromError(err.Error()), Message: "unknown field"}
	default:
		return ValidationError{Field: "json", Message: "failed to parse JSON: " + err.Error()}
	}
}

// parseValidationError converts a "field: message" error into a ValidationError slice.
func parseValidationError(err error) []ValidationError {
	field, message, found := strings.Cut(err.Error(), ":")
	if !found {
		return []ValidationError{{Field: "general", Message: err.Error()}}
	}
	return []ValidationError{{
		Field:   strings.TrimSpace(field),
		Message: strings.TrimSpace(message),
	}}
}

// extractFieldFromError extracts field name from JSON unknown field error.
func extractFieldFromError(errorMsg string) string {
	// Example: "json: unknown field \"invalidField\""
	start := strings.Index(errorMsg, `"`)
	if start != -1 {
		end := strings.Index(errorMsg[start+1:], `"`)
		if end != -1 {
			return errorMsg[start+1 : start+1+end]
		}
	}
	return "unknown"
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}

// writeValidationError writes a 422 Unprocessable Entity response with validation errors.
func writeValidationError(w http.ResponseWriter, fields []ValidationError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)

	response := ValidationResponse{
		Error:  "validation failed",
		Code:   http.StatusUnprocessableEntity,
		Errors: fields,
	}

	_ = json.NewEncoder(w).Encode(response)
}
