package web

// errors.go renders every handler error the same way:
//
//  1. Handler encounters an error and calls respondError(w, r, err)
//  2. The status comes from statusFor, the message from userMessage
//  3. The technical error is logged with the request ID
//  4. The client gets {error, message, action, code}
//
// Web-only codes:
//
//	WEB001 - Product not found        (404)
//	WEB002 - Attribute already exists (409)
//	WEB003 - Attribute or value not found (404)
//	WEB004 - Invalid request body      (400)
//	WEB005 - Rate limit exceeded       (429)
//
// Everything else is mapped by importer.MapError.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/importer"
	"github.com/JonMunkholm/catalog/internal/logging"
	"github.com/JonMunkholm/catalog/internal/repository"
	"github.com/JonMunkholm/catalog/internal/store"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errBadRequest marks malformed request bodies and parameters.
var errBadRequest = errors.New("invalid request")

var (
	productNotFound = importer.UserMessage{
		Message: "Product not found",
		Action:  "Check the product slug",
		Code:    "WEB001",
	}
	attributeExists = importer.UserMessage{
		Message: "An attribute with this name already exists",
		Action:  "Use the existing attribute or pick another name",
		Code:    "WEB002",
	}
	attributeNotFound = importer.UserMessage{
		Message: "Attribute or value not found",
		Action:  "Create the attribute and value first",
		Code:    "WEB003",
	}
	rateLimited = importer.UserMessage{
		Message: "Rate limit exceeded",
		Action:  "Wait a minute and try again",
		Code:    "WEB005",
	}
)

// badRequest wraps a decoding or validation problem for respondError.
func badRequest(err error) error {
	return errors.Join(errBadRequest, err)
}

// userMessage maps err to what the client sees.
func userMessage(err error) importer.UserMessage {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound):
		return productNotFound
	case errors.Is(err, repository.ErrAttributeExists):
		return attributeExists
	case errors.Is(err, repository.ErrAttributeNotFound), errors.Is(err, repository.ErrAttributeValueNotFound):
		return attributeNotFound
	case errors.Is(err, errBadRequest):
		return importer.UserMessage{
			Message: "Invalid request: " + describeInvalid(err),
			Action:  "Fix the request body and try again",
			Code:    "WEB004",
		}
	}
	return importer.MapError(err)
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, importer.ErrEmptyInput),
		errors.Is(err, importer.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, repository.ErrAttributeNotFound),
		errors.Is(err, repository.ErrAttributeValueNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrAttributeExists),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, importer.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, catalog.ErrDuplicateAttribute):
		return http.StatusUnprocessableEntity
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusServiceUnavailable
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid csv") || strings.Contains(msg, "invalid xlsx") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped JSON error.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := userMessage(err)

	log := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", args...)
	} else {
		log.Warn("request rejected", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "10")
	}
	respondErrorJSON(w, msg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg importer.UserMessage, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// describeInvalid names the failing fields of a validator error, or falls
// back to the decoding error text.
func describeInvalid(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field() + " " + fe.Tag()
		}
		return strings.Join(fields, ", ")
	}

	var inner []string
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if e != errBadRequest {
				inner = append(inner, e.Error())
			}
		}
	}
	if len(inner) == 0 {
		return err.Error()
	}
	return strings.Join(inner, "; ")
}
