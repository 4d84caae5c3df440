package apperror

import (
	"errors"
	"net/http"
)

// internalMessage replaces the text of unclassified errors, whose wrap
// chains can carry internal detail. Callers log the error itself.
const internalMessage = "Internal server error"

// ErrorResponse is the uniform body written for translated failures.
type ErrorResponse struct {
	Message string         `json:"message"`
	Type    string         `json:"type"`
	Data    map[string]any `json:"data"`
}

// Translate maps err to an HTTP status and response body. It is pure: it
// never retries, logs or mutates anything.
func Translate(err error) (int, ErrorResponse) {
	if err == nil {
		return http.StatusInternalServerError, ErrorResponse{
			Message: internalMessage,
			Type:    KindUnknown.String(),
			Data:    map[string]any{},
		}
	}

	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, ErrorResponse{
			Message: internalMessage,
			Type:    KindUnknown.String(),
			Data:    map[string]any{},
		}
	}

	resp := ErrorResponse{Message: e.Error(), Type: e.Kind.String(), Data: map[string]any{}}

	switch e.Kind {
	case KindModelValidation:
		for field, errs := range e.Fields {
			resp.Data[field] = errs
		}
		return http.StatusBadRequest, resp
	case KindNotFound:
		return http.StatusNotFound, resp
	case KindUniqueViolation:
		columns := e.Columns
		if columns == nil {
			columns = []string{}
		}
		resp.Data["columns"] = columns
		resp.Data["table"] = e.Table
		resp.Data["constraint"] = e.Constraint
		return http.StatusConflict, resp
	case KindNotNullViolation:
		resp.Data["column"] = e.Column
		resp.Data["table"] = e.Table
		return http.StatusBadRequest, resp
	case KindForeignKeyViolation:
		resp.Data["table"] = e.Table
		resp.Data["constraint"] = e.Constraint
		return http.StatusConflict, resp
	case KindCheckViolation:
		resp.Data["table"] = e.Table
		resp.Data["constraint"] = e.Constraint
		return http.StatusBadRequest, resp
	case KindInvalidData:
		return http.StatusBadRequest, resp
	case KindDatabase:
		return http.StatusInternalServerError, resp
	default:
		resp.Message = internalMessage
		return http.StatusInternalServerError, resp
	}
}
