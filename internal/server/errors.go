package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
)

// Detail is one entry of the details array of a failed response.
type Detail struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

var (
	ErrUnauthorized   = apperr.New("unauthorized", apperr.ErrUnauthorized)
	ErrInvalidRequest = apperr.Invalid("body", "invalid_request")
	ErrRouteNotFound  = apperr.NotFound("route")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, body := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, body)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// mapError is the single place where domain errors become HTTP statuses.
func mapError(err error) (int, envelope) {
	if err == nil {
		return http.StatusInternalServerError, failure("internal server error")
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]Detail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, Detail{
				Field:   fe.Field(),
				Code:    fe.Tag(),
				Message: validationMessage(fe),
			})
		}
		return http.StatusBadRequest, failure("validation error", details...)
	}

	if isMalformedBody(err) {
		return http.StatusBadRequest, failure("validation error", Detail{Field: "body", Code: "invalid_request", Message: "malformed request body"})
	}

	if errors.Is(err, pagination.ErrInvalidPageToken) {
		return http.StatusBadRequest, failure("validation error", Detail{Field: "page_token", Code: pagination.ErrInvalidPageToken.Error()})
	}

	switch apperr.Kind(err) {
	case apperr.ErrValidation:
		var fe *apperr.FieldError
		if errors.As(err, &fe) {
			return http.StatusBadRequest, failure("validation error", Detail{Field: fe.Field, Code: fe.Code})
		}
		return http.StatusBadRequest, failure("validation error", Detail{Code: err.Error()})
	case apperr.ErrScopeViolation:
		var sv *apperr.ScopeViolationError
		if errors.As(err, &sv) {
			return http.StatusForbidden, failure(sv.Error(), Detail{Field: sv.Dimension, Code: "scope_violation", Message: sv.ValueID})
		}
		return http.StatusForbidden, failure("scope violation")
	case apperr.ErrNotFound:
		return http.StatusNotFound, failure(err.Error())
	case apperr.ErrForbidden:
		return http.StatusForbidden, failure(err.Error())
	case apperr.ErrDuplicateEntry, apperr.ErrConflict:
		return http.StatusConflict, failure(err.Error())
	case apperr.ErrUnauthorized:
		return http.StatusUnauthorized, failure("unauthorized")
	default:
		return http.StatusInternalServerError, failure("internal server error")
	}
}

func isMalformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// classifyErrorForLog feeds the request logger. Client errors are logged at
// info level, anything unclassified is an internal error.
func classifyErrorForLog(err error) (string, string) {
	status, _ := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		return "internal_error", "error"
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return "auth_error", "warn"
	default:
		return "client_error", "info"
	}
}
