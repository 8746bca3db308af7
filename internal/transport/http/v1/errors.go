package v1

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/xiaot623/pairtalk/internal/domain"
)

var statusByCode = map[string]int{
	domain.CodeMissingRoster:            http.StatusConflict,
	domain.CodeInsufficientParticipants: http.StatusUnprocessableEntity,
	domain.CodeDuplicateParticipant:     http.StatusUnprocessableEntity,
	domain.CodePairKeyConflict:          http.StatusUnprocessableEntity,
	domain.CodeUnassignedParticipant:    http.StatusNotFound,
	domain.CodeMessageTooLong:           http.StatusUnprocessableEntity,
	domain.CodeEmptyMessage:             http.StatusBadRequest,
	domain.CodeNoTranscript:             http.StatusNotFound,
	domain.CodeSessionNotFound:          http.StatusNotFound,
	domain.CodePairNotFound:             http.StatusNotFound,
	domain.CodeExportNotFound:           http.StatusNotFound,
	domain.CodeUnsupportedLanguage:      http.StatusBadRequest,
	domain.CodeStorageUnavailable:       http.StatusServiceUnavailable,
}

// NewErrorHandler returns an echo.HTTPErrorHandler that maps domain errors to
// status codes and a stable "code" field.
func NewErrorHandler(v *Validator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		status := http.StatusInternalServerError
		body := echo.Map{"error": http.StatusText(http.StatusInternalServerError)}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			status = origErr.Code
			body = echo.Map{"error": origErr.Message}
		case validator.ValidationErrors:
			status = http.StatusBadRequest
			body = echo.Map{"error": "validation failed", "code": "invalid_request", "fields": v.Fields(origErr)}
		default:
			if code := domain.ErrorCode(err); code != "" {
				status = statusByCode[code]
				body = echo.Map{"error": err.Error(), "code": code}
				var se *domain.StorageError
				if errors.As(err, &se) {
					body["retryable"] = se.Retryable()
					c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
				}
				break
			}
			c.Logger().Errorf("%s %s: %+v", c.Request().Method, c.Path(), err)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			c.Logger().Error(err)
		}
	}
}
