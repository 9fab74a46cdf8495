package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"claim-comments/internal/domain"
	"claim-comments/internal/pkg/i18n"
)

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

var kindStatus = map[domain.ErrorKind]int{
	domain.KindValidation:     fiber.StatusBadRequest,
	domain.KindResolution:     fiber.StatusBadGateway,
	domain.KindAuthentication: fiber.StatusForbidden,
	domain.KindCapacity:       fiber.StatusServiceUnavailable,
	domain.KindStorage:        fiber.StatusInternalServerError,
	domain.KindNotFound:       fiber.StatusNotFound,
	domain.KindUnauthorized:   fiber.StatusUnauthorized,
}

// ErrorHandler renders errors from the plain HTTP routes. JSON-RPC errors
// are rendered by the RPC handler itself.
func ErrorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := domain.CodeInternal
	detail := ""

	var fe *fiber.Error
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		code = domain.CodeOf(de)
		if s, ok := kindStatus[de.Kind]; ok {
			status = s
		}
		detail = de.Message
	case errors.As(err, &fe):
		status = fe.Code
		detail = fe.Message
		switch status {
		case fiber.StatusBadRequest:
			code = domain.CodeInvalidRequest
		case fiber.StatusUnauthorized, fiber.StatusForbidden:
			code = domain.CodeUnauthorized
		case fiber.StatusNotFound, fiber.StatusMethodNotAllowed:
			code = domain.CodeNotFound
		}
	}

	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}

	return c.Status(status).JSON(ErrorResponse{
		Code:      code,
		Message:   i18n.Translate(Locale(c), code),
		Detail:    detail,
		RequestID: RequestID(c),
	})
}

func BadRequest(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusBadRequest, message)
}

func Unauthorized(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

func Forbidden(message string) *fiber.Error {
	return fiber.NewError(fiber.StatusForbidden, message)
}

// Locale negotiates the response language from Accept-Language.
func Locale(c *fiber.Ctx) string {
	return i18n.Negotiate(c.Get(fiber.HeaderAcceptLanguage))
}
