package api

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// AppError is the wire-level error shape returned by every endpoint.
type AppError struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

type ErrorResponse struct {
	Error *AppError `json:"error"`
}

func NewAppError(code string, status int, msg string) *AppError {
	return &AppError{Code: code, Status: status, Message: msg}
}

func UnauthorizedError(msg string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Status: 401, Message: msg}
}

func ForbiddenError(msg string) *AppError {
	return &AppError{Code: "FORBIDDEN", Status: 403, Message: msg}
}

// NotFoundError deliberately carries no resource detail beyond the id the
// caller already supplied, so a denied and an absent resource read the same.
func NotFoundError(id string) *AppError {
	return &AppError{Code: "NOT_FOUND", Status: 404, Message: "Task " + id + " not found"}
}

func ValidationError(msg string) *AppError {
	return &AppError{Code: "VALIDATION_FAILED", Status: 422, Message: msg}
}

func InternalError() *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Status: 500, Message: "Internal server error"}
}

// ErrorHandler is the central Fiber error handler: AppErrors pass through as
// structured JSON, everything else is logged and collapsed to a generic 500.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
	}

	code := fiber.StatusInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(ErrorResponse{
		Error: &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error"},
	})
}
