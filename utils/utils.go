package utils

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"tripchat/apperror"
)

// GenerateRateLimitKey creates a unique key for rate limiting a user's sends
// into one channel.
func GenerateRateLimitKey(userID uint, channelID, path string) string {
	return fmt.Sprintf("rl:%d:%s:%s", userID, channelID, path)
}

// StatusForError maps an error kind to the HTTP status the API answers with.
// Unauthorized (admin action denied) and Forbidden (no channel access) stay
// distinct so clients can show "ask an admin" versus "you don't have this
// role".
func StatusForError(err error) int {
	switch apperror.CodeOf(err) {
	case apperror.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case apperror.CodeForbidden, apperror.CodeChannelArchived:
		return fiber.StatusForbidden
	case apperror.CodeNotFound:
		return fiber.StatusNotFound
	case apperror.CodeDuplicateName, apperror.CodeDuplicateSlug, apperror.CodeAlreadyAssigned:
		return fiber.StatusConflict
	case apperror.CodeInvalidRoleSet, apperror.CodeEmptyContent:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// AppErrorResponse answers with the error's mapped status, code, and message.
func AppErrorResponse(c *fiber.Ctx, err error) error {
	return c.Status(StatusForError(err)).JSON(fiber.Map{
		"success": false,
		"code":    apperror.CodeOf(err),
		"error":   err.Error(),
	})
}

// ErrorResponse creates a standardized error response.
func ErrorResponse(c *fiber.Ctx, status int, message string, err error) error {
	response := fiber.Map{
		"success": false,
		"error":   message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	return c.Status(status).JSON(response)
}

// SuccessResponse creates a standardized success response.
func SuccessResponse(data interface{}) fiber.Map {
	return fiber.Map{
		"success": true,
		"data":    data,
	}
}

// ParseUint safely parses a string to uint.
func ParseUint(s string) uint {
	i, _ := strconv.ParseUint(s, 10, 32)
	return uint(i)
}

// Pointer returns a pointer to the given value.
func Pointer[T any](v T) *T {
	return &v
}
