package utils

import "github.com/gofiber/fiber/v2"

// APIResponse is the envelope every endpoint answers with.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message"`
	Meta    interface{} `json:"meta,omitempty"`
	Details interface{} `json:"details,omitempty"`
	// RequestID is only filled on failures so operators can find the matching log line.
	RequestID string `json:"request_id,omitempty"`
}

// SendSuccess answers 200 with a message and payload.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus answers with a custom 2xx status, e.g. 201 for created resources.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	return write(c, status, APIResponse{Success: true, Data: data, Message: orDefault(message, "success")})
}

// OK answers 200 with list metadata such as pagination.
func OK(c *fiber.Ctx, data interface{}, message string, meta interface{}) error {
	return write(c, fiber.StatusOK, APIResponse{Success: true, Data: data, Message: orDefault(message, "success"), Meta: meta})
}

// SendError answers with an error status and message only.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail answers with an error status and optional field-level details.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	return write(c, status, APIResponse{Message: orDefault(message, "error"), Details: details, RequestID: requestID(c)})
}

// FailWithData answers with an error status that still carries a computed result,
// e.g. a questionnaire score whose notification could not be delivered.
func FailWithData(c *fiber.Ctx, status int, message string, data interface{}) error {
	return write(c, status, APIResponse{Data: data, Message: orDefault(message, "error"), RequestID: requestID(c)})
}

func write(c *fiber.Ctx, status int, body APIResponse) error {
	return c.Status(status).JSON(body)
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals("correlation_id").(string)
	return id
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
