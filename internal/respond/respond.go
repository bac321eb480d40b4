// Package respond writes the JSON error envelope shared by handlers and
// middleware.
package respond

import (
	"github.com/gin-gonic/gin"
)

// ErrorBody is the error envelope every failing request receives.
type ErrorBody struct {
	StatusCode int               `json:"statusCode"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Errors     map[string]string `json:"errors,omitempty"`
	Detail     string            `json:"detail,omitempty"`
}

// Error writes an error response and stops the handler chain.
func Error(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		StatusCode: status,
		Error:      code,
		Message:    message,
	})
}

// Validation reports field-level input problems.
func Validation(c *gin.Context, status int, fields map[string]string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		StatusCode: status,
		Error:      "validation_failed",
		Message:    "request validation failed",
		Errors:     fields,
	})
}

// Internal hides err from the caller unless expose is set.
func Internal(c *gin.Context, status int, err error, expose bool) {
	body := ErrorBody{
		StatusCode: status,
		Error:      "internal_server_error",
		Message:    "Internal server error",
	}
	if expose && err != nil {
		body.Detail = err.Error()
	}
	c.AbortWithStatusJSON(status, body)
}
