package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/jobhive/jobhive/pkg/errors"
)

// retryAfterSeconds is advertised to clients when a retryable storage error is returned.
const retryAfterSeconds = "1"

// Response defines the base API payload.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// ErrorInfo holds error details to send to clients.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

// Meta describes pagination metadata.
type Meta struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	Total      int `json:"total,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
}

// NewMeta builds pagination metadata, computing the page count.
func NewMeta(page, perPage int, total int64) *Meta {
	meta := &Meta{Page: page, PerPage: perPage, Total: int(total)}
	if perPage > 0 {
		meta.TotalPages = int((total + int64(perPage) - 1) / int64(perPage))
	}
	return meta
}

// Success writes a JSON success response.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
	})
}

// SuccessWithMeta writes a JSON success response including metadata.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *Meta) {
	c.JSON(statusCode, Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// Error writes a JSON error response derived from an AppError.
func Error(c *gin.Context, err error) {
	if err == nil {
		err = appErrors.ErrInternalServer
	}

	appErr := appErrors.FromError(err)
	status := appErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if appErr.Retryable {
		c.Header("Retry-After", retryAfterSeconds)
	}

	c.JSON(status, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:      appErr.Code,
			Message:   appErr.Message,
			Retryable: appErr.Retryable,
		},
	})
}

// Abort writes the error response and stops the handler chain.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
