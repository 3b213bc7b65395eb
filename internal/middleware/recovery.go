package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/response"
)

// Recovery converts panics into a 500 response and logs the error.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithModule("http").Error("panic",
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", r),
					zap.Stack("stack"),
				)
				response.Abort(c, errors.ErrInternalServer)
			}
		}()
		c.Next()
	}
}

// NotFoundHandler returns a JSON 404 response for unknown routes.
func NotFoundHandler(c *gin.Context) {
	response.Error(c, errors.NewNotFound(fmt.Sprintf("route %s not found", c.Request.URL.Path)))
}
