package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/logger"
	"github.com/jobhive/jobhive/pkg/response"
)

// DefaultContentSecurityPolicy restricts resources to same origin.
const DefaultContentSecurityPolicy = "default-src 'self'"

// SecurityHeaders applies hardening headers. When production is set, plain HTTP
// requests are redirected and HSTS is always sent.
func SecurityHeaders(production bool) gin.HandlerFunc {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ContentSecurityPolicy: DefaultContentSecurityPolicy,
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=()",
		STSSeconds:            31536000,
		STSIncludeSubdomains:  true,
		ForceSTSHeader:        production,
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})

	return func(c *gin.Context) {
		if err := sm.Process(c.Writer, c.Request); err != nil {
			// Redirects and bad-host rejections are written by Process itself.
			if c.Writer.Written() {
				c.Abort()
				return
			}
			logger.WithModule("http").Warn("secure headers blocked request",
				zap.String("path", c.Request.URL.Path),
				zap.Error(err),
			)
			response.Abort(c, errors.ErrBadRequest)
			return
		}
		c.Next()
	}
}
