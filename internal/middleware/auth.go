package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jobhive/jobhive/internal/auditctx"
	iauth "github.com/jobhive/jobhive/internal/auth"
	"github.com/jobhive/jobhive/pkg/errors"
	"github.com/jobhive/jobhive/pkg/response"
)

const (
	CtxClaimsKey   = "authClaims"
	CtxUserIDKey   = "userID"
	CtxRoleHintKey = "roleHint"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, errors.ErrUnauthorized)
			return
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.UserID)
		c.Set(CtxRoleHintKey, claims.Role)

		ctx := auditctx.WithActor(c.Request.Context(), auditctx.Actor{
			UserID:    claims.UserID,
			Email:     claims.Email,
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
