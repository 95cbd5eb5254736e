package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

// Self is accepted by RBAC to let a caller through when the route's id
// parameter names the caller.
const Self = "SELF"

// RBAC enforces role-based access control for routes. Self matches c.Param("id").
func RBAC(allowed ...string) gin.HandlerFunc {
	return RBACParam("id", allowed...)
}

// RBACParam is RBAC with Self compared against the named path parameter.
func RBACParam(param string, allowed ...string) gin.HandlerFunc {
	allowSelf := false
	allowedRoles := make(map[models.UserRole]struct{})
	for _, a := range allowed {
		if a == Self {
			allowSelf = true
			continue
		}
		allowedRoles[models.UserRole(a)] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		if _, ok := allowedRoles[claims.Role]; ok {
			c.Next()
			return
		}

		if allowSelf {
			if targetID := c.Param(param); targetID != "" && targetID == claims.UserID {
				c.Next()
				return
			}
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}
