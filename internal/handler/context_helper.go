package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-out-api/internal/middleware"
	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/service"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
	"github.com/noah-isme/hostel-out-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, ok := middleware.Claims(c)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext builds the service actor for the caller, writing a 401
// when the request carries no claims.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.Actor{
		ID:        claims.UserID,
		Role:      claims.Role,
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}, true
}

func anonymousActor(c *gin.Context) service.Actor {
	return service.Actor{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

func requiredBoolQuery(c *gin.Context, key string) (bool, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return false, appErrors.Clone(appErrors.ErrValidation, key+" query parameter is required")
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, appErrors.Clone(appErrors.ErrValidation, key+" must be true or false")
	}
	return v, nil
}

func invalidPayload(err error, message string) error {
	return appErrors.Invalid(err, message)
}
