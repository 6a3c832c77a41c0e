package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/shrutiigupta24/institute-api/internal/middleware"
	"github.com/shrutiigupta24/institute-api/internal/models"
	"github.com/shrutiigupta24/institute-api/internal/policy"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func actorFromContext(c *gin.Context) policy.Actor {
	return policy.ActorFromClaims(claimsFromContext(c))
}
