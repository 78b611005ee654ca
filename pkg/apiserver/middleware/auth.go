package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/caseflow/caseflow/pkg/auth"
)

const (
	ContextActorID   = "actor_id"
	ContextActorRole = "actor_role"
	ContextOrgID     = "actor_org"
)

// Auth validates the bearer token and exposes the actor's identity, role,
// and organization to handlers. Role gating beyond this lookup belongs to
// the FSM validator.
func Auth(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.SplitN(authorization, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextActorID, claims.Subject)
		c.Set(ContextActorRole, claims.Role)
		c.Set(ContextOrgID, claims.OrganizationID)
		c.Next()
	}
}
