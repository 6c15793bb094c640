package middlewares

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/gin-gonic/gin"
)

// SessionMiddleware resolves the token header into a user session and puts
// the caller's identity and org scope into the request context. Requests
// without a token pass through; protected routes reject them downstream.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Request.Header.Get("token")
		if token == "" {
			// a validated JWT bearer may stand in for a session
			if claim := CtxValue(c.Request.Context()); claim != nil {
				user, err := models.GetUser(c.Request.Context(), claim.ID)
				if err != nil {
					c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
					c.Abort()
					return
				}
				c.Request = c.Request.WithContext(contextForUser(c.Request.Context(), user))
			}
			c.Next()
			return
		}
		username, exists, err := config.GetRedisValue("Token:" + token)
		if err != nil || !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		user, err := models.GetUserByUsername(c.Request.Context(), username)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		ctx := utils.SetTokenInContext(c.Request.Context(), token)
		c.Request = c.Request.WithContext(contextForUser(ctx, user))
		c.Next()
	}
}

func contextForUser(ctx context.Context, user *models.User) context.Context {
	ctx = utils.SetUsernameInContext(ctx, user.Username)
	ctx = utils.SetUserIdInContext(ctx, user.ID)
	ctx = utils.SetUserNameInContext(ctx, user.Name)
	ctx = utils.SetUserRoleInContext(ctx, string(user.Role))
	ctx = utils.SetOrgIdInContext(ctx, user.OrgId)
	ctx = utils.SetIsAdminInContext(ctx, user.Role == models.UserRoleAdmin)
	ctx = utils.SetIsAuditorInContext(ctx, user.Role == models.UserRoleAuditor)
	return ctx
}
