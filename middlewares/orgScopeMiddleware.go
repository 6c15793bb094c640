package middlewares

import (
	"strings"

	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/gin-gonic/gin"
)

// OrgScopeMiddleware lets admins and auditors act on a specific org by
// passing org_id. Operators are pinned to their own org and the override
// is ignored for them.
func OrgScopeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgId := strings.TrimSpace(c.Query("org_id"))
		if orgId == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		isAdmin, _ := utils.GetIsAdminFromContext(ctx)
		isAuditor, _ := utils.GetIsAuditorFromContext(ctx)
		if !isAdmin && !isAuditor {
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(utils.SetOrgIdInContext(ctx, orgId))
		c.Next()
	}
}
