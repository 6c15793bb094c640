package middlewares

import (
	"context"
	"net/http"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/gin-gonic/gin"
)

// Capability is a named action a role may perform. Routes declare the
// capability they need; the role policy decides who gets it.
type Capability string

const (
	CapManageOrganizations Capability = "manage_organizations"
	CapManageUsers         Capability = "manage_users"
	CapManageVendors       Capability = "manage_vendors"
	CapManagePlants        Capability = "manage_plants"
	CapManageWorkOrders    Capability = "manage_work_orders"
	CapManageAlerts        Capability = "manage_alerts"
	CapTriggerSync         Capability = "trigger_sync"
	CapViewDashboard       Capability = "view_dashboard"
	CapViewHistories       Capability = "view_histories"
)

// rolePolicy maps roles to their capabilities. Admins get everything;
// operators run the day-to-day of their own org; auditors are read-only and
// hold no write capability at all.
var rolePolicy = map[models.UserRole]map[Capability]bool{
	models.UserRoleAdmin: {
		CapManageOrganizations: true,
		CapManageUsers:         true,
		CapManageVendors:       true,
		CapManagePlants:        true,
		CapManageWorkOrders:    true,
		CapManageAlerts:        true,
		CapTriggerSync:         true,
		CapViewDashboard:       true,
		CapViewHistories:       true,
	},
	models.UserRoleOperator: {
		CapManagePlants:     true,
		CapManageWorkOrders: true,
		CapManageAlerts:     true,
		CapTriggerSync:      true,
		CapViewDashboard:    true,
		CapViewHistories:    true,
	},
	models.UserRoleAuditor: {
		CapViewDashboard: true,
		CapViewHistories: true,
	},
}

func HasCapability(ctx context.Context, capability Capability) bool {
	role, ok := utils.GetUserRoleFromContext(ctx)
	if !ok {
		return false
	}
	return rolePolicy[models.UserRole(role)][capability]
}

// RequireAuth rejects requests that carry no resolved session.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireCapability gates a route on the caller's role policy.
func RequireCapability(capability Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		if !HasCapability(c.Request.Context(), capability) {
			c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ReadOnlyForAuditors lets auditors through on GET and blocks their writes.
// Applied to resource groups auditors may inspect but never modify.
func ReadOnlyForAuditors() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAuditor, _ := utils.GetIsAuditorFromContext(c.Request.Context())
		if isAuditor && c.Request.Method != http.MethodGet {
			c.JSON(http.StatusForbidden, gin.H{"error": "auditors have read-only access"})
			c.Abort()
			return
		}
		c.Next()
	}
}
