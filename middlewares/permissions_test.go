package middlewares

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

func roleCtx(role models.UserRole) context.Context {
	return utils.SetUserRoleInContext(context.Background(), string(role))
}

func TestHasCapability(t *testing.T) {
	tests := []struct {
		name       string
		role       models.UserRole
		capability Capability
		want       bool
	}{
		{"admin manages orgs", models.UserRoleAdmin, CapManageOrganizations, true},
		{"admin manages users", models.UserRoleAdmin, CapManageUsers, true},
		{"admin triggers sync", models.UserRoleAdmin, CapTriggerSync, true},
		{"operator manages plants", models.UserRoleOperator, CapManagePlants, true},
		{"operator manages work orders", models.UserRoleOperator, CapManageWorkOrders, true},
		{"operator triggers sync", models.UserRoleOperator, CapTriggerSync, true},
		{"operator cannot manage orgs", models.UserRoleOperator, CapManageOrganizations, false},
		{"operator cannot manage users", models.UserRoleOperator, CapManageUsers, false},
		{"operator cannot manage vendors", models.UserRoleOperator, CapManageVendors, false},
		{"auditor views dashboard", models.UserRoleAuditor, CapViewDashboard, true},
		{"auditor views histories", models.UserRoleAuditor, CapViewHistories, true},
		{"auditor cannot manage plants", models.UserRoleAuditor, CapManagePlants, false},
		{"auditor cannot trigger sync", models.UserRoleAuditor, CapTriggerSync, false},
		{"unknown role has nothing", models.UserRole("X"), CapViewDashboard, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasCapability(roleCtx(tt.role), tt.capability); got != tt.want {
				t.Errorf("HasCapability(%s, %s) = %v, want %v", tt.role, tt.capability, got, tt.want)
			}
		})
	}
}

func TestHasCapabilityWithoutRole(t *testing.T) {
	if HasCapability(context.Background(), CapViewDashboard) {
		t.Error("missing role should have no capabilities")
	}
}
