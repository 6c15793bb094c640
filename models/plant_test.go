package models

import (
	"context"
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

func bindingTestContext() context.Context {
	ctx := context.Background()
	ctx = utils.SetOrgIdInContext(ctx, "org-1")
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test Operator")
	return ctx
}

func TestDeletePlantRefusedWhileBoundToActiveWorkOrder(t *testing.T) {
	db := openBindingTestDB(t)

	workOrder := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusInProgress)
	plant := seedTestPlant(t, db, "org-1", "North Field")
	if err := attachPlantsTx(db, "org-1", workOrder, []int{plant.ID}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	err := deletePlantTx(db.WithContext(bindingTestContext()), plant)
	if err == nil {
		t.Fatal("expected delete of a bound plant to be refused")
	}
	if !errors.Is(err, utils.ErrorPermissionDenied) {
		t.Fatalf("expected ErrorPermissionDenied, got %v", err)
	}

	var count int64
	if err := db.Model(&Plant{}).Where("id = ?", plant.ID).Count(&count).Error; err != nil {
		t.Fatalf("count plants: %v", err)
	}
	if count != 1 {
		t.Fatal("expected the plant to survive the refused delete")
	}
}

// The guard holds no matter who asks; an admin context gets the same refusal.
func TestDeletePlantRefusedForAdmins(t *testing.T) {
	db := openBindingTestDB(t)

	workOrder := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusOpen)
	plant := seedTestPlant(t, db, "org-1", "North Field")
	if err := attachPlantsTx(db, "org-1", workOrder, []int{plant.ID}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	ctx := utils.SetIsAdminInContext(bindingTestContext(), true)
	if err := deletePlantTx(db.WithContext(ctx), plant); !errors.Is(err, utils.ErrorPermissionDenied) {
		t.Fatalf("expected ErrorPermissionDenied for admin delete, got %v", err)
	}
}

func TestDeletePlantAllowedOnceWorkOrderCloses(t *testing.T) {
	db := openBindingTestDB(t)

	workOrder := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusClosed)
	plant := seedTestPlant(t, db, "org-1", "North Field")
	if err := attachPlantsTx(db, "org-1", workOrder, []int{plant.ID}); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if err := deletePlantTx(db.WithContext(bindingTestContext()), plant); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var count int64
	if err := db.Model(&Plant{}).Where("id = ?", plant.ID).Count(&count).Error; err != nil {
		t.Fatalf("count plants: %v", err)
	}
	if count != 0 {
		t.Fatal("expected the plant to be gone")
	}

	var history History
	if err := db.Where("reference_id = ? AND action_type = ?", plant.ID, "DELETE").
		First(&history).Error; err != nil {
		t.Fatalf("load delete history: %v", err)
	}
	if history.OrgId != "org-1" {
		t.Fatalf("expected history row for org-1, got %q", history.OrgId)
	}
}
