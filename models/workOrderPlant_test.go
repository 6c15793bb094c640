package models

import (
	"fmt"
	"testing"

	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openBindingTestDB gives each test its own in-memory sqlite database with
// the plant and work order tables migrated.
func openBindingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Plant{}, &WorkOrder{}, &WorkOrderPlant{}, &History{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTestPlant(t *testing.T, db *gorm.DB, orgId string, name string) *Plant {
	t.Helper()

	plant := Plant{
		OrgId:      orgId,
		Name:       name,
		CapacityKw: decimal.Zero,
		IsActive:   utils.NewTrue(),
	}
	if err := db.Create(&plant).Error; err != nil {
		t.Fatalf("seed plant %s: %v", name, err)
	}
	return &plant
}

func seedTestWorkOrder(t *testing.T, db *gorm.DB, orgId string, number string, status WorkOrderStatus) *WorkOrder {
	t.Helper()

	workOrder := WorkOrder{
		OrgId:           orgId,
		SequenceNo:      1,
		WorkOrderNumber: number,
		Title:           "Inverter check " + number,
		Status:          status,
		Priority:        WorkOrderPriorityMedium,
	}
	if err := db.Create(&workOrder).Error; err != nil {
		t.Fatalf("seed work order %s: %v", number, err)
	}
	return &workOrder
}

func activeBindings(t *testing.T, db *gorm.DB, workOrderId int) []WorkOrderPlant {
	t.Helper()

	var bindings []WorkOrderPlant
	if err := db.Where("work_order_id = ? AND is_active = ?", workOrderId, true).
		Find(&bindings).Error; err != nil {
		t.Fatalf("load bindings: %v", err)
	}
	return bindings
}

func TestAttachPlantsRejectsForeignOrgPlant(t *testing.T) {
	db := openBindingTestDB(t)

	workOrder := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusOpen)
	ours := seedTestPlant(t, db, "org-1", "North Field")
	theirs := seedTestPlant(t, db, "org-2", "Foreign Field")

	err := attachPlantsTx(db, "org-1", workOrder, []int{ours.ID, theirs.ID})
	if err == nil {
		t.Fatal("expected error attaching a plant from another org")
	}

	if got := activeBindings(t, db, workOrder.ID); len(got) != 0 {
		t.Fatalf("expected no bindings after rejected attach, got %d", len(got))
	}
}

func TestAttachPlantsDeactivatesPriorBinding(t *testing.T) {
	db := openBindingTestDB(t)

	first := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusOpen)
	second := seedTestWorkOrder(t, db, "org-1", "WO-0002", WorkOrderStatusOpen)
	plant := seedTestPlant(t, db, "org-1", "North Field")

	if err := attachPlantsTx(db, "org-1", first, []int{plant.ID}); err != nil {
		t.Fatalf("attach to first work order: %v", err)
	}
	if err := attachPlantsTx(db, "org-1", second, []int{plant.ID}); err != nil {
		t.Fatalf("attach to second work order: %v", err)
	}

	if got := activeBindings(t, db, first.ID); len(got) != 0 {
		t.Fatalf("expected first work order's binding to be deactivated, got %d active", len(got))
	}
	got := activeBindings(t, db, second.ID)
	if len(got) != 1 || got[0].PlantId != plant.ID {
		t.Fatalf("expected one active binding on second work order, got %+v", got)
	}

	var detached WorkOrderPlant
	if err := db.Where("work_order_id = ? AND plant_id = ?", first.ID, plant.ID).
		First(&detached).Error; err != nil {
		t.Fatalf("load detached binding: %v", err)
	}
	if detached.DetachedAt == nil {
		t.Fatal("expected DetachedAt to be set on the deactivated binding")
	}
}

func TestAttachPlantsIsIdempotentPerWorkOrder(t *testing.T) {
	db := openBindingTestDB(t)

	workOrder := seedTestWorkOrder(t, db, "org-1", "WO-0001", WorkOrderStatusOpen)
	plant := seedTestPlant(t, db, "org-1", "North Field")

	if err := attachPlantsTx(db, "org-1", workOrder, []int{plant.ID, plant.ID}); err != nil {
		t.Fatalf("first attach: %v", err)
	}
	if err := attachPlantsTx(db, "org-1", workOrder, []int{plant.ID}); err != nil {
		t.Fatalf("repeat attach: %v", err)
	}

	if got := activeBindings(t, db, workOrder.ID); len(got) != 1 {
		t.Fatalf("expected a single active binding, got %d", len(got))
	}
}
