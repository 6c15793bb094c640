package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkOrder struct {
	ID               int               `gorm:"primary_key" json:"id"`
	OrgId            string            `gorm:"index;not null" json:"org_id"`
	SequenceNo       int64             `gorm:"index;not null" json:"sequence_no"`
	WorkOrderNumber  string            `gorm:"size:20;not null" json:"work_order_number"`
	Title            string            `gorm:"size:255;not null" json:"title" binding:"required"`
	Description      string            `gorm:"type:text" json:"description"`
	Status           WorkOrderStatus   `gorm:"index;size:20;not null;default:OPEN" json:"status"`
	Priority         WorkOrderPriority `gorm:"size:10;not null;default:Medium" json:"priority"`
	AssigneeId       *int              `gorm:"index" json:"assignee_id"`
	BlockedReason    string            `gorm:"type:text" json:"blocked_reason"`
	ScheduledStartAt *time.Time        `json:"scheduled_start_at"`
	DueAt            *time.Time        `json:"due_at"`
	ClosedAt         *time.Time        `json:"closed_at"`
	Plants           []WorkOrderPlant  `gorm:"foreignKey:WorkOrderId" json:"plants"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

func (w WorkOrder) GetOrgId() string {
	return w.OrgId
}

func (obj WorkOrder) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[WorkOrder](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj WorkOrder) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[WorkOrder](obj.OrgId); err != nil {
		return err
	}
	return nil
}

// WorkOrderPlant is the soft binding between a work order and a plant.
// Detaching flips is_active instead of deleting the row, so closed work
// orders keep their plant history.
type WorkOrderPlant struct {
	ID          int        `gorm:"primary_key" json:"id"`
	OrgId       string     `gorm:"index;not null" json:"org_id"`
	WorkOrderId int        `gorm:"index;not null" json:"work_order_id"`
	PlantId     int        `gorm:"index;not null" json:"plant_id"`
	IsActive    *bool      `gorm:"not null;default:true" json:"is_active"`
	AttachedAt  time.Time  `gorm:"autoCreateTime" json:"attached_at"`
	DetachedAt  *time.Time `json:"detached_at"`
	Plant       *Plant     `gorm:"foreignKey:PlantId" json:"plant,omitempty"`
}

type NewWorkOrder struct {
	Title            string            `json:"title" binding:"required"`
	Description      string            `json:"description"`
	Priority         WorkOrderPriority `json:"priority"`
	AssigneeId       *int              `json:"assignee_id"`
	PlantIds         []int             `json:"plant_ids"`
	ScheduledStartAt *time.Time        `json:"scheduled_start_at"`
	DueAt            *time.Time        `json:"due_at"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewWorkOrder) validate(ctx context.Context, orgId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[WorkOrder](ctx, orgId, id); err != nil {
			return err
		}
	}
	if input.Priority != "" && !input.Priority.IsValid() {
		return errors.New("invalid priority")
	}
	if input.AssigneeId != nil && *input.AssigneeId > 0 {
		if err := utils.ValidateResourceId[User](ctx, orgId, *input.AssigneeId); err != nil {
			return errors.New("assignee not found")
		}
	}
	if len(input.PlantIds) > 0 {
		// all plants must belong to the work order's org
		if err := utils.ValidateResourcesId[Plant](ctx, orgId, input.PlantIds); err != nil {
			return errors.New("plant not found in this org")
		}
	}
	return nil
}

func CreateWorkOrder(ctx context.Context, input *NewWorkOrder) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if err := input.validate(ctx, orgId, 0); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[WorkOrder](ctx, orgId)
	if err != nil {
		return nil, err
	}

	priority := input.Priority
	if priority == "" {
		priority = WorkOrderPriorityMedium
	}

	workOrder := WorkOrder{
		OrgId:            orgId,
		SequenceNo:       seqNo,
		WorkOrderNumber:  fmt.Sprintf("WO-%05d", seqNo),
		Title:            input.Title,
		Description:      input.Description,
		Status:           WorkOrderStatusOpen,
		Priority:         priority,
		AssigneeId:       input.AssigneeId,
		ScheduledStartAt: input.ScheduledStartAt,
		DueAt:            input.DueAt,
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := tx.WithContext(ctx).Create(&workOrder).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(input.PlantIds) > 0 {
		if err := attachPlantsTx(tx.WithContext(ctx), orgId, &workOrder, input.PlantIds); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := createHistory(tx.WithContext(ctx), "CREATE", workOrder.ID, "work_orders", nil, &workOrder, "created work order "+workOrder.WorkOrderNumber); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := workOrder.RemoveAllRedis(); err != nil {
		tx.Rollback()
		return nil, err
	}

	return &workOrder, tx.Commit().Error
}

func UpdateWorkOrder(ctx context.Context, id int, input *NewWorkOrder) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if err := input.validate(ctx, orgId, id); err != nil {
		return nil, err
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, orgId, id)
	if err != nil {
		return nil, err
	}
	if workOrder.Status.IsTerminal() {
		return nil, errors.New("closed work order cannot be edited")
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&workOrder).Updates(map[string]interface{}{
		"Title":            input.Title,
		"Description":      input.Description,
		"Priority":         input.Priority,
		"AssigneeId":       input.AssigneeId,
		"ScheduledStartAt": input.ScheduledStartAt,
		"DueAt":            input.DueAt,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*workOrder); err != nil {
		return nil, err
	}

	return workOrder, nil
}

// UpdateWorkOrderStatus moves a work order through its lifecycle. Transitions
// outside the allowed set come back as *InvalidTransitionError. Entering
// IN_PROGRESS signals the efficiency recompute worker for every attached plant.
func UpdateWorkOrderStatus(ctx context.Context, id int, to WorkOrderStatus, reason string) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, orgId, id)
	if err != nil {
		return nil, err
	}

	from := workOrder.Status
	if !IsValidWorkOrderTransition(from, to) {
		return nil, &InvalidTransitionError{From: from, To: to}
	}
	if to == WorkOrderStatusAssigned && workOrder.AssigneeId == nil {
		return nil, errors.New("assignee is required")
	}

	updates := map[string]interface{}{
		"Status": to,
	}
	switch to {
	case WorkOrderStatusBlocked:
		updates["BlockedReason"] = reason
	case WorkOrderStatusInProgress:
		updates["BlockedReason"] = ""
	case WorkOrderStatusClosed:
		now := time.Now()
		updates["ClosedAt"] = &now
	}

	db := config.GetDB()
	tx := db.Begin()
	Tx := tx.WithContext(ctx).Model(&workOrder).Updates(updates)
	if Tx.Error != nil {
		tx.Rollback()
		return nil, Tx.Error
	}
	description := fmt.Sprintf("%s moved from %s to %s", workOrder.WorkOrderNumber, from, to)
	if err := createHistory(tx.WithContext(ctx), "STATUS", workOrder.ID, "work_orders", string(from), string(to), description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := RemoveRedisBoth(*workOrder); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if to == WorkOrderStatusInProgress {
		publishEfficiencyRecompute(ctx, workOrder)
	}

	return workOrder, nil
}

// publishEfficiencyRecompute is best effort: a lost signal means a stale
// baseline, not a broken work order, so failures only get logged.
func publishEfficiencyRecompute(ctx context.Context, workOrder *WorkOrder) {
	logger := config.GetLogger()

	plantIds, err := activePlantIds(ctx, workOrder.ID)
	if err != nil {
		config.LogError(logger, "workOrder", "publishEfficiencyRecompute", "loading plant ids", workOrder.ID, err)
		return
	}

	userName, _ := utils.GetUserNameFromContext(ctx)
	msg := config.EfficiencyRecomputeMessage{
		WorkOrderId:   workOrder.ID,
		OrgId:         workOrder.OrgId,
		PlantIds:      plantIds,
		TriggeredBy:   userName,
		TriggeredAt:   time.Now(),
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	if err := config.PublishEfficiencyRecompute(msg); err != nil {
		config.LogError(logger, "workOrder", "publishEfficiencyRecompute", "publishing", workOrder.ID, err)
	}
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func activePlantIds(ctx context.Context, workOrderId int) ([]int, error) {
	db := config.GetDB()
	var plantIds []int
	err := db.WithContext(ctx).Model(&WorkOrderPlant{}).
		Where("work_order_id = ? AND is_active = ?", workOrderId, true).
		Pluck("plant_id", &plantIds).Error
	return plantIds, err
}

// GetNextWorkOrderStatuses returns the statuses the work order may move to.
func GetNextWorkOrderStatuses(ctx context.Context, id int) ([]WorkOrderStatus, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, orgId, id)
	if err != nil {
		return nil, err
	}
	return NextValidStatuses(workOrder.Status), nil
}

// attachPlantsTx binds plants to a work order inside the caller's transaction.
// All plants must belong to the work order's org. A plant only rides one
// active work order at a time: prior active bindings get deactivated first.
func attachPlantsTx(tx *gorm.DB, orgId string, workOrder *WorkOrder, plantIds []int) error {

	plantIds = utils.UniqueSlice(plantIds)

	var count int64
	if err := tx.Model(&Plant{}).
		Where("org_id = ? AND id IN ?", orgId, plantIds).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(plantIds)) {
		return errors.New("all plants must belong to the work order's org")
	}

	now := time.Now()
	for _, plantId := range plantIds {
		// skip if already actively bound to this work order
		var existing int64
		if err := tx.Model(&WorkOrderPlant{}).
			Where("work_order_id = ? AND plant_id = ? AND is_active = ?", workOrder.ID, plantId, true).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			continue
		}

		// deactivate the plant's bindings on other work orders
		if err := tx.Model(&WorkOrderPlant{}).
			Where("plant_id = ? AND is_active = ? AND work_order_id <> ?", plantId, true, workOrder.ID).
			Updates(map[string]interface{}{
				"IsActive":   false,
				"DetachedAt": &now,
			}).Error; err != nil {
			return err
		}

		binding := WorkOrderPlant{
			OrgId:       orgId,
			WorkOrderId: workOrder.ID,
			PlantId:     plantId,
			IsActive:    utils.NewTrue(),
		}
		if err := tx.Create(&binding).Error; err != nil {
			return err
		}
	}
	return nil
}

// AddWorkOrderPlants attaches plants to an existing work order.
func AddWorkOrderPlants(ctx context.Context, workOrderId int, plantIds []int) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}
	if len(plantIds) == 0 {
		return nil, errors.New("plant ids are required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, orgId, workOrderId)
	if err != nil {
		return nil, err
	}
	if workOrder.Status.IsTerminal() {
		return nil, errors.New("closed work order cannot be edited")
	}

	// only active plants can be attached after creation
	if err := utils.MassValidateResourceIds(ctx, []utils.ValidationRule[int]{
		{Model: Plant{}, Ids: plantIds, Message: "plant not found or inactive",
			Filter: utils.Filter{Cond: "org_id = ? AND is_active = ?", Values: []interface{}{orgId, true}}},
	}); err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	if err := attachPlantsTx(tx.WithContext(ctx), orgId, workOrder, plantIds); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := RemoveRedisBoth(*workOrder); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return GetWorkOrder(ctx, workOrderId)
}

// DetachWorkOrderPlant soft-detaches a plant from a work order.
func DetachWorkOrderPlant(ctx context.Context, workOrderId int, plantId int) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	workOrder, err := utils.FetchModel[WorkOrder](ctx, orgId, workOrderId)
	if err != nil {
		return nil, err
	}
	if workOrder.Status.IsTerminal() {
		return nil, errors.New("closed work order cannot be edited")
	}

	db := config.GetDB()
	now := time.Now()
	result := db.WithContext(ctx).Model(&WorkOrderPlant{}).
		Where("work_order_id = ? AND plant_id = ? AND is_active = ?", workOrderId, plantId, true).
		Updates(map[string]interface{}{
			"IsActive":   false,
			"DetachedAt": &now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errors.New("plant is not attached to this work order")
	}
	if err := RemoveRedisBoth(*workOrder); err != nil {
		return nil, err
	}

	return GetWorkOrder(ctx, workOrderId)
}

func GetWorkOrder(ctx context.Context, id int) (*WorkOrder, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}
	return utils.FetchModel[WorkOrder](ctx, orgId, id, "Plants", "Plants.Plant")
}

func GetWorkOrders(ctx context.Context, status *WorkOrderStatus, assigneeId *int, plantId *int) ([]*WorkOrder, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	db := config.GetDB()
	var results []*WorkOrder

	dbCtx := db.WithContext(ctx).Where("org_id = ?", orgId)
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if assigneeId != nil && *assigneeId > 0 {
		dbCtx = dbCtx.Where("assignee_id = ?", *assigneeId)
	}
	if plantId != nil && *plantId > 0 {
		dbCtx = dbCtx.Joins("JOIN work_order_plants ON work_order_plants.work_order_id = work_orders.id").
			Where("work_order_plants.plant_id = ? AND work_order_plants.is_active = ?", *plantId, true)
	}
	err := dbCtx.Preload("Plants").Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
