package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Plant is a monitored solar installation. Vendor-synced plants carry the
// (vendor_id, external_id) natural key; manually registered plants leave
// vendor_id nil.
type Plant struct {
	ID             int              `gorm:"primary_key" json:"id"`
	OrgId          string           `gorm:"index;not null" json:"org_id"`
	VendorId       *int             `gorm:"uniqueIndex:idx_plant_natural_key,priority:1" json:"vendor_id"`
	ExternalId     string           `gorm:"uniqueIndex:idx_plant_natural_key,priority:2;size:128" json:"external_id"`
	Name           string           `gorm:"index;size:255;not null" json:"name" binding:"required"`
	CapacityKw     decimal.Decimal  `gorm:"type:decimal(14,4);not null;default:0" json:"capacity_kw"`
	Address        string           `gorm:"type:text" json:"address"`
	Latitude       *decimal.Decimal `gorm:"type:decimal(10,7)" json:"latitude"`
	Longitude      *decimal.Decimal `gorm:"type:decimal(10,7)" json:"longitude"`
	CurrentPowerKw *decimal.Decimal `gorm:"type:decimal(14,4)" json:"current_power_kw"`
	EnergyTodayKwh *decimal.Decimal `gorm:"type:decimal(14,4)" json:"energy_today_kwh"`
	EnergyTotalKwh *decimal.Decimal `gorm:"type:decimal(18,4)" json:"energy_total_kwh"`
	EfficiencyPct  *decimal.Decimal `gorm:"type:decimal(7,4)" json:"efficiency_pct"`
	CommissionedAt *time.Time       `json:"commissioned_at"`
	LastSeenAt     *time.Time       `json:"last_seen_at"`
	IsActive       *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p Plant) GetOrgId() string {
	return p.OrgId
}

func (obj Plant) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Plant](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Plant) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[Plant](obj.OrgId); err != nil {
		return err
	}
	return nil
}

// Deletes only happen through the guarded DeletePlant path, so the hook
// always runs with a full user context.
func (p *Plant) AfterDelete(tx *gorm.DB) error {
	return SaveHistoryDelete(tx, p.ID, p, "deleted plant "+p.Name)
}

type NewPlant struct {
	Name           string           `json:"name" binding:"required"`
	CapacityKw     *decimal.Decimal `json:"capacity_kw"`
	Address        string           `json:"address"`
	Latitude       *decimal.Decimal `json:"latitude"`
	Longitude      *decimal.Decimal `json:"longitude"`
	CommissionedAt *time.Time       `json:"commissioned_at"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewPlant) validate(ctx context.Context, orgId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Plant](ctx, orgId, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Plant](ctx, orgId, "name", input.Name, id); err != nil {
		return err
	}
	if input.CapacityKw != nil && input.CapacityKw.IsNegative() {
		return errors.New("capacity cannot be negative")
	}
	return nil
}

func CreatePlant(ctx context.Context, input *NewPlant) (*Plant, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if err := input.validate(ctx, orgId, 0); err != nil {
		return nil, err
	}

	plant := Plant{
		OrgId:          orgId,
		Name:           input.Name,
		CapacityKw:     utils.DereferencePtr(input.CapacityKw, decimal.Zero),
		Address:        input.Address,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		CommissionedAt: input.CommissionedAt,
		IsActive:       utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&plant).Error
	if err != nil {
		return nil, err
	}
	if err := plant.RemoveAllRedis(); err != nil {
		return nil, err
	}

	return &plant, nil
}

func UpdatePlant(ctx context.Context, id int, input *NewPlant) (*Plant, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if err := input.validate(ctx, orgId, id); err != nil {
		return nil, err
	}

	plant, err := utils.FetchModel[Plant](ctx, orgId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&plant).Updates(map[string]interface{}{
		"Name":           input.Name,
		"CapacityKw":     utils.DereferencePtr(input.CapacityKw, plant.CapacityKw),
		"Address":        input.Address,
		"Latitude":       input.Latitude,
		"Longitude":      input.Longitude,
		"CommissionedAt": input.CommissionedAt,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*plant); err != nil {
		return nil, err
	}

	return plant, nil
}

// countActiveWorkOrderBindings counts active bindings to non-closed work orders.
func countActiveWorkOrderBindings(tx *gorm.DB, plantId int) (int64, error) {
	var count int64
	err := tx.Model(&WorkOrderPlant{}).
		Joins("JOIN work_orders ON work_orders.id = work_order_plants.work_order_id").
		Where("work_order_plants.plant_id = ? AND work_order_plants.is_active = ? AND work_orders.status <> ?",
			plantId, true, WorkOrderStatusClosed).
		Count(&count).Error
	return count, err
}

// deletePlantTx removes a plant unless it is still bound to an active work
// order. The guard holds for every role.
func deletePlantTx(tx *gorm.DB, plant *Plant) error {
	count, err := countActiveWorkOrderBindings(tx, plant.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: plant is attached to an active work order", utils.ErrorPermissionDenied)
	}
	return tx.Delete(plant).Error
}

// DeletePlant refuses to remove a plant that is still bound to an active
// work order. Vendor syncs never call this; a plant that disappears from a
// vendor listing simply stops receiving updates.
func DeletePlant(ctx context.Context, id int) (*Plant, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	result, err := utils.FetchModel[Plant](ctx, orgId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	if err := deletePlantTx(db.WithContext(ctx), result); err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}

	return result, nil
}

func GetPlant(ctx context.Context, id int) (*Plant, error) {

	return GetResource[Plant](ctx, id)
}

func GetPlants(ctx context.Context, name *string, vendorId *int, isActive *bool) ([]*Plant, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	// unfiltered listing comes from the org's redis list cache
	if (name == nil || *name == "") && (vendorId == nil || *vendorId == 0) && isActive == nil {
		return ListAllResource[Plant](ctx, "name")
	}

	db := config.GetDB()
	var results []*Plant

	dbCtx := db.WithContext(ctx).Where("org_id = ?", orgId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if vendorId != nil && *vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", *vendorId)
	}
	if isActive != nil {
		dbCtx = dbCtx.Where("is_active = ?", *isActive)
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActivePlant(ctx context.Context, id int, isActive bool) (*Plant, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}
	return ToggleActiveModel[Plant](ctx, orgId, id, isActive)
}
