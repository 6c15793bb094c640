package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"gorm.io/gorm"
)

// Alert is a plant-level condition surfaced on the dashboard (offline
// inverter, underperformance, comms loss). Raised manually or by monitoring
// jobs; operators acknowledge and resolve them.
type Alert struct {
	ID             int           `gorm:"primary_key" json:"id"`
	OrgId          string        `gorm:"index;not null" json:"org_id"`
	PlantId        int           `gorm:"index;not null" json:"plant_id"`
	Severity       AlertSeverity `gorm:"size:10;not null" json:"severity"`
	Status         AlertStatus   `gorm:"index;size:15;not null;default:Open" json:"status"`
	Code           string        `gorm:"size:50" json:"code"`
	Message        string        `gorm:"type:text;not null" json:"message"`
	RaisedAt       time.Time     `gorm:"not null" json:"raised_at"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at"`
	ResolvedAt     *time.Time    `json:"resolved_at"`
	Plant          *Plant        `gorm:"foreignKey:PlantId" json:"plant,omitempty"`
	CreatedAt      time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a Alert) GetOrgId() string {
	return a.OrgId
}

func (obj Alert) RemoveInstanceRedis() error {
	if err := utils.RemoveRedisItem[Alert](obj.ID); err != nil {
		return err
	}
	return nil
}

func (obj Alert) RemoveAllRedis() error {
	if err := utils.RemoveRedisList[Alert](obj.OrgId); err != nil {
		return err
	}
	return nil
}

func (a *Alert) AfterCreate(tx *gorm.DB) error {
	return SaveHistoryCreate(tx, a.ID, a, "raised alert on plant "+fmt.Sprint(a.PlantId))
}

func (a *Alert) AfterUpdate(tx *gorm.DB) error {
	return SaveHistoryUpdate(tx, a.ID, a, "updated alert")
}

type NewAlert struct {
	PlantId  int           `json:"plant_id" binding:"required"`
	Severity AlertSeverity `json:"severity" binding:"required"`
	Code     string        `json:"code"`
	Message  string        `json:"message" binding:"required"`
}

func CreateAlert(ctx context.Context, input *NewAlert) (*Alert, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	if !input.Severity.IsValid() {
		return nil, errors.New("invalid severity")
	}
	if err := utils.ValidateResourceId[Plant](ctx, orgId, input.PlantId); err != nil {
		return nil, errors.New("plant not found")
	}

	alert := Alert{
		OrgId:    orgId,
		PlantId:  input.PlantId,
		Severity: input.Severity,
		Status:   AlertStatusOpen,
		Code:     input.Code,
		Message:  input.Message,
		RaisedAt: time.Now(),
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Create(&alert).Error
	if err != nil {
		return nil, err
	}
	if err := alert.RemoveAllRedis(); err != nil {
		return nil, err
	}

	return &alert, nil
}

func AcknowledgeAlert(ctx context.Context, id int) (*Alert, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	alert, err := utils.FetchModel[Alert](ctx, orgId, id)
	if err != nil {
		return nil, err
	}
	if alert.Status != AlertStatusOpen {
		return nil, errors.New("only open alerts can be acknowledged")
	}

	db := config.GetDB()
	now := time.Now()
	err = db.WithContext(ctx).Model(&alert).Updates(map[string]interface{}{
		"Status":         AlertStatusAcknowledged,
		"AcknowledgedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*alert); err != nil {
		return nil, err
	}

	return alert, nil
}

func ResolveAlert(ctx context.Context, id int) (*Alert, error) {

	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	alert, err := utils.FetchModel[Alert](ctx, orgId, id)
	if err != nil {
		return nil, err
	}
	if alert.Status == AlertStatusResolved {
		return nil, errors.New("alert is already resolved")
	}

	db := config.GetDB()
	now := time.Now()
	err = db.WithContext(ctx).Model(&alert).Updates(map[string]interface{}{
		"Status":     AlertStatusResolved,
		"ResolvedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*alert); err != nil {
		return nil, err
	}

	return alert, nil
}

func GetAlert(ctx context.Context, id int) (*Alert, error) {

	return GetResource[Alert](ctx, id)
}

func GetAlerts(ctx context.Context, plantId *int, status *AlertStatus, severity *AlertSeverity) ([]*Alert, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	db := config.GetDB()
	var results []*Alert

	dbCtx := db.WithContext(ctx).Where("org_id = ?", orgId)
	if plantId != nil && *plantId > 0 {
		dbCtx = dbCtx.Where("plant_id = ?", *plantId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if severity != nil && *severity != "" {
		dbCtx = dbCtx.Where("severity = ?", *severity)
	}
	err := dbCtx.Preload("Plant").Order("raised_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
