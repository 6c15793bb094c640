package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

// VendorSyncRun is the persisted record of one sync attempt against a vendor.
// The transient sync report is serialized into ReportJSON for later display.
type VendorSyncRun struct {
	ID          uint       `gorm:"primary_key" json:"id"`
	OrgId       string     `gorm:"index;not null" json:"org_id"`
	VendorId    int        `gorm:"index;not null" json:"vendor_id"`
	Provider    string     `gorm:"index;size:50;not null" json:"provider"`
	Status      string     `gorm:"size:20;not null" json:"status"`
	TriggeredBy string     `gorm:"size:20" json:"triggered_by"`
	Total       int        `json:"total"`
	Synced      int        `json:"synced"`
	Created     int        `json:"created"`
	Updated     int        `json:"updated"`
	ErrorCount  int        `json:"error_count"`
	ReportJSON  []byte     `gorm:"type:json" json:"report"`
	StartedAt   *time.Time `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at"`
	DurationMs  int64      `json:"duration_ms"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// VendorSyncRecordError keeps one failed record of a run for diagnostics.
type VendorSyncRecordError struct {
	ID          uint      `gorm:"primary_key" json:"id"`
	SyncRunId   uint      `gorm:"index;not null" json:"sync_run_id"`
	OrgId       string    `gorm:"index;not null" json:"org_id"`
	ExternalId  string    `gorm:"size:128" json:"external_id"`
	ErrorCode   string    `gorm:"size:64" json:"error_code"`
	Message     string    `gorm:"type:text" json:"message"`
	PayloadJSON []byte    `gorm:"type:json" json:"payload"`
	Retryable   bool      `gorm:"default:false" json:"retryable"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func CreateVendorSyncRun(ctx context.Context, vendor *Vendor, triggeredBy string) (*VendorSyncRun, error) {
	if vendor.OrgId == nil || *vendor.OrgId == "" {
		return nil, errors.New("vendor has no org")
	}
	run := VendorSyncRun{
		OrgId:       *vendor.OrgId,
		VendorId:    vendor.ID,
		Provider:    vendor.Provider,
		Status:      SyncRunStatusQueued,
		TriggeredBy: triggeredBy,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (run *VendorSyncRun) MarkRunning(ctx context.Context) error {
	db := config.GetDB()
	now := time.Now()
	return db.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"Status":    SyncRunStatusRunning,
		"StartedAt": &now,
	}).Error
}

// MarkFinished stores the final status, counters and the serialized report.
func (run *VendorSyncRun) MarkFinished(ctx context.Context, status string, total, synced, created, updated, errorCount int, report interface{}) error {
	db := config.GetDB()
	now := time.Now()
	var durationMs int64
	if run.StartedAt != nil {
		durationMs = now.Sub(*run.StartedAt).Milliseconds()
	}
	var reportJSON []byte
	if s, err := utils.MarshalToJSON(report); err == nil {
		reportJSON = []byte(s)
	}
	return db.WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"Status":     status,
		"Total":      total,
		"Synced":     synced,
		"Created":    created,
		"Updated":    updated,
		"ErrorCount": errorCount,
		"ReportJSON": reportJSON,
		"FinishedAt": &now,
		"DurationMs": durationMs,
	}).Error
}

func CreateVendorSyncRecordError(ctx context.Context, runId uint, orgId string, externalId string, code string, message string, payload interface{}, retryable bool) {
	db := config.GetDB()
	logger := config.GetLogger()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		payloadJSON = nil
	}
	rec := VendorSyncRecordError{
		SyncRunId:   runId,
		OrgId:       orgId,
		ExternalId:  externalId,
		ErrorCode:   code,
		Message:     message,
		PayloadJSON: payloadJSON,
		Retryable:   retryable,
	}
	if err := db.WithContext(ctx).Create(&rec).Error; err != nil {
		config.LogError(logger, "vendorSyncRun", "CreateVendorSyncRecordError", "persisting sync error", externalId, err)
	}
}

func GetVendorSyncRun(ctx context.Context, id uint) (*VendorSyncRun, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	db := config.GetDB()
	var result VendorSyncRun
	if err := db.WithContext(ctx).Where("org_id = ?", orgId).First(&result, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetVendorSyncRuns(ctx context.Context, vendorId int, limit int) ([]*VendorSyncRun, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	db := config.GetDB()
	var results []*VendorSyncRun
	dbCtx := db.WithContext(ctx).Where("org_id = ?", orgId)
	if vendorId > 0 {
		dbCtx = dbCtx.Where("vendor_id = ?", vendorId)
	}
	if err := dbCtx.Order("created_at DESC").Limit(limit).Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func GetVendorSyncRecordErrors(ctx context.Context, runId uint) ([]*VendorSyncRecordError, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	db := config.GetDB()
	var results []*VendorSyncRecordError
	if err := db.WithContext(ctx).Where("org_id = ? AND sync_run_id = ?", orgId, runId).
		Order("id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
