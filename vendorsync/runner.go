package vendorsync

import (
	"context"
	"errors"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

const syncLockTTL = 10 * time.Minute

// RunSync executes one sync run end to end: lock, pull, upsert, bookkeep.
// Called inline for synchronous triggers and from the Pub/Sub push handler
// for queued ones.
func RunSync(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
	logger := config.GetLogger()

	// Sync writes rows for the vendor's org regardless of who triggered it.
	ctx = utils.SetSkipOrgScopeInContext(ctx, true)

	vendor, err := models.GetVendor(ctx, vendorId)
	if err != nil {
		return nil, err
	}
	if vendor.OrgId == nil || *vendor.OrgId == "" {
		return nil, ErrVendorNotConfigured
	}
	ctx = utils.SetOrgIdInContext(ctx, *vendor.OrgId)

	// Take the lock before any run-row bookkeeping. A contended inline
	// trigger must not leave a stranded queued row, and a contended queued
	// run stays queued so Pub/Sub redelivery picks it up once the lock clears.
	lock, err := utils.ObtainLock(ctx, "vendor-sync", strconv.Itoa(vendorId), syncLockTTL, "vendorsync", "RunSync")
	if err != nil {
		return nil, ErrSyncInProgress
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			config.LogError(logger, "vendorsync", "RunSync", "releasing sync lock", vendorId, err)
		}
	}()

	var run *models.VendorSyncRun
	if runId > 0 {
		run, err = models.GetVendorSyncRun(ctx, runId)
		if err != nil {
			return nil, err
		}
		// Pub/Sub redelivers; a finished run must not execute twice.
		if run.Status != models.SyncRunStatusQueued && run.Status != models.SyncRunStatusRunning {
			return nil, nil
		}
	} else {
		run, err = models.CreateVendorSyncRun(ctx, vendor, triggeredBy)
		if err != nil {
			return nil, err
		}
	}

	if err := run.MarkRunning(ctx); err != nil {
		return nil, err
	}

	adapter, err := NewAdapter(vendor)
	if err != nil {
		finishFailed(ctx, run, vendor, err)
		return nil, err
	}

	engine := NewEngine(NewPlantStore(config.GetDB()))
	report, err := engine.Sync(ctx, vendor, adapter)
	if err != nil {
		finishFailed(ctx, run, vendor, err)
		return nil, err
	}

	if report.Synced > 0 {
		// drop the org's cached plant listing so it picks up the synced rows
		if err := (models.Plant{OrgId: *vendor.OrgId}).RemoveAllRedis(); err != nil {
			config.LogError(logger, "vendorsync", "RunSync", "clearing plant list cache", vendor.ID, err)
		}
	}

	for _, recordErr := range report.Errors {
		models.CreateVendorSyncRecordError(ctx, run.ID, *vendor.OrgId,
			recordErr.ExternalId, "upsert_failed", recordErr.Message, nil, true)
	}

	errorCount := report.Total - report.Synced
	status := models.SyncRunStatusSuccess
	vendorStatus := models.VendorStatusConnected
	if errorCount > 0 {
		status = models.SyncRunStatusPartial
	}

	if err := run.MarkFinished(ctx, status, report.Total, report.Synced,
		report.Created, report.Updated, errorCount, report); err != nil {
		config.LogError(logger, "vendorsync", "RunSync", "marking run finished", run.ID, err)
	}
	if err := models.MarkVendorSyncTimes(ctx, vendor.ID, true, vendorStatus); err != nil {
		config.LogError(logger, "vendorsync", "RunSync", "marking vendor sync times", vendor.ID, err)
	}

	return report, nil
}

func finishFailed(ctx context.Context, run *models.VendorSyncRun, vendor *models.Vendor, cause error) {
	logger := config.GetLogger()

	if err := run.MarkFinished(ctx, models.SyncRunStatusFailed, 0, 0, 0, 0, 1,
		map[string]string{"error": cause.Error()}); err != nil {
		config.LogError(logger, "vendorsync", "finishFailed", "marking run failed", run.ID, err)
	}
	if err := models.MarkVendorSyncTimes(ctx, vendor.ID, false, models.VendorStatusError); err != nil {
		config.LogError(logger, "vendorsync", "finishFailed", "marking vendor sync times", vendor.ID, err)
	}
}

// ErrSyncInProgress reports a concurrent run holding the vendor lock.
var ErrSyncInProgress = errors.New("another sync is already running for this vendor")
