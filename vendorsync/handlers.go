package vendorsync

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/gin-gonic/gin"
)

// TriggerSyncHandler starts a sync for the vendor in the path. With async
// dispatch enabled the run is queued on Pub/Sub and 202 is returned;
// otherwise the sync runs inline and the report comes back directly.
func TriggerSyncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorId, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid vendor id"})
			return
		}

		var req TriggerSyncRequest
		_ = c.ShouldBindJSON(&req)
		triggeredBy := strings.TrimSpace(req.TriggeredBy)
		if triggeredBy == "" {
			triggeredBy = models.SyncTriggeredManual
		}

		ctx := c.Request.Context()

		vendor, err := models.GetVendor(ctx, vendorId)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
			return
		}
		if vendor.OrgId == nil || *vendor.OrgId == "" {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "vendor is not configured for sync"})
			return
		}
		if orgId, ok := utils.GetOrgIdFromContext(ctx); ok && orgId != "" && orgId != *vendor.OrgId {
			c.JSON(http.StatusNotFound, gin.H{"error": "vendor not found"})
			return
		}

		if config.AsyncVendorSyncEnabled() {
			run, err := models.CreateVendorSyncRun(ctx, vendor, triggeredBy)
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if err := PublishSyncRun(ctx, run.ID, *vendor.OrgId, vendor.ID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusAccepted, gin.H{"id": run.ID})
			return
		}

		report, err := RunSync(ctx, vendorId, 0, triggeredBy)
		if err != nil {
			switch {
			case errors.Is(err, ErrVendorNotConfigured):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			case errors.Is(err, ErrSyncInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func SyncHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		vendorId := 0
		if v := strings.TrimSpace(c.Query("vendor_id")); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				vendorId = n
			}
		}
		limit := 0
		if v := strings.TrimSpace(c.Query("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				limit = n
			}
		}

		runs, err := models.GetVendorSyncRuns(c.Request.Context(), vendorId, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		items := make([]SyncRunResponse, 0, len(runs))
		for _, run := range runs {
			items = append(items, mapRunToResponse(run))
		}
		c.JSON(http.StatusOK, SyncHistoryResponse{Items: items})
	}
}

func SyncRunDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := c.Request.Context()
		run, err := models.GetVendorSyncRun(ctx, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		recordErrors, err := models.GetVendorSyncRecordErrors(ctx, run.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, SyncRunDetailResponse{
			SyncRunResponse: mapRunToResponse(run),
			Errors:          mapErrors(recordErrors),
		})
	}
}

// RetrySyncRunHandler queues a fresh run for the same vendor as a past run.
func RetrySyncRunHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.Atoi(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
			return
		}

		ctx := c.Request.Context()
		run, err := models.GetVendorSyncRun(ctx, uint(id))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		report, err := RunSync(ctx, run.VendorId, 0, models.SyncTriggeredRetry)
		if err != nil {
			switch {
			case errors.Is(err, ErrVendorNotConfigured):
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			case errors.Is(err, ErrSyncInProgress):
				c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			}
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func mapRunToResponse(run *models.VendorSyncRun) SyncRunResponse {
	return SyncRunResponse{
		ID:          run.ID,
		VendorId:    run.VendorId,
		Status:      run.Status,
		StartedAt:   formatTime(run.StartedAt),
		FinishedAt:  formatTime(run.FinishedAt),
		DurationMs:  run.DurationMs,
		Total:       run.Total,
		Synced:      run.Synced,
		Created:     run.Created,
		Updated:     run.Updated,
		ErrorCount:  run.ErrorCount,
		TriggeredBy: run.TriggeredBy,
	}
}

func mapErrors(errorsList []*models.VendorSyncRecordError) []SyncErrorResponse {
	out := make([]SyncErrorResponse, 0, len(errorsList))
	for _, errItem := range errorsList {
		out = append(out, SyncErrorResponse{
			ID:         errItem.ID,
			ExternalId: errItem.ExternalId,
			ErrorCode:  errItem.ErrorCode,
			Message:    errItem.Message,
			Retryable:  errItem.Retryable,
		})
	}
	return out
}
