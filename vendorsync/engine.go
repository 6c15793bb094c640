package vendorsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ErrVendorNotConfigured is returned for vendors that cannot be synced yet,
// typically because no org has claimed them.
var ErrVendorNotConfigured = errors.New("vendor is not configured for sync")

// PlantStore is the persistence surface the engine writes through. The gorm
// implementation lives in store.go; tests swap in an in-memory fake.
type PlantStore interface {
	// ExistingKeys reports which of the given external ids already have a
	// plant row for this vendor.
	ExistingKeys(ctx context.Context, vendorId int, externalIds []string) (map[string]bool, error)
	UpsertBatch(ctx context.Context, plants []models.Plant) error
	UpsertOne(ctx context.Context, plant models.Plant) error
}

// VendorAdapter lists plants from one vendor account.
type VendorAdapter interface {
	ListPlants(ctx context.Context) ([]VendorPlant, error)
}

type Engine struct {
	Store     PlantStore
	BatchSize int
	Logger    *logrus.Logger
}

func NewEngine(store PlantStore) *Engine {
	return &Engine{
		Store:     store,
		BatchSize: config.VendorSyncBatchSize(),
		Logger:    config.GetLogger(),
	}
}

// Sync pulls the vendor's plant listing and upserts it into the org's plants.
// Listing failures are fatal; per-record failures are collected in the report
// and do not stop the run. A plant missing from the listing is left alone.
func (e *Engine) Sync(ctx context.Context, vendor *models.Vendor, adapter VendorAdapter) (*SyncReport, error) {
	if vendor == nil || vendor.OrgId == nil || *vendor.OrgId == "" {
		return nil, ErrVendorNotConfigured
	}
	orgId := *vendor.OrgId

	records, err := adapter.ListPlants(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing plants from vendor %d: %w", vendor.ID, err)
	}

	report := &SyncReport{Total: len(records)}
	if len(records) == 0 {
		return report, nil
	}

	plants := make([]models.Plant, 0, len(records))
	for _, record := range records {
		externalId := strings.TrimSpace(record.ExternalId)
		if externalId == "" {
			report.addError("", "record has no external id")
			continue
		}
		plants = append(plants, normalizePlant(vendor, orgId, externalId, record))
	}

	externalIds := make([]string, len(plants))
	for i, p := range plants {
		externalIds[i] = p.ExternalId
	}
	existing, err := e.Store.ExistingKeys(ctx, vendor.ID, externalIds)
	if err != nil {
		return nil, fmt.Errorf("loading existing plant keys for vendor %d: %w", vendor.ID, err)
	}

	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = config.VendorSyncBatchSize()
	}

	for start := 0; start < len(plants); start += batchSize {
		end := start + batchSize
		if end > len(plants) {
			end = len(plants)
		}
		batch := plants[start:end]

		if err := e.Store.UpsertBatch(ctx, batch); err != nil {
			if e.Logger != nil {
				config.LogError(e.Logger, "vendorsync", "Sync", "batch upsert failed, retrying per record", vendor.ID, err)
			}
			// Retry one by one so a single poison record does not sink
			// the whole batch.
			for _, plant := range batch {
				if err := e.Store.UpsertOne(ctx, plant); err != nil {
					report.addError(plant.ExternalId, err.Error())
					continue
				}
				e.count(report, existing, plant.ExternalId)
			}
			continue
		}
		for _, plant := range batch {
			e.count(report, existing, plant.ExternalId)
		}
	}

	return report, nil
}

func (e *Engine) count(report *SyncReport, existing map[string]bool, externalId string) {
	report.Synced++
	if existing[externalId] {
		report.Updated++
	} else {
		report.Created++
	}
}

// normalizePlant maps one vendor record onto the plant row. Missing capacity
// becomes 0; missing metrics stay nil; a blank name gets a placeholder so the
// row is still presentable.
func normalizePlant(vendor *models.Vendor, orgId string, externalId string, record VendorPlant) models.Plant {
	name := strings.TrimSpace(record.Name)
	if name == "" {
		name = fmt.Sprintf("%s Plant %s", vendor.Name, externalId)
	}

	vendorId := vendor.ID
	plant := models.Plant{
		OrgId:          orgId,
		VendorId:       &vendorId,
		ExternalId:     externalId,
		Name:           name,
		CapacityKw:     decimalOrZero(record.CapacityKw),
		Address:        record.Address,
		Latitude:       decimalFromNumber(record.Latitude),
		Longitude:      decimalFromNumber(record.Longitude),
		CurrentPowerKw: decimalFromNumber(record.CurrentPowerKw),
		EnergyTodayKwh: decimalFromNumber(record.EnergyTodayKwh),
		EnergyTotalKwh: decimalFromNumber(record.EnergyTotalKwh),
		LastSeenAt:     parseTimeOrNil(record.LastSeenAt),
	}
	return plant
}

func decimalOrZero(n *json.Number) decimal.Decimal {
	if d := decimalFromNumber(n); d != nil {
		return *d
	}
	return decimal.Zero
}

func decimalFromNumber(n *json.Number) *decimal.Decimal {
	if n == nil {
		return nil
	}
	d, err := utils.ParseDecimal(n.String())
	if err != nil {
		return nil
	}
	return &d
}

func parseTimeOrNil(value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return &t
		}
	}
	return nil
}
