package vendorsync

import (
	"context"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// plantUpdateColumns are the columns a sync is allowed to refresh. Org and
// activation flags are deliberately excluded so operator edits survive syncs.
var plantUpdateColumns = []string{
	"name", "capacity_kw", "address",
	"latitude", "longitude",
	"current_power_kw", "energy_today_kwh", "energy_total_kwh",
	"last_seen_at", "updated_at",
}

type gormPlantStore struct {
	db *gorm.DB
}

func NewPlantStore(db *gorm.DB) PlantStore {
	return &gormPlantStore{db: db}
}

func (s *gormPlantStore) ExistingKeys(ctx context.Context, vendorId int, externalIds []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(externalIds))
	if len(externalIds) == 0 {
		return existing, nil
	}

	var found []string
	err := s.db.WithContext(ctx).Model(&models.Plant{}).
		Where("vendor_id = ? AND external_id IN ?", vendorId, externalIds).
		Pluck("external_id", &found).Error
	if err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

func (s *gormPlantStore) UpsertBatch(ctx context.Context, plants []models.Plant) error {
	if len(plants) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(plantUpdateColumns),
	}).Create(&plants).Error
}

func (s *gormPlantStore) UpsertOne(ctx context.Context, plant models.Plant) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "vendor_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns(plantUpdateColumns),
	}).Create(&plant).Error
}
