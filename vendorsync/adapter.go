package vendorsync

import (
	"context"
	"fmt"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
)

// NewAdapter picks the listing implementation for the vendor's provider.
func NewAdapter(vendor *models.Vendor) (VendorAdapter, error) {
	switch vendor.Provider {
	case models.VendorProviderSolarman:
		return newSolarmanClient(vendor)
	case models.VendorProviderStatic:
		return &staticAdapter{vendor: vendor}, nil
	default:
		return nil, fmt.Errorf("unsupported vendor provider %q", vendor.Provider)
	}
}

// staticAdapter serves the plant list embedded in the vendor's settings.
// Used for vendors without an API and for staging environments.
type staticAdapter struct {
	vendor *models.Vendor
}

func (a *staticAdapter) ListPlants(ctx context.Context) ([]VendorPlant, error) {
	if len(a.vendor.SettingsJSON) == 0 {
		return nil, nil
	}

	var settings struct {
		Plants []VendorPlant `json:"plants"`
	}
	if err := utils.UnmarshalFromJSON(a.vendor.SettingsJSON, &settings); err != nil {
		return nil, fmt.Errorf("parsing vendor settings: %w", err)
	}
	return settings.Plants, nil
}
