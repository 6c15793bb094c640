package vendorsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/shopspring/decimal"
)

type fakeAdapter struct {
	plants []VendorPlant
	err    error
}

func (f *fakeAdapter) ListPlants(ctx context.Context) ([]VendorPlant, error) {
	return f.plants, f.err
}

type fakeStore struct {
	rows map[string]models.Plant

	batchCalls   int
	oneCalls     int
	batchErr     error
	failOneFor   map[string]error
	existingErr  error
	existingSeen []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]models.Plant{}}
}

func (f *fakeStore) ExistingKeys(ctx context.Context, vendorId int, externalIds []string) (map[string]bool, error) {
	if f.existingErr != nil {
		return nil, f.existingErr
	}
	f.existingSeen = externalIds
	out := map[string]bool{}
	for _, id := range externalIds {
		if _, ok := f.rows[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBatch(ctx context.Context, plants []models.Plant) error {
	f.batchCalls++
	if f.batchErr != nil {
		return f.batchErr
	}
	for _, p := range plants {
		f.rows[p.ExternalId] = p
	}
	return nil
}

func (f *fakeStore) UpsertOne(ctx context.Context, plant models.Plant) error {
	f.oneCalls++
	if err, ok := f.failOneFor[plant.ExternalId]; ok {
		return err
	}
	f.rows[plant.ExternalId] = plant
	return nil
}

func testVendor() *models.Vendor {
	orgId := "org-1"
	return &models.Vendor{
		ID:    7,
		Name:  "Solarman",
		OrgId: &orgId,
	}
}

func num(s string) *json.Number {
	n := json.Number(s)
	return &n
}

func TestSyncVendorNotConfigured(t *testing.T) {
	engine := &Engine{Store: newFakeStore(), BatchSize: 100}

	tests := []struct {
		name   string
		vendor *models.Vendor
	}{
		{"nil vendor", nil},
		{"nil org", &models.Vendor{Name: "X"}},
		{"empty org", func() *models.Vendor {
			v := testVendor()
			empty := ""
			v.OrgId = &empty
			return v
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Sync(context.Background(), tt.vendor, &fakeAdapter{})
			if !errors.Is(err, ErrVendorNotConfigured) {
				t.Errorf("Sync() error = %v, want ErrVendorNotConfigured", err)
			}
		})
	}
}

func TestSyncListingErrorIsFatal(t *testing.T) {
	engine := &Engine{Store: newFakeStore(), BatchSize: 100}
	listErr := errors.New("upstream timeout")

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{err: listErr})
	if report != nil {
		t.Errorf("Sync() report = %+v, want nil on listing failure", report)
	}
	if !errors.Is(err, listErr) {
		t.Errorf("Sync() error = %v, want wrapped %v", err, listErr)
	}
}

func TestSyncEmptyListingSucceeds(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Total != 0 || report.Synced != 0 || report.Created != 0 || report.Updated != 0 {
		t.Errorf("Sync() report = %+v, want all zero", report)
	}
	if len(report.Errors) != 0 {
		t.Errorf("Sync() errors = %v, want none", report.Errors)
	}
	if store.batchCalls != 0 {
		t.Errorf("UpsertBatch called %d times on empty listing", store.batchCalls)
	}
}

func TestSyncNormalizesRecords(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}

	plants := []VendorPlant{
		{
			ExternalId: "p-1",
			CapacityKw: num("12.5"),
			Latitude:   num("16.8409"),
			LastSeenAt: "2026-08-30T14:00:00Z",
		},
		{
			ExternalId: "p-2",
			Name:       "  Named Plant  ",
		},
	}

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{plants: plants})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Synced != 2 || report.Created != 2 || report.Updated != 0 {
		t.Errorf("report = %+v, want 2 synced/created", report)
	}

	first := store.rows["p-1"]
	if first.Name != "Solarman Plant p-1" {
		t.Errorf("placeholder name = %q, want %q", first.Name, "Solarman Plant p-1")
	}
	if !first.CapacityKw.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("capacity = %s, want 12.5", first.CapacityKw)
	}
	if first.Latitude == nil || !first.Latitude.Equal(decimal.RequireFromString("16.8409")) {
		t.Errorf("latitude = %v, want 16.8409", first.Latitude)
	}
	if first.Longitude != nil || first.CurrentPowerKw != nil || first.EnergyTodayKwh != nil || first.EnergyTotalKwh != nil {
		t.Errorf("missing metrics should stay nil, got %+v", first)
	}
	if first.LastSeenAt == nil {
		t.Error("last seen at should be parsed")
	}
	if first.OrgId != "org-1" {
		t.Errorf("org id = %q, want org-1", first.OrgId)
	}
	if first.VendorId == nil || *first.VendorId != 7 {
		t.Errorf("vendor id = %v, want 7", first.VendorId)
	}

	second := store.rows["p-2"]
	if second.Name != "Named Plant" {
		t.Errorf("name = %q, want trimmed vendor name", second.Name)
	}
	if !second.CapacityKw.Equal(decimal.Zero) {
		t.Errorf("missing capacity = %s, want 0", second.CapacityKw)
	}
}

func TestSyncSkipsRecordsWithoutExternalId(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}

	plants := []VendorPlant{
		{ExternalId: "  "},
		{ExternalId: "p-1", Name: "Keeper"},
	}

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{plants: plants})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Total != 2 || report.Synced != 1 {
		t.Errorf("report = %+v, want total 2 synced 1", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].ExternalId != "" {
		t.Errorf("errors = %v, want one blank-id entry", report.Errors)
	}
	if _, ok := store.rows["p-1"]; !ok {
		t.Error("valid record should still be upserted")
	}
}

func TestSyncCountsCreatedAndUpdated(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}
	plants := []VendorPlant{
		{ExternalId: "p-1", Name: "One"},
		{ExternalId: "p-2", Name: "Two"},
		{ExternalId: "p-3", Name: "Three"},
	}
	adapter := &fakeAdapter{plants: plants}

	report, err := engine.Sync(context.Background(), testVendor(), adapter)
	if err != nil {
		t.Fatalf("first Sync() error = %v", err)
	}
	if report.Created != 3 || report.Updated != 0 {
		t.Errorf("first run report = %+v, want 3 created", report)
	}

	// The upsert is keyed on (vendor, external id), so a second run over the
	// same listing only updates.
	report, err = engine.Sync(context.Background(), testVendor(), adapter)
	if err != nil {
		t.Fatalf("second Sync() error = %v", err)
	}
	if report.Created != 0 || report.Updated != 3 || report.Synced != 3 {
		t.Errorf("second run report = %+v, want 3 updated", report)
	}
	if len(store.rows) != 3 {
		t.Errorf("store has %d rows, want 3", len(store.rows))
	}
}

func TestSyncBatching(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}

	plants := make([]VendorPlant, 0, 250)
	for i := 0; i < 250; i++ {
		plants = append(plants, VendorPlant{ExternalId: fmt.Sprintf("p-%03d", i)})
	}

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{plants: plants})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if store.batchCalls != 3 {
		t.Errorf("UpsertBatch called %d times, want 3 for 250 records at size 100", store.batchCalls)
	}
	if report.Synced != 250 || report.Created != 250 {
		t.Errorf("report = %+v, want 250 synced/created", report)
	}
}

func TestSyncBatchFailureFallsBackPerRecord(t *testing.T) {
	store := newFakeStore()
	store.batchErr = errors.New("duplicate entry")
	store.failOneFor = map[string]error{"p-2": errors.New("row too large")}
	engine := &Engine{Store: store, BatchSize: 100}

	plants := []VendorPlant{
		{ExternalId: "p-1"},
		{ExternalId: "p-2"},
		{ExternalId: "p-3"},
	}

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{plants: plants})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if store.oneCalls != 3 {
		t.Errorf("UpsertOne called %d times, want 3", store.oneCalls)
	}
	if report.Synced != 2 || report.Total != 3 {
		t.Errorf("report = %+v, want 2 of 3 synced", report)
	}
	if len(report.Errors) != 1 || report.Errors[0].ExternalId != "p-2" {
		t.Errorf("errors = %v, want one entry for p-2", report.Errors)
	}
	if _, ok := store.rows["p-2"]; ok {
		t.Error("failing record should not be stored")
	}
	if _, ok := store.rows["p-1"]; !ok {
		t.Error("healthy records should survive the fallback")
	}
}

func TestSyncReportErrorCap(t *testing.T) {
	store := newFakeStore()
	engine := &Engine{Store: store, BatchSize: 100}

	// 15 blank ids overflow the report cap, but Total still counts them all.
	plants := make([]VendorPlant, 15)

	report, err := engine.Sync(context.Background(), testVendor(), &fakeAdapter{plants: plants})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if report.Total != 15 || report.Synced != 0 {
		t.Errorf("report = %+v, want total 15 synced 0", report)
	}
	if len(report.Errors) != maxReportErrors {
		t.Errorf("errors len = %d, want cap %d", len(report.Errors), maxReportErrors)
	}
}

func TestAddErrorTruncatesMessage(t *testing.T) {
	var report SyncReport
	report.addError("p-1", strings.Repeat("x", maxErrorMessageLen+50))
	if len(report.Errors[0].Message) != maxErrorMessageLen {
		t.Errorf("message len = %d, want %d", len(report.Errors[0].Message), maxErrorMessageLen)
	}
}

func TestParseTimeOrNil(t *testing.T) {
	tests := []struct {
		value  string
		wantOk bool
	}{
		{"", false},
		{"2026-08-30T14:00:00Z", true},
		{"2026-08-30 14:00:00", true},
		{"2026-08-30", true},
		{"not a time", false},
	}
	for _, tt := range tests {
		got := parseTimeOrNil(tt.value)
		if (got != nil) != tt.wantOk {
			t.Errorf("parseTimeOrNil(%q) = %v, wantOk %v", tt.value, got, tt.wantOk)
		}
	}
}
