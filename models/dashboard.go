package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"bitbucket.org/mmdatafocus/solarops_backend/utils"
	"github.com/shopspring/decimal"
)

type DashboardSummary struct {
	PlantCount          int64                     `json:"plant_count"`
	ActivePlantCount    int64                     `json:"active_plant_count"`
	TotalCapacityKw     decimal.Decimal           `json:"total_capacity_kw"`
	TotalCurrentPowerKw decimal.Decimal           `json:"total_current_power_kw"`
	EnergyTodayKwh      decimal.Decimal           `json:"energy_today_kwh"`
	WorkOrdersByStatus  map[WorkOrderStatus]int64 `json:"work_orders_by_status"`
	ClosedThisMonth     int64                     `json:"closed_this_month"`
	ClosedLastMonth     int64                     `json:"closed_last_month"`
	OpenAlertCount      int64                     `json:"open_alert_count"`
	CriticalAlertCount  int64                     `json:"critical_alert_count"`
}

type statusCount struct {
	Status WorkOrderStatus
	Count  int64
}

// GetDashboardSummary aggregates the landing page numbers for the org.
func GetDashboardSummary(ctx context.Context) (*DashboardSummary, error) {
	orgId, ok := utils.GetOrgIdFromContext(ctx)
	if !ok || orgId == "" {
		return nil, errors.New("org id is required")
	}

	db := config.GetDB()
	summary := DashboardSummary{
		WorkOrdersByStatus: make(map[WorkOrderStatus]int64),
	}

	if err := db.WithContext(ctx).Model(&Plant{}).
		Where("org_id = ?", orgId).Count(&summary.PlantCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Plant{}).
		Where("org_id = ? AND is_active = ?", orgId, true).Count(&summary.ActivePlantCount).Error; err != nil {
		return nil, err
	}

	type totals struct {
		Capacity     decimal.Decimal
		CurrentPower decimal.Decimal
		EnergyToday  decimal.Decimal
	}
	var t totals
	if err := db.WithContext(ctx).Model(&Plant{}).
		Select("COALESCE(SUM(capacity_kw), 0) AS capacity, COALESCE(SUM(current_power_kw), 0) AS current_power, COALESCE(SUM(energy_today_kwh), 0) AS energy_today").
		Where("org_id = ?", orgId).Scan(&t).Error; err != nil {
		return nil, err
	}
	summary.TotalCapacityKw = t.Capacity
	summary.TotalCurrentPowerKw = t.CurrentPower
	summary.EnergyTodayKwh = t.EnergyToday

	var counts []statusCount
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Select("status, COUNT(*) AS count").
		Where("org_id = ?", orgId).Group("status").Scan(&counts).Error; err != nil {
		return nil, err
	}
	for _, c := range counts {
		summary.WorkOrdersByStatus[c.Status] = c.Count
	}

	monthStart, monthEnd := utils.GetThisMonthRange()
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Where("org_id = ? AND status = ? AND closed_at BETWEEN ? AND ?", orgId, WorkOrderStatusClosed, monthStart, monthEnd).
		Count(&summary.ClosedThisMonth).Error; err != nil {
		return nil, err
	}
	prevStart, prevEnd := utils.GetPreviousMonthRange()
	if err := db.WithContext(ctx).Model(&WorkOrder{}).
		Where("org_id = ? AND status = ? AND closed_at BETWEEN ? AND ?", orgId, WorkOrderStatusClosed, prevStart, prevEnd).
		Count(&summary.ClosedLastMonth).Error; err != nil {
		return nil, err
	}

	if err := db.WithContext(ctx).Model(&Alert{}).
		Where("org_id = ? AND status = ?", orgId, AlertStatusOpen).Count(&summary.OpenAlertCount).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Alert{}).
		Where("org_id = ? AND status <> ? AND severity = ?", orgId, AlertStatusResolved, AlertSeverityCritical).
		Count(&summary.CriticalAlertCount).Error; err != nil {
		return nil, err
	}

	return &summary, nil
}
