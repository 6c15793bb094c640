package models

type UserRole string

const (
	UserRoleAdmin    UserRole = "A"
	UserRoleOperator UserRole = "O"
	UserRoleAuditor  UserRole = "U"
)

func (r UserRole) IsValid() bool {
	switch r {
	case UserRoleAdmin, UserRoleOperator, UserRoleAuditor:
		return true
	}
	return false
}

type WorkOrderPriority string

const (
	WorkOrderPriorityLow      WorkOrderPriority = "Low"
	WorkOrderPriorityMedium   WorkOrderPriority = "Medium"
	WorkOrderPriorityHigh     WorkOrderPriority = "High"
	WorkOrderPriorityCritical WorkOrderPriority = "Critical"
)

func (p WorkOrderPriority) IsValid() bool {
	switch p {
	case WorkOrderPriorityLow, WorkOrderPriorityMedium, WorkOrderPriorityHigh, WorkOrderPriorityCritical:
		return true
	}
	return false
}

const (
	VendorProviderSolarman = "solarman"
	VendorProviderStatic   = "static"
)

const (
	VendorStatusConnected    = "connected"
	VendorStatusDisconnected = "disconnected"
	VendorStatusError        = "error"
)

const (
	SyncRunStatusQueued  = "queued"
	SyncRunStatusRunning = "running"
	SyncRunStatusSuccess = "success"
	SyncRunStatusFailed  = "failed"
	SyncRunStatusPartial = "partial"
)

const (
	SyncTriggeredManual = "manual"
	SyncTriggeredRetry  = "retry"
	SyncTriggeredSystem = "system"
)

type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "Info"
	AlertSeverityWarning  AlertSeverity = "Warning"
	AlertSeverityCritical AlertSeverity = "Critical"
)

func (s AlertSeverity) IsValid() bool {
	switch s {
	case AlertSeverityInfo, AlertSeverityWarning, AlertSeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	AlertStatusOpen         AlertStatus = "Open"
	AlertStatusAcknowledged AlertStatus = "Acknowledged"
	AlertStatusResolved     AlertStatus = "Resolved"
)
