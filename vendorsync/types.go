package vendorsync

import "encoding/json"

const (
	// maxReportErrors caps the error list carried in a sync report. The full
	// set is still persisted as VendorSyncRecordError rows.
	maxReportErrors = 10

	maxErrorMessageLen = 200
)

// SyncReport summarizes one sync run. Synced counts records that reached the
// store; Total counts everything the vendor listed.
type SyncReport struct {
	Synced  int               `json:"synced"`
	Total   int               `json:"total"`
	Created int               `json:"created"`
	Updated int               `json:"updated"`
	Errors  []SyncRecordError `json:"errors"`
}

type SyncRecordError struct {
	ExternalId string `json:"external_id"`
	Message    string `json:"message"`
}

// addError appends to the capped error list. Counting is done separately so
// the cap never skews the report numbers.
func (r *SyncReport) addError(externalId string, message string) {
	if len(r.Errors) >= maxReportErrors {
		return
	}
	if len(message) > maxErrorMessageLen {
		message = message[:maxErrorMessageLen]
	}
	r.Errors = append(r.Errors, SyncRecordError{
		ExternalId: externalId,
		Message:    message,
	})
}

// VendorPlant is the normalized record an adapter hands the engine. Numeric
// fields stay json.Number so vendor payloads with strings or floats both work.
type VendorPlant struct {
	ExternalId     string       `json:"external_id"`
	Name           string       `json:"name"`
	CapacityKw     *json.Number `json:"capacity_kw"`
	CurrentPowerKw *json.Number `json:"current_power_kw"`
	EnergyTodayKwh *json.Number `json:"energy_today_kwh"`
	EnergyTotalKwh *json.Number `json:"energy_total_kwh"`
	Latitude       *json.Number `json:"latitude"`
	Longitude      *json.Number `json:"longitude"`
	Address        string       `json:"address"`
	LastSeenAt     string       `json:"last_seen_at"`
}

type TriggerSyncRequest struct {
	TriggeredBy string `json:"triggeredBy"`
}

type SyncHistoryResponse struct {
	Items []SyncRunResponse `json:"items"`
}

type SyncRunResponse struct {
	ID          uint    `json:"id"`
	VendorId    int     `json:"vendorId"`
	Status      string  `json:"status"`
	StartedAt   *string `json:"startedAt"`
	FinishedAt  *string `json:"finishedAt"`
	DurationMs  int64   `json:"durationMs"`
	Total       int     `json:"total"`
	Synced      int     `json:"synced"`
	Created     int     `json:"created"`
	Updated     int     `json:"updated"`
	ErrorCount  int     `json:"errorCount"`
	TriggeredBy string  `json:"triggeredBy"`
}

type SyncRunDetailResponse struct {
	SyncRunResponse
	Errors []SyncErrorResponse `json:"errors"`
}

type SyncErrorResponse struct {
	ID         uint   `json:"id"`
	ExternalId string `json:"externalId"`
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

type PubSubPushEnvelope struct {
	Message struct {
		Data []byte `json:"data"`
		ID   string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type SyncPubSubPayload struct {
	RunId    uint   `json:"run_id"`
	OrgId    string `json:"org_id"`
	VendorId int    `json:"vendor_id"`
}
