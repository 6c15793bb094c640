package models

import "fmt"

type WorkOrderStatus string

const (
	WorkOrderStatusOpen              WorkOrderStatus = "OPEN"
	WorkOrderStatusAssigned          WorkOrderStatus = "ASSIGNED"
	WorkOrderStatusInProgress        WorkOrderStatus = "IN_PROGRESS"
	WorkOrderStatusWaitingValidation WorkOrderStatus = "WAITING_VALIDATION"
	WorkOrderStatusBlocked           WorkOrderStatus = "BLOCKED"
	WorkOrderStatusClosed            WorkOrderStatus = "CLOSED"
)

func (s WorkOrderStatus) IsValid() bool {
	_, ok := workOrderTransitions[s]
	return ok
}

func (s WorkOrderStatus) IsTerminal() bool {
	return s == WorkOrderStatusClosed
}

// workOrderTransitions is the single source of truth for the work order
// lifecycle. Anything not listed here is denied. BLOCKED is reachable from
// every non-terminal state and only ever resumes into IN_PROGRESS, so a
// blocked order re-enters active execution regardless of where it stalled.
var workOrderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	WorkOrderStatusOpen:              {WorkOrderStatusAssigned, WorkOrderStatusBlocked},
	WorkOrderStatusAssigned:          {WorkOrderStatusInProgress, WorkOrderStatusBlocked},
	WorkOrderStatusInProgress:        {WorkOrderStatusWaitingValidation, WorkOrderStatusBlocked},
	WorkOrderStatusWaitingValidation: {WorkOrderStatusClosed, WorkOrderStatusBlocked},
	WorkOrderStatusBlocked:           {WorkOrderStatusInProgress},
	WorkOrderStatusClosed:            {},
}

type InvalidTransitionError struct {
	From WorkOrderStatus
	To   WorkOrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid work order transition from %s to %s", e.From, e.To)
}

// IsValidWorkOrderTransition reports whether from -> to is allowed.
// Same-state "transitions" are always denied, as are moves out of CLOSED.
func IsValidWorkOrderTransition(from WorkOrderStatus, to WorkOrderStatus) bool {
	if from == to {
		return false
	}
	allowed, ok := workOrderTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// NextValidStatuses returns the statuses reachable from the given state.
// Unknown states and CLOSED both return an empty slice.
func NextValidStatuses(from WorkOrderStatus) []WorkOrderStatus {
	allowed, ok := workOrderTransitions[from]
	if !ok {
		return []WorkOrderStatus{}
	}
	result := make([]WorkOrderStatus, len(allowed))
	copy(result, allowed)
	return result
}
