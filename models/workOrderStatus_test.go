package models

import "testing"

func TestIsValidWorkOrderTransition(t *testing.T) {
	tests := []struct {
		name string
		from WorkOrderStatus
		to   WorkOrderStatus
		want bool
	}{
		{"open to assigned", WorkOrderStatusOpen, WorkOrderStatusAssigned, true},
		{"open to blocked", WorkOrderStatusOpen, WorkOrderStatusBlocked, true},
		{"open skips assignment", WorkOrderStatusOpen, WorkOrderStatusInProgress, false},
		{"open straight to closed", WorkOrderStatusOpen, WorkOrderStatusClosed, false},
		{"assigned to in progress", WorkOrderStatusAssigned, WorkOrderStatusInProgress, true},
		{"assigned to blocked", WorkOrderStatusAssigned, WorkOrderStatusBlocked, true},
		{"assigned back to open", WorkOrderStatusAssigned, WorkOrderStatusOpen, false},
		{"assigned skips execution", WorkOrderStatusAssigned, WorkOrderStatusWaitingValidation, false},
		{"in progress to validation", WorkOrderStatusInProgress, WorkOrderStatusWaitingValidation, true},
		{"in progress to blocked", WorkOrderStatusInProgress, WorkOrderStatusBlocked, true},
		{"in progress straight to closed", WorkOrderStatusInProgress, WorkOrderStatusClosed, false},
		{"validation to closed", WorkOrderStatusWaitingValidation, WorkOrderStatusClosed, true},
		{"validation to blocked", WorkOrderStatusWaitingValidation, WorkOrderStatusBlocked, true},
		{"validation back to in progress", WorkOrderStatusWaitingValidation, WorkOrderStatusInProgress, false},
		{"blocked resumes in progress", WorkOrderStatusBlocked, WorkOrderStatusInProgress, true},
		{"blocked cannot go to assigned", WorkOrderStatusBlocked, WorkOrderStatusAssigned, false},
		{"blocked cannot close", WorkOrderStatusBlocked, WorkOrderStatusClosed, false},
		{"closed is terminal", WorkOrderStatusClosed, WorkOrderStatusBlocked, false},
		{"closed cannot reopen", WorkOrderStatusClosed, WorkOrderStatusOpen, false},
		{"same state denied", WorkOrderStatusOpen, WorkOrderStatusOpen, false},
		{"same blocked denied", WorkOrderStatusBlocked, WorkOrderStatusBlocked, false},
		{"unknown from", WorkOrderStatus("ARCHIVED"), WorkOrderStatusOpen, false},
		{"unknown to", WorkOrderStatusOpen, WorkOrderStatus("ARCHIVED"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidWorkOrderTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("IsValidWorkOrderTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestNextValidStatuses(t *testing.T) {
	tests := []struct {
		from WorkOrderStatus
		want []WorkOrderStatus
	}{
		{WorkOrderStatusOpen, []WorkOrderStatus{WorkOrderStatusAssigned, WorkOrderStatusBlocked}},
		{WorkOrderStatusAssigned, []WorkOrderStatus{WorkOrderStatusInProgress, WorkOrderStatusBlocked}},
		{WorkOrderStatusInProgress, []WorkOrderStatus{WorkOrderStatusWaitingValidation, WorkOrderStatusBlocked}},
		{WorkOrderStatusWaitingValidation, []WorkOrderStatus{WorkOrderStatusClosed, WorkOrderStatusBlocked}},
		{WorkOrderStatusBlocked, []WorkOrderStatus{WorkOrderStatusInProgress}},
		{WorkOrderStatusClosed, []WorkOrderStatus{}},
		{WorkOrderStatus("ARCHIVED"), []WorkOrderStatus{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got := NextValidStatuses(tt.from)
			if len(got) != len(tt.want) {
				t.Fatalf("NextValidStatuses(%s) = %v, want %v", tt.from, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("NextValidStatuses(%s)[%d] = %s, want %s", tt.from, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNextValidStatusesCopies(t *testing.T) {
	got := NextValidStatuses(WorkOrderStatusOpen)
	got[0] = WorkOrderStatusClosed

	again := NextValidStatuses(WorkOrderStatusOpen)
	if again[0] != WorkOrderStatusAssigned {
		t.Errorf("NextValidStatuses leaked its backing array: got %v", again)
	}
}

func TestWorkOrderStatusIsTerminal(t *testing.T) {
	if !WorkOrderStatusClosed.IsTerminal() {
		t.Error("CLOSED should be terminal")
	}
	for _, s := range []WorkOrderStatus{
		WorkOrderStatusOpen, WorkOrderStatusAssigned, WorkOrderStatusInProgress,
		WorkOrderStatusWaitingValidation, WorkOrderStatusBlocked,
	} {
		if s.IsTerminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestInvalidTransitionErrorMessage(t *testing.T) {
	err := &InvalidTransitionError{From: WorkOrderStatusOpen, To: WorkOrderStatusClosed}
	want := "invalid work order transition from OPEN to CLOSED"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
