package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitbucket.org/mmdatafocus/solarops_backend/models"
	"github.com/gin-gonic/gin"
)

func putStatus(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.PUT("/work-orders/:id/status", UpdateWorkOrderStatusHandler())

	req := httptest.NewRequest(http.MethodPut, "/work-orders/7/status", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUpdateWorkOrderStatusInvalidTransitionAnswers400(t *testing.T) {
	orig := updateWorkOrderStatus
	defer func() { updateWorkOrderStatus = orig }()

	updateWorkOrderStatus = func(ctx context.Context, id int, to models.WorkOrderStatus, reason string) (*models.WorkOrder, error) {
		return nil, &models.InvalidTransitionError{From: models.WorkOrderStatusOpen, To: to}
	}

	w := putStatus(t, `{"status":"CLOSED"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid transition, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["from"] != "OPEN" || resp["to"] != "CLOSED" {
		t.Fatalf("expected the offending pair in the response, got %v", resp)
	}
}

func TestUpdateWorkOrderStatusAccepted(t *testing.T) {
	orig := updateWorkOrderStatus
	defer func() { updateWorkOrderStatus = orig }()

	updateWorkOrderStatus = func(ctx context.Context, id int, to models.WorkOrderStatus, reason string) (*models.WorkOrder, error) {
		return &models.WorkOrder{ID: id, Status: to}, nil
	}

	w := putStatus(t, `{"status":"ASSIGNED"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestUpdateWorkOrderStatusRejectsUnknownStatus(t *testing.T) {
	called := false
	orig := updateWorkOrderStatus
	defer func() { updateWorkOrderStatus = orig }()
	updateWorkOrderStatus = func(ctx context.Context, id int, to models.WorkOrderStatus, reason string) (*models.WorkOrder, error) {
		called = true
		return nil, nil
	}

	w := putStatus(t, `{"status":"ARCHIVED"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an unknown status, got %d", w.Code)
	}
	if called {
		t.Fatal("expected the model layer to stay untouched for an unknown status")
	}
}
