package vendorsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func pushEnvelopeBody(t *testing.T, payload SyncPubSubPayload) []byte {
	t.Helper()

	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var envelope PubSubPushEnvelope
	envelope.Message.Data = data
	envelope.Message.ID = "msg-1"
	envelope.Subscription = "projects/test/subscriptions/vendor-sync-sub"

	body, err := json.Marshal(&envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return body
}

func postPush(t *testing.T, body []byte) *httptest.ResponseRecorder {
	t.Helper()

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/pubsub/vendor-sync", PubSubPushHandler())

	req := httptest.NewRequest(http.MethodPost, "/pubsub/vendor-sync", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPubSubPushRetriesLockedRun(t *testing.T) {
	orig := runSyncFn
	defer func() { runSyncFn = orig }()

	var gotVendorId int
	var gotRunId uint
	runSyncFn = func(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
		gotVendorId = vendorId
		gotRunId = runId
		return nil, ErrSyncInProgress
	}

	w := postPush(t, pushEnvelopeBody(t, SyncPubSubPayload{RunId: 42, OrgId: "org-1", VendorId: 7}))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so the message is redelivered, got %d", w.Code)
	}
	if gotVendorId != 7 || gotRunId != 42 {
		t.Fatalf("expected run 42 for vendor 7, got run %d vendor %d", gotRunId, gotVendorId)
	}
}

func TestPubSubPushAcksFailedRun(t *testing.T) {
	orig := runSyncFn
	defer func() { runSyncFn = orig }()

	runSyncFn = func(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
		return nil, errors.New("adapter unreachable")
	}

	w := postPush(t, pushEnvelopeBody(t, SyncPubSubPayload{RunId: 42, OrgId: "org-1", VendorId: 7}))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected a failed run to be acked with 204, got %d", w.Code)
	}
}

func TestPubSubPushAcksCompletedRun(t *testing.T) {
	orig := runSyncFn
	defer func() { runSyncFn = orig }()

	runSyncFn = func(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
		return &SyncReport{Total: 3, Synced: 3}, nil
	}

	w := postPush(t, pushEnvelopeBody(t, SyncPubSubPayload{RunId: 42, OrgId: "org-1", VendorId: 7}))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}

func TestPubSubPushAcksMalformedMessage(t *testing.T) {
	orig := runSyncFn
	defer func() { runSyncFn = orig }()

	called := false
	runSyncFn = func(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
		called = true
		return nil, nil
	}

	w := postPush(t, []byte("not a pubsub envelope"))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected malformed messages to be acked with 204, got %d", w.Code)
	}
	if called {
		t.Fatal("expected no run attempt for a malformed message")
	}
}

func TestPubSubPushAcksIncompletePayload(t *testing.T) {
	orig := runSyncFn
	defer func() { runSyncFn = orig }()

	called := false
	runSyncFn = func(ctx context.Context, vendorId int, runId uint, triggeredBy string) (*SyncReport, error) {
		called = true
		return nil, nil
	}

	w := postPush(t, pushEnvelopeBody(t, SyncPubSubPayload{RunId: 0, OrgId: "org-1", VendorId: 7}))

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if called {
		t.Fatal("expected no run attempt without a run id")
	}
}
