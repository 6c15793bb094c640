package config

import (
	"os"
	"strconv"
	"strings"
)

// VendorSyncBatchSize is the upsert batch size for vendor plant syncs.
//
// Set via env:
// - VENDOR_SYNC_BATCH_SIZE=100
func VendorSyncBatchSize() int {
	raw := strings.TrimSpace(os.Getenv("VENDOR_SYNC_BATCH_SIZE"))
	if raw == "" {
		return 100
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 100
	}
	return n
}

// AsyncVendorSyncEnabled routes sync triggers through Pub/Sub to the worker
// service instead of running inline in the request.
//
// Set via env:
// - ASYNC_VENDOR_SYNC=true
func AsyncVendorSyncEnabled() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("ASYNC_VENDOR_SYNC")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
