package vendorsync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/solarops_backend/config"
	"github.com/gin-gonic/gin"
)

func syncTopicName() string {
	topicName := strings.TrimSpace(os.Getenv("VENDOR_SYNC_TOPIC"))
	if topicName == "" {
		topicName = "vendor-sync"
	}
	return topicName
}

func PublishSyncRun(ctx context.Context, runId uint, orgId string, vendorId int) error {
	topicName := syncTopicName()

	if envBoolDefault("VENDOR_SYNC_CREATE_TOPIC", false) {
		client, err := config.GetClient(ctx)
		if err != nil {
			return err
		}
		if _, err := config.CreateTopicIfNotExists(client, topicName); err != nil {
			return err
		}
	}

	return config.PublishJSON(topicName, SyncPubSubPayload{
		RunId:    runId,
		OrgId:    orgId,
		VendorId: vendorId,
	})
}

// EnsureSubscription creates the sync topic and its pull subscription when
// the deployment manages its own Pub/Sub topology. Push deployments point
// their subscription at /pubsub/vendor-sync instead.
func EnsureSubscription(ctx context.Context) error {
	if !envBoolDefault("VENDOR_SYNC_CREATE_TOPIC", false) {
		return nil
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}
	topicName := syncTopicName()
	topic, err := config.CreateTopicIfNotExists(client, topicName)
	if err != nil {
		return err
	}

	subName := strings.TrimSpace(os.Getenv("VENDOR_SYNC_SUBSCRIPTION"))
	if subName == "" {
		subName = topicName + "-sub"
	}
	_, err = config.CreateSubscriptionIfNotExists(client, subName, topic)
	return err
}

// runSyncFn is swapped out in tests.
var runSyncFn = RunSync

// PubSubPushHandler receives push deliveries for queued sync runs. Malformed
// messages are acked with 204 so they are not redelivered forever. A run that
// loses the vendor lock answers 503 instead; the message comes back once the
// competing run releases it.
func PubSubPushHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !envBoolDefault("ENABLE_VENDOR_SYNC_PUSH_ENDPOINT", true) {
			c.Status(204)
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(204)
			return
		}

		var envelope PubSubPushEnvelope
		if err := json.Unmarshal(body, &envelope); err != nil {
			c.Status(204)
			return
		}

		var payload SyncPubSubPayload
		if err := json.Unmarshal(envelope.Message.Data, &payload); err != nil {
			c.Status(204)
			return
		}
		if payload.RunId == 0 || payload.OrgId == "" || payload.VendorId == 0 {
			c.Status(204)
			return
		}

		if _, err := runSyncFn(c.Request.Context(), payload.VendorId, payload.RunId, ""); err != nil {
			if errors.Is(err, ErrSyncInProgress) {
				c.Status(503)
				return
			}
			// anything else is permanent or already marked on the run row
		}
		c.Status(204)
	}
}

func envBoolDefault(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
