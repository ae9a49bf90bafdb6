// Package stream provides DynamoDB Streams handlers that keep the blob
// bucket in step with the store and product tables.
package stream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/storefront/blob"
	"github.com/jacentio/storefront/docdb"
)

// Sweep reasons reported to the Recorder.
const (
	ReasonStoreRemoved   = "store_removed"
	ReasonProductRemoved = "product_removed"
	ReasonSuperseded     = "superseded"
)

// Blobs is the subset of *blob.Bucket used by the sweeper.
type Blobs interface {
	ListBefore(ctx context.Context, prefix string, cutoff time.Time) ([]string, error)
	DeleteMany(ctx context.Context, keys []string) error
}

// Recorder receives sweep outcomes.
type Recorder interface {
	BlobsSwept(reason string, keys int)
	SweepFailed()
}

type nopRecorder struct{}

func (nopRecorder) BlobsSwept(string, int) {}
func (nopRecorder) SweepFailed()           {}

// Handler processes DynamoDB stream events and removes blobs that no longer
// belong to a live store or product.
type Handler struct {
	blobs    Blobs
	recorder Recorder
	logger   *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(blobs Blobs, recorder Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Handler{
		blobs:    blobs,
		recorder: recorder,
		logger:   logger,
	}
}

// HandleBlobSweep processes a batch of stream records from the stores and
// products tables. It is designed to be used as an AWS Lambda handler; the
// stream must carry both old and new images.
func (h *Handler) HandleBlobSweep(ctx context.Context, event events.DynamoDBEvent) error {
	for i := range event.Records {
		record := &event.Records[i]
		if err := h.processRecord(ctx, record); err != nil {
			h.recorder.SweepFailed()
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record *events.DynamoDBEventRecord) error {
	// Relationship and unique constraint records carry an entity_ref too,
	// but only entity items are keyed by id.
	if _, ok := record.Change.Keys["id"]; !ok {
		return nil
	}

	switch record.EventName {
	case string(events.DynamoDBOperationTypeRemove):
		return h.sweepRemoved(ctx, record)
	case string(events.DynamoDBOperationTypeModify):
		return h.sweepSuperseded(ctx, record)
	default:
		return nil
	}
}

func (h *Handler) sweepRemoved(ctx context.Context, record *events.DynamoDBEventRecord) error {
	old := record.Change.OldImage
	entityType, id := docdb.SplitRef(getStringAttr(old, "entity_ref"))

	switch entityType {
	case "store":
		// Objects written after the removal belong to a store recreated
		// under the same id.
		cutoff := record.Change.ApproximateCreationDateTime.Time
		keys, err := h.blobs.ListBefore(ctx, blob.StorePrefix(id), cutoff)
		if err != nil {
			return fmt.Errorf("list store %s: %w", id, err)
		}
		keys = append(keys, getStringAttr(old, "logo_key"))
		return h.remove(ctx, ReasonStoreRemoved, id, keys, getNumberAttr(old, "version"))

	case "product":
		// Only the keys the product recorded. A product re-added under the
		// same productId shares its prefix.
		return h.remove(ctx, ReasonProductRemoved, id, getStringListAttr(old, "images"), getNumberAttr(old, "version"))
	}
	return nil
}

func (h *Handler) sweepSuperseded(ctx context.Context, record *events.DynamoDBEventRecord) error {
	old, cur := record.Change.OldImage, record.Change.NewImage
	entityType, id := docdb.SplitRef(getStringAttr(cur, "entity_ref"))

	var stale []string
	switch entityType {
	case "store":
		if prev := getStringAttr(old, "logo_key"); prev != "" && prev != getStringAttr(cur, "logo_key") {
			stale = append(stale, prev)
		}
	case "product":
		stale = missing(getStringListAttr(old, "images"), getStringListAttr(cur, "images"))
	default:
		return nil
	}
	return h.remove(ctx, ReasonSuperseded, id, stale, getNumberAttr(cur, "version"))
}

func (h *Handler) remove(ctx context.Context, reason, id string, keys []string, version int64) error {
	keys = nonEmpty(keys)
	if len(keys) == 0 {
		return nil
	}

	err := h.blobs.DeleteMany(ctx, keys)
	swept := len(keys)
	var delErr *blob.DeleteError
	if errors.As(err, &delErr) {
		swept -= len(delErr.Keys)
	}
	if swept > 0 {
		h.recorder.BlobsSwept(reason, swept)
	}
	if err != nil {
		return fmt.Errorf("sweep %s blobs of %s: %w", reason, id, err)
	}

	h.logger.Info("blobs swept",
		"reason", reason,
		"id", id,
		"version", version,
		"keys", len(keys),
	)
	return nil
}

// missing returns the entries of before that are absent from after.
func missing(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, k := range after {
		keep[k] = true
	}
	var out []string
	for _, k := range before {
		if !keep[k] {
			out = append(out, k)
		}
	}
	return out
}

func nonEmpty(keys []string) []string {
	out := keys[:0:0]
	for _, k := range keys {
		if k != "" {
			out = append(out, k)
		}
	}
	return out
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}

// getStringListAttr extracts a string list attribute from a DynamoDB stream
// image. String sets are accepted as well.
func getStringListAttr(image map[string]events.DynamoDBAttributeValue, key string) []string {
	v, ok := image[key]
	if !ok {
		return nil
	}
	switch v.DataType() {
	case events.DataTypeList:
		var result []string
		for _, item := range v.List() {
			if item.DataType() == events.DataTypeString {
				result = append(result, item.String())
			}
		}
		return result
	case events.DataTypeStringSet:
		return v.StringSet()
	}
	return nil
}
