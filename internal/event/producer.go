// Package event publishes catalog sync lifecycle events to Kafka. Event
// consumers (front-end cache warmers, reporting) are downstream conveniences;
// publication failures never fail the pipeline that raised them.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/baignoire/fitmatch/internal/domain"
	pkgkafka "github.com/baignoire/fitmatch/pkg/kafka"
)

// Event types carried on the sync topic.
const (
	TypeSyncCompleted        = "sync.completed"
	TypeSyncFailed           = "sync.failed"
	TypeCompatibilityUpdated = "compatibility.updated"
)

// Aggregate type constant.
const AggregateTypeSync = "sync"

// Source identifier for events originating from this service.
const SourceCatalogSync = "fitmatch"

// SyncCompletedData is the payload for a sync.completed event.
type SyncCompletedData struct {
	SyncID                 string `json:"sync_id"`
	SourceURL              string `json:"source_url"`
	Added                  int    `json:"added"`
	Updated                int    `json:"updated"`
	Deleted                int    `json:"deleted"`
	CompatibilitiesUpdated int    `json:"compatibilities_updated"`
}

// SyncFailedData is the payload for a sync.failed event.
type SyncFailedData struct {
	SyncID    string `json:"sync_id"`
	SourceURL string `json:"source_url"`
	Error     string `json:"error"`
}

// CompatibilityUpdatedData is the payload for a compatibility.updated event.
type CompatibilityUpdatedData struct {
	SyncID       string `json:"sync_id"`
	AnchorCount  int    `json:"anchor_count"`
	EdgesWritten int    `json:"edges_written"`
}

// Producer publishes sync domain events to one topic.
type Producer struct {
	kafka  *pkgkafka.Producer
	topic  string
	logger *slog.Logger
}

// NewProducer creates an event producer for the catalog sync topic.
func NewProducer(kafka *pkgkafka.Producer, topic string, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		topic:  topic,
		logger: logger,
	}
}

// PublishSyncCompleted publishes a sync.completed event for a terminal record.
func (p *Producer) PublishSyncCompleted(ctx context.Context, record *domain.SyncRecord) error {
	data := SyncCompletedData{
		SyncID:                 record.ID,
		SourceURL:              record.SourceURL,
		Added:                  record.Added,
		Updated:                record.Updated,
		Deleted:                record.Deleted,
		CompatibilitiesUpdated: record.CompatibilitiesUpdated,
	}

	event, err := pkgkafka.NewEvent(TypeSyncCompleted, record.ID, AggregateTypeSync, SourceCatalogSync, data)
	if err != nil {
		return fmt.Errorf("create sync.completed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish sync.completed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sync.completed event",
		slog.String("sync_id", record.ID),
	)

	return nil
}

// PublishSyncFailed publishes a sync.failed event.
func (p *Producer) PublishSyncFailed(ctx context.Context, record *domain.SyncRecord, message string) error {
	data := SyncFailedData{
		SyncID:    record.ID,
		SourceURL: record.SourceURL,
		Error:     message,
	}

	event, err := pkgkafka.NewEvent(TypeSyncFailed, record.ID, AggregateTypeSync, SourceCatalogSync, data)
	if err != nil {
		return fmt.Errorf("create sync.failed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish sync.failed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published sync.failed event",
		slog.String("sync_id", record.ID),
	)

	return nil
}

// PublishCompatibilityUpdated publishes a compatibility.updated event after a
// materialization rebuilt edges.
func (p *Producer) PublishCompatibilityUpdated(ctx context.Context, syncID string, anchorCount, edgesWritten int) error {
	data := CompatibilityUpdatedData{
		SyncID:       syncID,
		AnchorCount:  anchorCount,
		EdgesWritten: edgesWritten,
	}

	event, err := pkgkafka.NewEvent(TypeCompatibilityUpdated, syncID, AggregateTypeSync, SourceCatalogSync, data)
	if err != nil {
		return fmt.Errorf("create compatibility.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, p.topic, event); err != nil {
		return fmt.Errorf("publish compatibility.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published compatibility.updated event",
		slog.String("sync_id", syncID),
		slog.Int("edges_written", edgesWritten),
	)

	return nil
}
