package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/kafka"
)

// CatalogUpdatedEvent announces that route records changed upstream. An empty RouteIDs
// means the whole catalog may have changed.
type CatalogUpdatedEvent struct {
	RouteIDs []route.ID `json:"route_ids"`
}

// CatalogEventConsumer listens to catalog events and refreshes the in-memory catalog.
type CatalogEventConsumer struct {
	consumer *kafka.Consumer
	catalog  *application.Catalog
	cache    application.ProfileCache
	logger   *zap.Logger
}

// NewCatalogEventConsumer creates a new CatalogEventConsumer. cache may be nil.
func NewCatalogEventConsumer(
	brokers []string,
	groupID string,
	catalog *application.Catalog,
	cache application.ProfileCache,
	logger *zap.Logger,
) *CatalogEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicCatalogEvents, logger)
	return &CatalogEventConsumer{
		consumer: consumer,
		catalog:  catalog,
		cache:    cache,
		logger:   logger,
	}
}

// Start begins consuming catalog events. This blocks until the context is cancelled.
func (c *CatalogEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *CatalogEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *CatalogEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from catalog topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case CatalogUpdated:
		return c.handleCatalogUpdated(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled catalog event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *CatalogEventConsumer) handleCatalogUpdated(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt CatalogUpdatedEvent
	if len(cloudEvent.Data) > 0 {
		if err := cloudEvent.ParseData(&evt); err != nil {
			c.logger.Error("failed to parse CatalogUpdatedEvent data", zap.Error(err))
			return nil // Don't retry malformed data
		}
	}

	c.logger.Info("processing catalog updated event", zap.Int("routes", len(evt.RouteIDs)))

	// Cached profiles are derived from geometry, so drop them before reloading
	if c.cache != nil && len(evt.RouteIDs) > 0 {
		if err := c.cache.Invalidate(ctx, evt.RouteIDs...); err != nil {
			c.logger.Warn("failed to invalidate cached profiles", zap.Error(err))
		}
	}

	if err := c.catalog.Refresh(ctx); err != nil {
		c.logger.Error("failed to refresh catalog after update", zap.Error(err))
		return err
	}
	return nil
}
