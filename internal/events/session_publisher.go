package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/metrics"
	"github.com/trailview/service-routes/internal/platform/kafka"
)

// EventProducer writes CloudEvents to a topic.
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event kafka.CloudEvent) error
}

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 5 * time.Second
)

// SessionEventPublisher forwards session events to Kafka. Events are queued and written by
// a single goroutine so session turns never wait on the broker; a full queue drops events.
type SessionEventPublisher struct {
	producer EventProducer
	topic    string
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan kafka.CloudEvent
	done   chan struct{}
}

// NewSessionEventPublisher creates a publisher and starts its writer goroutine.
func NewSessionEventPublisher(producer EventProducer, queueSize int, logger *zap.Logger) *SessionEventPublisher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	p := &SessionEventPublisher{
		producer: producer,
		topic:    TopicSessionEvents,
		timeout:  defaultPublishTimeout,
		logger:   logger,
		queue:    make(chan kafka.CloudEvent, queueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *SessionEventPublisher) RouteSelected(e application.RouteSelectedEvent) {
	p.enqueue(RouteSelected, e.SessionID, e)
}

func (p *SessionEventPublisher) SelectionCleared(e application.SelectionClearedEvent) {
	p.enqueue(RouteSelectionCleared, e.SessionID, e)
}

func (p *SessionEventPublisher) ExtentChanged(e application.ExtentChangedEvent) {
	p.enqueue(ViewportExtentChanged, e.SessionID, e)
}

func (p *SessionEventPublisher) LanguageChanged(e application.LanguageChangedEvent) {
	p.enqueue(SessionLanguageChanged, e.SessionID, e)
}

func (p *SessionEventPublisher) enqueue(eventType, sessionID string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(EventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event", zap.String("type", eventType), zap.Error(err))
		metrics.EventsPublishedTotal.WithLabelValues(eventType, "error").Inc()
		return
	}
	cloudEvent.Subject = sessionID

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- cloudEvent:
	default:
		metrics.EventsPublishedTotal.WithLabelValues(eventType, "dropped").Inc()
		p.logger.Warn("session event queue full, dropping event",
			zap.String("type", eventType),
			zap.String("session_id", sessionID),
		)
	}
}

func (p *SessionEventPublisher) run() {
	defer close(p.done)
	for cloudEvent := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.producer.PublishEvent(ctx, p.topic, cloudEvent)
		cancel()
		if err != nil {
			metrics.EventsPublishedTotal.WithLabelValues(cloudEvent.Type, "error").Inc()
			p.logger.Error("failed to publish session event",
				zap.String("type", cloudEvent.Type),
				zap.String("session_id", cloudEvent.Subject),
				zap.Error(err),
			)
			continue
		}
		metrics.EventsPublishedTotal.WithLabelValues(cloudEvent.Type, "ok").Inc()
	}
}

// Close stops accepting events, drains the queue and waits for the writer to finish.
func (p *SessionEventPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}
