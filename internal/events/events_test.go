package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/kafka"
)

type capturingProducer struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
	topics []string
	err    error
}

func (p *capturingProducer) PublishEvent(_ context.Context, topic string, event kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func TestSessionEventPublisher_PublishesInOrder(t *testing.T) {
	producer := &capturingProducer{}
	pub := NewSessionEventPublisher(producer, 8, zap.NewNop())

	pub.RouteSelected(application.RouteSelectedEvent{SessionID: "s1", RouteID: 4, Name: "Irati"})
	pub.ExtentChanged(application.ExtentChangedEvent{SessionID: "s1", Extent: [4]float64{0, 0, 1, 1}, VisibleIDs: []route.ID{4}})
	pub.SelectionCleared(application.SelectionClearedEvent{SessionID: "s1", RouteID: 4})
	pub.LanguageChanged(application.LanguageChangedEvent{SessionID: "s1", Language: "eu"})
	pub.Close()

	require.Len(t, producer.events, 4)
	assert.Equal(t, []string{RouteSelected, ViewportExtentChanged, RouteSelectionCleared, SessionLanguageChanged},
		[]string{producer.events[0].Type, producer.events[1].Type, producer.events[2].Type, producer.events[3].Type})
	for i, ev := range producer.events {
		assert.Equal(t, TopicSessionEvents, producer.topics[i])
		assert.Equal(t, "s1", ev.Subject)
		assert.Equal(t, EventSource, ev.Source)
	}

	var selected application.RouteSelectedEvent
	require.NoError(t, producer.events[0].ParseData(&selected))
	assert.Equal(t, route.ID(4), selected.RouteID)
	assert.Equal(t, "Irati", selected.Name)
}

func TestSessionEventPublisher_ProducerErrorDoesNotStopQueue(t *testing.T) {
	producer := &capturingProducer{err: errors.New("broker down")}
	pub := NewSessionEventPublisher(producer, 8, zap.NewNop())
	pub.LanguageChanged(application.LanguageChangedEvent{SessionID: "s1", Language: "fr"})
	pub.LanguageChanged(application.LanguageChangedEvent{SessionID: "s1", Language: "en"})
	pub.Close()
	assert.Empty(t, producer.events)
}

func TestSessionEventPublisher_IgnoresEventsAfterClose(t *testing.T) {
	producer := &capturingProducer{}
	pub := NewSessionEventPublisher(producer, 8, zap.NewNop())
	pub.Close()
	pub.Close()

	assert.NotPanics(t, func() {
		pub.RouteSelected(application.RouteSelectedEvent{SessionID: "s1", RouteID: 1})
	})
	assert.Empty(t, producer.events)
}

type staticSource struct {
	mu     sync.Mutex
	routes []*route.Route
	calls  int
	err    error
}

func (s *staticSource) FetchAll(context.Context) ([]*route.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.routes, s.err
}

func (s *staticSource) FetchGeometry(context.Context, route.ID) (*route.Feature, error) {
	return nil, nil
}

type invalidations struct {
	ids []route.ID
}

func (c *invalidations) Get(context.Context, route.ID) ([]byte, error) { return nil, nil }
func (c *invalidations) Set(context.Context, route.ID, []byte) error   { return nil }
func (c *invalidations) Invalidate(_ context.Context, ids ...route.ID) error {
	c.ids = append(c.ids, ids...)
	return nil
}

func catalogMessage(t *testing.T, eventType string, data interface{}) kafkago.Message {
	t.Helper()
	ce, err := kafka.NewCloudEvent("upstream", eventType, data)
	require.NoError(t, err)
	raw, err := json.Marshal(ce)
	require.NoError(t, err)
	return kafkago.Message{Topic: TopicCatalogEvents, Value: raw}
}

func newTestConsumer(source *staticSource, cache application.ProfileCache) *CatalogEventConsumer {
	return &CatalogEventConsumer{
		catalog: application.NewCatalog(source, zap.NewNop()),
		cache:   cache,
		logger:  zap.NewNop(),
	}
}

func TestCatalogEventConsumer_RefreshesAndInvalidates(t *testing.T) {
	source := &staticSource{routes: []*route.Route{
		route.Reconstruct(1, route.Attributes{Name: "Irati"}),
		route.Reconstruct(2, route.Attributes{Name: "Urbasa"}),
	}}
	cache := &invalidations{}
	c := newTestConsumer(source, cache)

	err := c.handleMessage(context.Background(), catalogMessage(t, CatalogUpdated, CatalogUpdatedEvent{RouteIDs: []route.ID{2}}))
	require.NoError(t, err)

	assert.Equal(t, []route.ID{2}, cache.ids)
	assert.Len(t, c.catalog.Snapshot().Routes, 2)
}

func TestCatalogEventConsumer_RefreshFailureIsRetried(t *testing.T) {
	source := &staticSource{err: errors.New("db down")}
	c := newTestConsumer(source, nil)

	err := c.handleMessage(context.Background(), catalogMessage(t, CatalogUpdated, CatalogUpdatedEvent{}))
	assert.Error(t, err)
}

func TestCatalogEventConsumer_IgnoresMalformedAndUnknown(t *testing.T) {
	source := &staticSource{}
	c := newTestConsumer(source, nil)

	require.NoError(t, c.handleMessage(context.Background(), kafkago.Message{Value: []byte("{not json")}))
	require.NoError(t, c.handleMessage(context.Background(), catalogMessage(t, "catalog.archived", nil)))
	assert.Zero(t, source.calls)
}
