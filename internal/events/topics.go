package events

// Kafka topics.
const (
	TopicSessionEvents = "trailview.session.events"
	TopicCatalogEvents = "trailview.catalog.events"
)

// CloudEvent types.
const (
	RouteSelected          = "route.selected"
	RouteSelectionCleared  = "route.selection_cleared"
	ViewportExtentChanged  = "viewport.extent_changed"
	SessionLanguageChanged = "session.language_changed"
	CatalogUpdated         = "catalog.updated"
)

// EventSource is the CloudEvent source of everything this service publishes.
const EventSource = "trailview/service-routes"
