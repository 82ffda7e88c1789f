package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/apperror"
	"github.com/trailview/service-routes/internal/platform/response"
	"github.com/trailview/service-routes/internal/presentation"
)

// SessionHandler handles HTTP and WebSocket requests for browse sessions.
type SessionHandler struct {
	service  *application.SessionService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewSessionHandler creates a new SessionHandler. An empty allowedOrigins keeps the
// WebSocket same-origin check.
func NewSessionHandler(service *application.SessionService, allowedOrigins []string, logger *zap.Logger) *SessionHandler {
	h := &SessionHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
	if len(allowedOrigins) > 0 {
		h.upgrader.CheckOrigin = originChecker(allowedOrigins)
	}
	return h
}

// RegisterRoutes registers all session routes on the given router group.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/api/v1/sessions")
	{
		sessions.POST("", h.CreateSession)
		sessions.DELETE("/:id", h.CloseSession)
		sessions.GET("/:id/state", h.GetState)
		sessions.POST("/:id/filter", h.ApplyFilter)
		sessions.POST("/:id/extent", h.ChangeExtent)
		sessions.POST("/:id/navigation-settled", h.NavigationSettled)
		sessions.POST("/:id/selection", h.SelectRoute)
		sessions.DELETE("/:id/selection", h.ClearSelection)
		sessions.POST("/:id/hover/map", h.HoverMap)
		sessions.POST("/:id/hover/chart", h.HoverChart)
		sessions.PUT("/:id/language", h.SetLanguage)
		sessions.GET("/:id/ws", h.Connect)
	}
}

// CreateSessionRequest opens a session.
type CreateSessionRequest struct {
	Language string `json:"language"`
}

// ExtentRequest reports a stationary viewport as [minX, minY, maxX, maxY] in map units.
type ExtentRequest struct {
	Extent presentation.Extent `json:"extent"`
}

func (r ExtentRequest) bound() (orb.Bound, error) {
	e := r.Extent
	if e[0] > e[2] || e[1] > e[3] {
		return orb.Bound{}, apperror.NewValidationError("extent min must not exceed max")
	}
	return e.Bound(), nil
}

// SelectRequest selects a route.
type SelectRequest struct {
	RouteID route.ID `json:"route_id" binding:"required,gt=0"`
}

// MapHoverRequest is a map pointer position in map units.
type MapHoverRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ChartHoverRequest is a hovered chart sample index.
type ChartHoverRequest struct {
	Index *int `json:"index" binding:"required"`
}

// LanguageRequest switches the display language.
type LanguageRequest struct {
	Language string `json:"language" binding:"required"`
}

// SessionStateResponse is a session's sync state plus what its clients display.
type SessionStateResponse struct {
	Session application.SessionSnapshot `json:"session"`
	Display presentation.State          `json:"display"`
}

// ExtentResponse reports what happened to an extent notification.
type ExtentResponse struct {
	Outcome application.ExtentOutcome `json:"outcome"`
	SessionStateResponse
}

func stateOf(handle *application.SessionHandle) SessionStateResponse {
	return SessionStateResponse{Session: handle.Session.Snapshot(), Display: handle.Recorder.State()}
}

// CreateSession handles POST /api/v1/sessions.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	lang := req.Language
	if lang == "" {
		lang = requestLanguage(c)
	}

	handle := h.service.Create(lang)
	response.Created(c, stateOf(handle))
}

// CloseSession handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) CloseSession(c *gin.Context) {
	if err := h.service.Close(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "session closed"})
}

// GetState handles GET /api/v1/sessions/:id/state.
func (h *SessionHandler) GetState(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	response.Success(c, stateOf(handle))
}

// ApplyFilter handles POST /api/v1/sessions/:id/filter.
func (h *SessionHandler) ApplyFilter(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req application.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := applyFilter(handle.Session, req); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stateOf(handle))
}

// ChangeExtent handles POST /api/v1/sessions/:id/extent.
func (h *SessionHandler) ChangeExtent(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req ExtentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	outcome, err := changeExtent(c.Request.Context(), handle.Session, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, ExtentResponse{Outcome: outcome, SessionStateResponse: stateOf(handle)})
}

// NavigationSettled handles POST /api/v1/sessions/:id/navigation-settled.
func (h *SessionHandler) NavigationSettled(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	handle.Session.OnNavigationSettled()
	response.Success(c, stateOf(handle))
}

// SelectRoute handles POST /api/v1/sessions/:id/selection.
func (h *SessionHandler) SelectRoute(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req SelectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := handle.Session.SelectRoute(c.Request.Context(), req.RouteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ClearSelection handles DELETE /api/v1/sessions/:id/selection.
func (h *SessionHandler) ClearSelection(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	handle.Session.ClearSelection()
	response.Success(c, stateOf(handle))
}

// HoverMap handles POST /api/v1/sessions/:id/hover/map.
func (h *SessionHandler) HoverMap(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req MapHoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, handle.Session.OnMapHover(orb.Point{req.X, req.Y}))
}

// HoverChart handles POST /api/v1/sessions/:id/hover/chart.
func (h *SessionHandler) HoverChart(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req ChartHoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, handle.Session.OnChartHover(*req.Index))
}

// SetLanguage handles PUT /api/v1/sessions/:id/language.
func (h *SessionHandler) SetLanguage(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}

	var req LanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	lang := handle.Session.SetLanguage(req.Language)
	response.Success(c, gin.H{"language": lang})
}

func (h *SessionHandler) session(c *gin.Context) (*application.SessionHandle, bool) {
	handle, err := h.service.Get(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return handle, true
}

func applyFilter(s *application.BrowseSession, req application.FilterRequest) error {
	criteria, err := req.ToCriteria()
	if err != nil {
		return err
	}
	return s.ApplyFilter(criteria)
}

func changeExtent(ctx context.Context, s *application.BrowseSession, req ExtentRequest) (application.ExtentOutcome, error) {
	b, err := req.bound()
	if err != nil {
		return "", err
	}
	return s.OnExternalExtentChange(ctx, b)
}

// Inbound WebSocket message types. Payloads match the HTTP request bodies.
const (
	WSApplyFilter       = "filter"
	WSExtent            = "extent"
	WSNavigationSettled = "navigation_settled"
	WSSelect            = "select"
	WSClearSelection    = "clear_selection"
	WSHoverMap          = "hover_map"
	WSHoverChart        = "hover_chart"
	WSLanguage          = "language"
)

// dispatch runs one inbound WebSocket command against the session to completion.
func dispatch(ctx context.Context, s *application.BrowseSession, msg presentation.Message) error {
	pending, err := prepare(s, msg)
	if err != nil || pending == nil {
		return err
	}
	return pending(ctx)
}

// prepare applies msg to the session in arrival order. Commands that wait on the
// route source or the spatial index return the remaining work as pending, which the
// caller may run concurrently with later commands.
func prepare(s *application.BrowseSession, msg presentation.Message) (pending func(context.Context) error, err error) {
	switch msg.Type {
	case WSApplyFilter:
		var req application.FilterRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		return nil, applyFilter(s, req)

	case WSExtent:
		var req ExtentRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		b, err := req.bound()
		if err != nil {
			return nil, err
		}
		query := s.BeginExtentChange(b)
		return func(ctx context.Context) error {
			_, err := query(ctx)
			return err
		}, nil

	case WSNavigationSettled:
		s.OnNavigationSettled()
		return nil, nil

	case WSSelect:
		var req SelectRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		selection := s.BeginSelectRoute(req.RouteID)
		return func(ctx context.Context) error {
			_, err := selection(ctx)
			return err
		}, nil

	case WSClearSelection:
		s.ClearSelection()
		return nil, nil

	case WSHoverMap:
		var req MapHoverRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		s.OnMapHover(orb.Point{req.X, req.Y})
		return nil, nil

	case WSHoverChart:
		var req ChartHoverRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		s.OnChartHover(*req.Index)
		return nil, nil

	case WSLanguage:
		var req LanguageRequest
		if err := decodePayload(msg.Payload, &req); err != nil {
			return nil, err
		}
		s.SetLanguage(req.Language)
		return nil, nil

	default:
		return nil, apperror.NewValidationError(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func decodePayload(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return apperror.NewValidationError("invalid payload: " + err.Error())
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return apperror.NewValidationError(err.Error())
	}
	return nil
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if _, ok := set["*"]; ok {
			return true
		}
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}
