package handler

import (
	"bytes"
	"fmt"
	"math"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trailview/service-routes/internal/application"
	"github.com/trailview/service-routes/internal/domain/route"
	"github.com/trailview/service-routes/internal/platform/response"
	"github.com/trailview/service-routes/internal/presentation"
)

const (
	maxChartWidth  = 2000
	maxChartHeight = 1200
)

// RouteHandler handles HTTP requests for catalog queries.
type RouteHandler struct {
	service *application.RouteService
}

// NewRouteHandler creates a new RouteHandler.
func NewRouteHandler(service *application.RouteService) *RouteHandler {
	return &RouteHandler{service: service}
}

// RegisterRoutes registers all route catalog routes on the given router group.
func (h *RouteHandler) RegisterRoutes(r *gin.RouterGroup) {
	routes := r.Group("/api/v1/routes")
	{
		routes.GET("", h.ListRoutes)
		routes.GET("/:id", h.GetRoute)
		routes.GET("/:id/profile", h.GetProfile)
		routes.GET("/:id/profile.png", h.GetProfilePNG)
		routes.GET("/:id/gpx", h.DownloadGPX)
	}
}

// ListRoutes handles GET /api/v1/routes.
func (h *RouteHandler) ListRoutes(c *gin.Context) {
	var req application.FilterRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListRoutes(req, requestLanguage(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetRoute handles GET /api/v1/routes/:id.
func (h *RouteHandler) GetRoute(c *gin.Context) {
	id, ok := routeIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.GetRoute(c.Request.Context(), id, requestLanguage(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProfile handles GET /api/v1/routes/:id/profile.
func (h *RouteHandler) GetProfile(c *gin.Context) {
	id, ok := routeIDParam(c)
	if !ok {
		return
	}

	result, err := h.service.GetProfile(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// GetProfilePNG handles GET /api/v1/routes/:id/profile.png.
func (h *RouteHandler) GetProfilePNG(c *gin.Context) {
	id, ok := routeIDParam(c)
	if !ok {
		return
	}

	opts := presentation.DefaultChartOptions()
	opts.Width = boundedQueryInt(c, "width", opts.Width, 100, maxChartWidth)
	opts.Height = boundedQueryInt(c, "height", opts.Height, 80, maxChartHeight)
	opts.Highlight = boundedQueryInt(c, "highlight", -1, -1, math.MaxInt32)

	// Render into a buffer so failures can still be reported as JSON
	var buf bytes.Buffer
	if err := h.service.WriteProfilePNG(c.Request.Context(), &buf, id, opts); err != nil {
		response.Error(c, err)
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// DownloadGPX handles GET /api/v1/routes/:id/gpx.
func (h *RouteHandler) DownloadGPX(c *gin.Context) {
	id, ok := routeIDParam(c)
	if !ok {
		return
	}

	name, data, err := h.service.ExportGPX(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": name + ".gpx"})
	if disposition == "" {
		disposition = fmt.Sprintf(`attachment; filename="route-%d.gpx"`, id)
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, "application/gpx+xml", data)
}

// routeIDParam parses the :id path parameter, writing a 400 when it is invalid.
func routeIDParam(c *gin.Context) (route.ID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid route ID")
		return 0, false
	}
	return route.ID(id), true
}

// requestLanguage prefers ?lang= over the Accept-Language header.
func requestLanguage(c *gin.Context) string {
	if lang := c.Query("lang"); lang != "" {
		return lang
	}
	return c.GetHeader("Accept-Language")
}

// boundedQueryInt reads an integer query parameter, falling back to def when it is
// missing or outside [min, max].
func boundedQueryInt(c *gin.Context, key string, def, min, max int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return def
	}
	return v
}
