// Package api provides the HTTP surface of the agent host: agent
// invocation, reply delivery and the internal monitoring routes under
// the reserved /_ prefix.
package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/agentd-io/agentd/events"
	"github.com/agentd-io/agentd/registry"
	"github.com/agentd-io/agentd/router"
	"github.com/agentd-io/agentd/store"
)

// Handler handles HTTP requests.
type Handler struct {
	router   *router.Router
	store    store.Store
	hub      *events.Hub
	registry *registry.Registry
	upgrader websocket.Upgrader
}

// NewHandler creates a new handler.
func NewHandler(rt *router.Router, st store.Store, hub *events.Hub, reg *registry.Registry) *Handler {
	return &Handler{
		router:   rt,
		store:    st,
		hub:      hub,
		registry: reg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// The feed is an internal route; origin filtering is left
				// to the deployment in front of it.
				return true
			},
		},
	}
}

// RegisterRoutes registers routes with the echo server. Routes under the
// /_ prefix are reserved; agent ids starting with an underscore are
// rejected at registration so they can never collide.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Reply delivery for remote invocations
	e.POST("/_reply/:reply_id", h.SubmitReply)

	// Internal monitoring API
	e.GET("/_internal/events", h.HandleEvents)
	e.GET("/_internal/runs", h.ListRuns)
	e.GET("/_internal/runs/:run_id/events", h.GetRunEvents)
	e.GET("/_internal/runs/:run_id/events/stream", h.StreamRunEvents)

	e.GET("/_health", h.Health)

	// Agent invocation, last so the reserved routes match first
	e.POST("/:agent_id", h.InvokeAgent)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
