package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/domain"
)

// InvokeAgent runs one agent invocation.
// POST /:agent_id
func (h *Handler) InvokeAgent(c echo.Context) error {
	agentID := c.Param("agent_id")

	agent, handler, ok := h.router.Lookup(agentID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": (&domain.NotFoundError{ID: agentID}).Error(),
		})
	}

	var inv domain.InvocationRequest
	if err := c.Bind(&inv); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid invocation request"})
	}
	if inv.Trigger == "" {
		inv.Trigger = domain.TriggerWebhook
	}

	resp, err := h.router.Dispatch(c.Request().Context(), agent, &inv, handler)
	if err != nil {
		log.Error(c.Request().Context(), err, log.KV{K: "msg", V: "invocation failed"}, log.KV{K: "agent_id", V: agentID})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	env := resp.Data
	if env == nil {
		env = &domain.Payload{}
	}
	if env.Metadata == nil {
		env.Metadata = resp.Metadata
	}
	return c.JSON(http.StatusOK, env)
}
