package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"goa.design/clue/log"
)

const defaultRunListLimit = 50

// ListRuns returns the most recent runs.
// GET /_internal/runs
func (h *Handler) ListRuns(c echo.Context) error {
	ctx := c.Request().Context()

	limit := defaultRunListLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := h.store.ListRuns(ctx, limit)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to list runs"})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
	}
	return c.JSON(http.StatusOK, map[string]any{"runs": runs})
}

// GetRunEvents returns the recorded events of one run.
// GET /_internal/runs/:run_id/events
func (h *Handler) GetRunEvents(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, err := h.store.GetRun(ctx, runID)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to get run"})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get run"})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	afterTs := int64(0)
	if raw := c.QueryParam("after_ts"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			afterTs = n
		}
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	events, err := h.store.GetEvents(ctx, runID, afterTs, limit)
	if err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to get events"})
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to get events"})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"run":    run,
		"events": events,
	})
}
