package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/domain"
)

// StreamRunEvents streams the events of one run via SSE until the run
// reaches a terminal state.
// GET /_internal/runs/:run_id/events/stream
func (h *Handler) StreamRunEvents(c echo.Context) error {
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

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)
	if flusher, ok := c.Response().Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	lastTs := int64(0)
	deadline := time.Now().Add(5 * time.Minute)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Client disconnected
			return nil

		case <-ticker.C:
			if time.Now().After(deadline) {
				log.Print(ctx, log.KV{K: "msg", V: "event stream exceeded max duration"}, log.KV{K: "run_id", V: runID})
				return nil
			}

			events, err := h.store.GetEvents(ctx, runID, lastTs, 100)
			if err != nil {
				log.Error(ctx, err, log.KV{K: "msg", V: "failed to get events"})
				continue
			}
			for _, event := range events {
				if err := sendSSEEvent(c, event); err != nil {
					return err
				}
				lastTs = event.Ts
			}

			current, err := h.store.GetRun(ctx, runID)
			if err != nil || current == nil {
				continue
			}
			if isTerminalState(current.Status) {
				return nil
			}
		}
	}
}

func sendSSEEvent(c echo.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(c.Response().Writer, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
		return err
	}
	if flusher, ok := c.Response().Writer.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}

func isTerminalState(status domain.RunStatus) bool {
	return status == domain.RunStatusDone ||
		status == domain.RunStatusFailed ||
		status == domain.RunStatusHandoff
}
