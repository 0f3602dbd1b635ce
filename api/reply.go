package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/domain"
)

// SubmitReply delivers an asynchronous reply from the control plane to
// the invocation waiting on it. Unknown and duplicate reply ids are
// dropped; the control plane always gets a 200 so it never retries.
// POST /_reply/:reply_id
func (h *Handler) SubmitReply(c echo.Context) error {
	replyID := c.Param("reply_id")
	ctx := c.Request().Context()

	var payload domain.Payload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid reply payload"})
	}

	delivered := h.registry.Received(replyID, &payload)

	typ := domain.EventTypeReplyReceived
	var evtPayload any = domain.ReplyReceivedPayload{ReplyID: replyID, ContentType: payload.ContentType}
	if !delivered {
		typ = domain.EventTypeReplyDropped
		evtPayload = domain.ReplyDroppedPayload{ReplyID: replyID}
		log.Warn(ctx, log.KV{K: "msg", V: "reply dropped, no pending invocation"}, log.KV{K: "reply_id", V: replyID})
	}
	// Replies are correlated by reply id, not run id, so they go to the
	// live feed only.
	h.publishReplyEvent(typ, evtPayload)

	return c.JSON(http.StatusOK, map[string]any{"delivered": delivered})
}

func (h *Handler) publishReplyEvent(typ domain.EventType, payload any) {
	if h.hub == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.hub.Publish(&domain.Event{
		EventID: "evt_" + uuid.New().String()[:8],
		Ts:      time.Now().UnixMilli(),
		Type:    typ,
		Payload: b,
	})
}
