package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentd-io/agentd/domain"
	"github.com/agentd-io/agentd/policy"
	"github.com/agentd-io/agentd/registry"
	"github.com/agentd-io/agentd/resolver"
	"github.com/agentd-io/agentd/response"
	"github.com/agentd-io/agentd/router"
	"github.com/agentd-io/agentd/tests/helpers"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	st := helpers.NewTestSQLiteStore(t)
	reg := registry.New()
	pol, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	agents := []domain.AgentConfig{
		{ID: "ping", Name: "Ping"},
		{ID: "broken", Name: "Broken"},
	}
	res := resolver.New(agents, nil, 0, reg, time.Second)
	rt := router.New(res, st, nil, pol, router.Identity{ProjectID: "proj_1"})

	require.NoError(t, rt.Register(agents[0], func(ctx context.Context, req *router.Request) (*response.Result, error) {
		return response.Text("pong")
	}))
	require.NoError(t, rt.Register(agents[1], func(ctx context.Context, req *router.Request) (*response.Result, error) {
		return nil, errors.New("boom")
	}))

	return NewHandler(rt, st, nil, reg)
}

func invoke(t *testing.T, h *Handler, agentID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/"+agentID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("agent_id")
	c.SetParamValues(agentID)
	require.NoError(t, h.InvokeAgent(c))
	return rec
}

func TestInvokeAgent(t *testing.T) {
	h := newTestHandler(t)

	rec := invoke(t, h, "ping", `{"trigger":"webhook","contentType":"text/plain","payload":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var env domain.Payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Equal(t, "pong", env.Payload)
	assert.Equal(t, "text/plain", env.ContentType)
	assert.False(t, env.Base64)
}

func TestInvokeAgentRecordsRun(t *testing.T) {
	h := newTestHandler(t)

	rec := invoke(t, h, "ping", `{"trigger":"manual","payload":""}`)
	require.Equal(t, http.StatusOK, rec.Code)

	runs, err := h.store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusDone, runs[0].Status)
	assert.Equal(t, domain.TriggerManual, runs[0].Trigger)
}

func TestInvokeUnknownAgent(t *testing.T) {
	h := newTestHandler(t)

	rec := invoke(t, h, "nope", `{}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "agent with id nope not found")
}

func TestInvokeHandlerError(t *testing.T) {
	h := newTestHandler(t)

	rec := invoke(t, h, "broken", `{"trigger":"webhook"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func submitReply(t *testing.T, h *Handler, replyID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/_reply/"+replyID, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("reply_id")
	c.SetParamValues(replyID)
	require.NoError(t, h.SubmitReply(c))
	return rec
}

func TestSubmitReply(t *testing.T) {
	h := newTestHandler(t)

	pending := h.registry.Register("reply_1")
	rec := submitReply(t, h, "reply_1", `{"contentType":"text/plain","payload":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"delivered":true`)

	payload, err := pending.Wait(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "done", payload.Payload)
}

func TestSubmitReplyUnknownID(t *testing.T) {
	h := newTestHandler(t)

	// Unknown reply ids are dropped but still acknowledged so the control
	// plane never retries.
	rec := submitReply(t, h, "reply_missing", `{"contentType":"text/plain","payload":"late"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"delivered":false`)
}

func TestListRuns(t *testing.T) {
	h := newTestHandler(t)
	invoke(t, h, "ping", `{"trigger":"webhook"}`)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_internal/runs", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.ListRuns(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Runs []domain.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Runs, 1)
	assert.Equal(t, "ping", body.Runs[0].AgentID)
}

func TestGetRunEvents(t *testing.T) {
	h := newTestHandler(t)
	invoke(t, h, "ping", `{"trigger":"webhook"}`)

	runs, err := h.store.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_internal/runs/"+runs[0].RunID+"/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues(runs[0].RunID)
	require.NoError(t, h.GetRunEvents(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Events []domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Events, 2)
	assert.Equal(t, domain.EventTypeInvocationStarted, body.Events[0].Type)
	assert.Equal(t, domain.EventTypeInvocationDone, body.Events[1].Type)
}

func TestGetRunEventsMissingRun(t *testing.T) {
	h := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_internal/runs/run_missing/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")
	require.NoError(t, h.GetRunEvents(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/_health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
