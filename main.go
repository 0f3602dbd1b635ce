package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"goa.design/clue/log"

	"github.com/agentd-io/agentd/api"
	"github.com/agentd-io/agentd/config"
	"github.com/agentd-io/agentd/controlplane"
	"github.com/agentd-io/agentd/events"
	"github.com/agentd-io/agentd/policy"
	"github.com/agentd-io/agentd/registry"
	"github.com/agentd-io/agentd/resolver"
	"github.com/agentd-io/agentd/response"
	"github.com/agentd-io/agentd/router"
	"github.com/agentd-io/agentd/store"
)

const version = "0.1.0"

func main() {
	cfg := config.Load()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if cfg.LogLevel == "debug" {
		ctx = log.Context(ctx, log.WithDebug())
	}

	log.Print(ctx, log.KV{K: "msg", V: "starting agent host"},
		log.KV{K: "port", V: cfg.Port},
		log.KV{K: "database", V: cfg.DatabaseURL},
		log.KV{K: "agents_file", V: cfg.AgentsFile})

	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatal(ctx, err, log.KV{K: "msg", V: "failed to initialize store"})
	}
	defer db.Close()

	agents, err := config.LoadAgents(cfg.AgentsFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, log.KV{K: "msg", V: "agents file not found, serving no local agents"}, log.KV{K: "path", V: cfg.AgentsFile})
		} else {
			log.Fatal(ctx, err, log.KV{K: "msg", V: "failed to load agents"})
		}
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	hub := events.NewHub(hubCtx)
	go hub.Run()

	reg := registry.New()

	var cp *controlplane.Client
	if cfg.ControlPlaneURL != "" {
		cp = controlplane.NewClient(cfg.ControlPlaneURL, cfg.ControlPlaneAPIKey, cfg.AgentTimeout)
	}

	res := resolver.New(agents, cp, cfg.Port, reg, cfg.ReplyTimeout)

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatal(ctx, err, log.KV{K: "msg", V: "failed to initialize policy engine"})
	}

	rt := router.New(res, db, hub, policyEngine, router.Identity{
		ProjectID:    cfg.ProjectID,
		DeploymentID: cfg.DeploymentID,
		OrgID:        cfg.OrgID,
		SDKVersion:   version,
	})

	// Manifest agents run the built-in echo handler until application
	// handlers are registered in code.
	for _, agent := range agents {
		if err := rt.Register(agent, echoHandler); err != nil {
			log.Fatal(ctx, err, log.KV{K: "msg", V: "failed to register agent"}, log.KV{K: "agent_id", V: agent.ID})
		}
		log.Print(ctx, log.KV{K: "msg", V: "registered agent"}, log.KV{K: "agent_id", V: agent.ID}, log.KV{K: "name", V: agent.Name})
	}

	h := api.NewHandler(rt, db, hub, reg)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	h.RegisterRoutes(e)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatal(ctx, err, log.KV{K: "msg", V: "failed to start server"})
		}
	}()
	log.Print(ctx, log.KV{K: "msg", V: "agent host started"}, log.KV{K: "port", V: cfg.Port})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Print(ctx, log.KV{K: "msg", V: "shutting down"})

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, err, log.KV{K: "msg", V: "failed to shut down gracefully"})
	}
	stopHub()

	log.Print(ctx, log.KV{K: "msg", V: "agent host stopped"})
}

// echoHandler returns the request payload unchanged, preserving its
// content type.
func echoHandler(ctx context.Context, req *router.Request) (*response.Result, error) {
	b, err := req.Data().Binary(ctx)
	if err != nil {
		return nil, err
	}
	return response.Raw(req.ContentType, b, req.Metadata)
}
