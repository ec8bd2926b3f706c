package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reguflow/aegis/engine"
	"github.com/reguflow/aegis/fraud"
	"github.com/reguflow/aegis/recordstore"
	"github.com/reguflow/aegis/remediation"
)

// HTTP surface over the core. Deliberately thin: everything with decision
// logic lives in the engine, fraud, and remediation packages.
type Server struct {
	logger    *slog.Logger
	echo      *echo.Echo
	engine    *engine.Engine
	admin     *remediation.Admin
	agents    recordstore.AgentStore
	customers recordstore.CustomerStore
}

type Config struct {
	Logger        *slog.Logger
	Agents        recordstore.AgentStore
	Customers     recordstore.CustomerStore
	Oracle        engine.PolicyOracle
	Fallback      engine.FallbackPolicy
	OracleTimeout time.Duration
}

func NewServer(config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	eng := &engine.Engine{
		Logger:        logger,
		Agents:        config.Agents,
		Oracle:        config.Oracle,
		Fallback:      config.Fallback,
		OracleTimeout: config.OracleTimeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	srv := &Server{
		logger: logger,
		echo:   e,
		engine: eng,
		admin: &remediation.Admin{
			Logger:    logger,
			Engine:    eng,
			Customers: config.Customers,
		},
		agents:    config.Agents,
		customers: config.Customers,
	}

	e.GET("/_health", srv.handleHealth)
	e.POST("/agent/message", srv.handleAgentMessage)
	e.GET("/admin/threats", srv.handleThreats)
	e.GET("/admin/agents", srv.handleListAgents)
	e.POST("/admin/neutralize", srv.handleNeutralize)
	e.POST("/admin/unlock", srv.handleUnlock)

	return srv, nil
}

func (s *Server) RunAPI(ctx context.Context, bind string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.echo.Start(bind)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "Active", "system": "aegis"})
}

type agentMessageRequest struct {
	AgentID  string `json:"agent_id"`
	TicketID string `json:"ticket_id"`
	Message  string `json:"message"`
}

type agentMessageResponse struct {
	Status        string `json:"status"`
	Reason        string `json:"reason,omitempty"`
	CustomerReply string `json:"customer_reply,omitempty"`
}

func (s *Server) handleAgentMessage(c echo.Context) error {
	var req agentMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "invalid request body")
	}

	res, err := s.engine.SubmitMessage(c.Request().Context(), req.AgentID, req.TicketID, req.Message)
	if errors.Is(err, engine.ErrEmptyMessage) {
		return echo.NewHTTPError(400, "message is empty")
	} else if errors.Is(err, recordstore.ErrNotFound) {
		return echo.NewHTTPError(404, err.Error())
	} else if err != nil {
		return err
	}

	return c.JSON(200, agentMessageResponse{
		Status:        string(res.Outcome),
		Reason:        res.Reason,
		CustomerReply: res.CustomerReply,
	})
}

func (s *Server) handleThreats(c echo.Context) error {
	ctx := c.Request().Context()

	start := time.Now()
	listed, err := s.customers.ListCustomers(ctx)
	if err != nil {
		return err
	}

	// banned customers are excluded from every scan
	var snapshot []recordstore.Customer
	for _, cust := range listed {
		if cust.Status == recordstore.CustomerBanned {
			continue
		}
		snapshot = append(snapshot, *cust)
	}

	clusters := fraud.Scan(snapshot)
	scanDuration.Observe(time.Since(start).Seconds())
	scanCount.Inc()
	s.logger.Info("fraud scan complete", "customers", len(snapshot), "clusters", len(clusters))

	if clusters == nil {
		clusters = []fraud.ThreatCluster{}
	}
	return c.JSON(200, clusters)
}

func (s *Server) handleListAgents(c echo.Context) error {
	agents, err := s.agents.ListAgents(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(200, agents)
}

type neutralizeRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleNeutralize(c echo.Context) error {
	var req neutralizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "invalid request body")
	}
	banned, err := s.admin.BanCustomers(c.Request().Context(), req.IDs)
	if err != nil {
		return err
	}
	return c.JSON(200, map[string]int{"banned": banned})
}

type unlockRequest struct {
	AgentID string `json:"agent_id"`
}

func (s *Server) handleUnlock(c echo.Context) error {
	var req unlockRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(400, "invalid request body")
	}
	err := s.admin.UnlockAgent(c.Request().Context(), req.AgentID)
	if errors.Is(err, recordstore.ErrNotFound) {
		return echo.NewHTTPError(404, "agent not found")
	} else if err != nil {
		return err
	}
	return c.JSON(200, map[string]string{"status": "unlocked", "agent_id": req.AgentID})
}
