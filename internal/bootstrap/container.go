package bootstrap

import (
	"context"
	"sync"
	"time"

	"google.golang.org/adk/agent"

	"openstocks/internal/adapters/config"
	redisclient "openstocks/internal/adapters/redis"
	"openstocks/internal/agents"
	"openstocks/internal/api"
	"openstocks/internal/api/health"
	"openstocks/internal/brokers"
	"openstocks/internal/tools"
	"openstocks/pkg/errors"
	"openstocks/pkg/logger"
)

// Container holds all application dependencies and their lifecycle
// Components are organized in initialization order
type Container struct {
	// Core configuration & logging
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure Layer
	Redis      *redisclient.Client
	QuoteCache *redisclient.QuoteCache

	// Broker Layer
	BrokerRegistry *brokers.Registry
	Coordinator    *brokers.Coordinator

	// Agent Layer
	ToolRegistry *tools.Registry
	AgentFactory *agents.Factory
	StockTrader  agent.Agent

	// Application Layer
	HealthHandler *health.Handler
	HTTPServer    *api.Server

	// Lifecycle management
	WG      *sync.WaitGroup
	Context context.Context
	Cancel  context.CancelFunc
}

// NewContainer creates a new dependency container
func NewContainer() *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		WG:      &sync.WaitGroup{},
		Context: ctx,
		Cancel:  cancel,
	}
}

// MustInit initializes all components in the correct order
// Panics on any initialization error (fail-fast at startup)
func (c *Container) MustInit() {
	c.MustInitConfig()
	c.MustInitInfrastructure()
	c.MustInitBrokers()
	c.MustInitTools()
	c.MustInitAgent()
	c.MustInitApplication()
}

// Start launches the HTTP server and kicks off broker logins. Login
// runs in the background so a slow or failing broker never delays
// startup; tools report per-broker status until logins settle.
func (c *Container) Start() error {
	c.Log.Info("Starting all systems...")

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		succeeded, attempted, failed := c.Coordinator.AttemptBrokerLogins(c.Context, true)
		c.Log.Infow("Broker login pass finished",
			"succeeded", succeeded,
			"attempted", attempted,
			"failed", failed,
		)
	}()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := c.HTTPServer.Start(); err != nil {
			c.Log.Errorf("HTTP server failed: %v", err)
			c.Cancel()
		}
	}()

	c.Log.Info("✓ All systems operational")
	return nil
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Log.Info("Initiating graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var shutdownErrs errors.MultiError

	// Step 1: stop accepting HTTP traffic
	c.Log.Info("[1/4] Stopping HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(shutdownCtx, 5*time.Second)
	if err := c.HTTPServer.Shutdown(httpCtx); err != nil {
		shutdownErrs.Add(errors.Wrap(err, "http server shutdown"))
	}
	httpCancel()

	// Step 2: log out of every broker
	c.Log.Info("[2/4] Logging out of brokers...")
	c.Coordinator.LogoutAll(shutdownCtx)

	// Cancel application context and wait for background goroutines
	c.Cancel()
	c.WG.Wait()

	// Step 3: close infrastructure
	c.Log.Info("[3/4] Closing infrastructure...")
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			shutdownErrs.Add(errors.Wrap(err, "redis close"))
		}
	}

	if err := shutdownErrs.ToError(); err != nil {
		c.Log.Error("Shutdown completed with errors", "error", err)
	}

	// Step 4: flush errors and logs last
	c.Log.Info("[4/4] Flushing error tracker and logs...")
	if c.ErrorTracker != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = c.ErrorTracker.Flush(flushCtx)
		flushCancel()
	}
	_ = logger.Sync()
}
