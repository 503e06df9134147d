package bootstrap

import (
	"openstocks/internal/adapters/config"
	errnoop "openstocks/internal/adapters/errors/noop"
	"openstocks/internal/adapters/errors/sentry"
	redisclient "openstocks/internal/adapters/redis"
	"openstocks/internal/agents"
	"openstocks/internal/api"
	"openstocks/internal/api/health"
	"openstocks/internal/brokers"
	"openstocks/internal/brokers/ratelimit"
	"openstocks/internal/brokers/robinhood"
	"openstocks/internal/brokers/schwab"
	"openstocks/internal/metrics"
	"openstocks/internal/tools"
	"openstocks/internal/tools/shared"
	"openstocks/pkg/crypto"
	"openstocks/pkg/errors"
	"openstocks/pkg/logger"
	"openstocks/pkg/templates"

	"github.com/prometheus/client_golang/prometheus"
)

const version = "1.0.0"

// ========================================
// Phase 1: Configuration & Logging
// ========================================

// MustInitConfig loads configuration and initializes logger
func (c *Container) MustInitConfig() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	c.Config = cfg

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)
}

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// ========================================
// Phase 2: Infrastructure Layer
// ========================================

// MustInitInfrastructure initializes metrics and the optional Redis cache
func (c *Container) MustInitInfrastructure() {
	if c.Config.Metrics.Enabled {
		metrics.Init()
		c.Log.Info("✓ Metrics registered")
	}

	if !c.Config.Redis.Enabled {
		c.Log.Info("Redis disabled, quotes will not be cached")
		return
	}

	c.Log.Info("Connecting to Redis...")
	client, err := redisclient.NewClient(c.Config.Redis)
	if err != nil {
		// The cache is an optimization. A dead Redis should not stop trading.
		c.Log.Warnf("Redis unavailable, continuing without quote cache: %v", err)
		return
	}
	c.Redis = client
	c.QuoteCache = redisclient.NewQuoteCache(client, c.Config.Redis.QuoteCacheTTL, c.Log)
	c.Log.Info("✓ Redis connected")
}

// ========================================
// Phase 3: Broker Layer
// ========================================

// MustInitBrokers constructs broker adapters and the registry/coordinator pair
func (c *Container) MustInitBrokers() {
	var encryptor *crypto.Encryptor
	if key := c.Config.App.SessionEncryptionKey; key != "" {
		enc, err := crypto.NewEncryptor(key)
		if err != nil {
			c.Log.Fatalf("invalid session encryption key: %v", err)
		}
		encryptor = enc
		c.Log.Info("✓ Session encryption enabled")
	}

	tokenDir := c.Config.App.ResolvedTokenDir()
	limiters := ratelimit.NewBrokerLimiters()

	c.BrokerRegistry = brokers.NewRegistry(c.Log)
	c.BrokerRegistry.Register(robinhood.New(robinhood.Config{
		Username:  c.Config.Robinhood.Username,
		Password:  c.Config.Robinhood.Password,
		MFACode:   c.Config.Robinhood.MFACode,
		ExpiresIn: c.Config.Robinhood.ExpiresIn,
		TokenDir:  tokenDir,
		Encryptor: encryptor,
		Limiter:   limiters.Robinhood,
	}, c.Log))
	c.BrokerRegistry.Register(schwab.New(schwab.Config{
		APIKey:      c.Config.Schwab.APIKey,
		AppSecret:   c.Config.Schwab.AppSecret,
		CallbackURL: c.Config.Schwab.CallbackURL,
		TokenPath:   c.Config.Schwab.TokenPath,
		TokenDir:    tokenDir,
		Limiter:     limiters.Schwab,
	}, c.Log))

	c.Coordinator = brokers.NewCoordinator(c.BrokerRegistry, c.Log)

	if c.Config.Metrics.Enabled {
		c.Coordinator.SetObserver(metrics.NewAuthRecorder())
		prometheus.MustRegister(metrics.NewRegistryCollector(c.BrokerRegistry))
	}

	c.Log.Infof("✓ Brokers registered: %v", c.BrokerRegistry.ListBrokers())
}

// ========================================
// Phase 4: Tool Layer
// ========================================

// MustInitTools builds the tool registry with all tools wired
func (c *Container) MustInitTools() {
	deps := shared.Deps{
		Coordinator: c.Coordinator,
		Registry:    c.BrokerRegistry,
		Log:         c.Log,
	}
	if c.QuoteCache != nil {
		deps.QuoteCache = c.QuoteCache
	}
	if c.Redis != nil {
		deps.RedisHealth = c.Redis
	}

	c.ToolRegistry = tools.NewRegistry()
	tools.RegisterAllTools(c.ToolRegistry, deps)
}

// ========================================
// Phase 5: Agent Layer
// ========================================

// MustInitAgent constructs the stock-trader agent
func (c *Container) MustInitAgent() {
	factory, err := agents.NewFactory(agents.FactoryDeps{
		ToolRegistry: c.ToolRegistry,
		Templates:    templates.Get(),
	})
	if err != nil {
		c.Log.Fatalf("failed to create agent factory: %v", err)
	}
	c.AgentFactory = factory

	agentCfg := agents.DefaultConfig(c.Config.Agent.Provider, c.Config.Agent.Model)
	agentCfg.MaxToolCalls = c.Config.Agent.MaxToolCalls

	trader, err := factory.CreateStockTrader(agentCfg)
	if err != nil {
		c.Log.Fatalf("failed to create stock trader agent: %v", err)
	}
	c.StockTrader = trader
	c.Log.Infof("✓ Agent %s ready with %d tools", agentCfg.Name, len(c.ToolRegistry.List()))
}

// ========================================
// Phase 6: Application Layer
// ========================================

// MustInitApplication wires the HTTP server and health handler
func (c *Container) MustInitApplication() {
	var redisChecker health.Checker
	if c.Redis != nil {
		redisChecker = c.Redis
	}

	c.HealthHandler = health.New(c.Log, c.BrokerRegistry, redisChecker, c.Config.App.Name, version)
	c.HTTPServer = api.NewServer(api.ServerConfig{
		Port:        c.Config.Metrics.Port,
		ServiceName: c.Config.App.Name,
		Version:     version,
	}, c.HealthHandler, c.Log)
}
