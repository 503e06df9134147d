package agents

import (
	"fmt"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	adktool "google.golang.org/adk/tool"

	"openstocks/internal/tools"
	"openstocks/pkg/templates"
)

const stockTraderTemplate = "agents/stock_trader"

// Config describes the single stock-trader agent.
type Config struct {
	Name         string
	Description  string
	Provider     string
	Model        string
	MaxTokens    int
	MaxToolCalls int
}

// DefaultConfig returns the stock-trader agent defaults. Provider and
// model come from the app config at construction time.
func DefaultConfig(provider, model string) Config {
	return Config{
		Name:         "stock_trader",
		Description:  "Trading assistant with brokerage account access",
		Provider:     provider,
		Model:        model,
		MaxTokens:    8192,
		MaxToolCalls: 10,
	}
}

// FactoryDeps gathers external dependencies needed to instantiate agents.
type FactoryDeps struct {
	ToolRegistry *tools.Registry
	Templates    *templates.Registry
}

// Factory creates configured agents.
type Factory struct {
	toolRegistry *tools.Registry
	templates    *templates.Registry
}

// NewFactory builds an agent factory with required dependencies.
func NewFactory(deps FactoryDeps) (*Factory, error) {
	if deps.ToolRegistry == nil {
		return nil, fmt.Errorf("tool registry is required")
	}
	if deps.Templates == nil {
		deps.Templates = templates.Get()
	}

	return &Factory{toolRegistry: deps.ToolRegistry, templates: deps.Templates}, nil
}

// CreateStockTrader constructs the stock-trader agent with every
// registered tool attached.
func (f *Factory) CreateStockTrader(cfg Config) (agent.Agent, error) {
	definitionByName := map[string]tools.Definition{}
	for _, def := range tools.Definitions() {
		definitionByName[def.Name] = def
	}

	names := f.toolRegistry.List()
	agentTools := make([]adktool.Tool, 0, len(names))
	toolInfo := make([]tools.Definition, 0, len(names))
	for _, name := range names {
		t, ok := f.toolRegistry.Get(name)
		if !ok {
			return nil, fmt.Errorf("tool not found: %s", name)
		}
		agentTools = append(agentTools, t)
		if def, ok := definitionByName[name]; ok {
			toolInfo = append(toolInfo, def)
		} else {
			toolInfo = append(toolInfo, tools.Definition{Name: name})
		}
	}

	instruction, err := f.templates.Render(stockTraderTemplate, map[string]interface{}{
		"AgentName":    cfg.Name,
		"Tools":        toolInfo,
		"MaxToolCalls": cfg.MaxToolCalls,
	})
	if err != nil {
		return nil, fmt.Errorf("render prompt for %s: %w", cfg.Name, err)
	}

	return llmagent.New(llmagent.Config{
		Name:        cfg.Name,
		Description: cfg.Description,
		Model:       adkmodel.BasicModel{ID: cfg.Model, ProviderID: cfg.Provider, Tokens: cfg.MaxTokens},
		Tools:       agentTools,
		Instruction: instruction,
		OutputKey:   "trade_response",
	})
}
