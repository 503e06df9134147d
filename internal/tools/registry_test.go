package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/adk/tool"

	"openstocks/internal/brokers"
	"openstocks/internal/tools/shared"
	"openstocks/pkg/logger"
)

func stubTool(name string) tool.Tool {
	return shared.NewTool(name, "stub", func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
		return map[string]interface{}{}, nil
	})
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Get("missing")
	assert.False(t, ok)

	registry.Register("stock_price", stubTool("stock_price"))

	got, ok := registry.Get("stock_price")
	require.True(t, ok)
	assert.NotNil(t, got)
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewRegistry()
	registry.Register("positions", stubTool("positions"))
	registry.Register("account_info", stubTool("account_info"))
	registry.Register("stock_quote", stubTool("stock_quote"))

	assert.Equal(t, []string{"account_info", "positions", "stock_quote"}, registry.List())
}

func TestRegistry_AllMatchesListOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Register("portfolio", stubTool("portfolio"))
	registry.Register("broker_status", stubTool("broker_status"))

	all := registry.All()
	require.Len(t, all, 2)
	assert.Len(t, registry.List(), 2)
}

func TestDefinitions(t *testing.T) {
	defs := Definitions()
	assert.Len(t, defs, 13)

	seen := make(map[string]bool)
	for _, def := range defs {
		assert.NotEmpty(t, def.Name)
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.Category)
		assert.False(t, seen[def.Name], "duplicate definition %s", def.Name)
		seen[def.Name] = true
	}

	// Mutating the copy must not leak back into the catalog.
	defs[0].Name = "mutated"
	assert.NotEqual(t, "mutated", Definitions()[0].Name)
}

func TestRegisterAllTools_CoversCatalog(t *testing.T) {
	registry := NewRegistry()
	brokerRegistry := brokers.NewRegistry(nil)
	deps := shared.Deps{
		Coordinator: brokers.NewCoordinator(brokerRegistry, nil),
		Registry:    brokerRegistry,
		Log:         logger.Get(),
	}

	RegisterAllTools(registry, deps)

	registered := registry.List()
	assert.Len(t, registered, len(Definitions()))
	for _, def := range Definitions() {
		_, ok := registry.Get(def.Name)
		assert.True(t, ok, "tool %s from catalog is not registered", def.Name)
	}
}
