package templates

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistryFromFS(t *testing.T) {
	base := t.TempDir()
	agentDir := filepath.Join(base, "agents")
	if err := os.MkdirAll(agentDir, 0o755); err != nil {
		t.Fatalf("create dir: %v", err)
	}

	tplPath := filepath.Join(agentDir, "greeter.tmpl")
	if err := os.WriteFile(tplPath, []byte("Hello {{.Name}}"), 0o644); err != nil {
		t.Fatalf("write template: %v", err)
	}

	reg, err := NewRegistryFromFS(os.DirFS(base))
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}

	tmpl, err := reg.GetTemplate("agents/greeter")
	if err != nil {
		t.Fatalf("get template: %v", err)
	}

	rendered, err := tmpl.Render(map[string]string{"Name": "Alice"})
	if err != nil {
		t.Fatalf("render template: %v", err)
	}
	if rendered != "Hello Alice" {
		t.Fatalf("unexpected render result: %s", rendered)
	}

	if _, err := reg.GetTemplate("agents/missing"); err == nil {
		t.Fatal("expected error for unknown template")
	}
}

func TestRegistryList(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"one", "two"} {
		path := filepath.Join(base, name+".tmpl")
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write template: %v", err)
		}
	}

	reg, err := NewRegistryFromFS(os.DirFS(base))
	if err != nil {
		t.Fatalf("init registry: %v", err)
	}

	if got := len(reg.List()); got != 2 {
		t.Fatalf("expected 2 templates, got %d", got)
	}
}

func TestEmbeddedStockTraderTemplate(t *testing.T) {
	reg := Get()

	rendered, err := reg.Render("agents/stock_trader", map[string]interface{}{
		"AgentName": "stock_trader",
		"Tools": []map[string]string{
			{"Name": "stock_price", "Description": "Current price for a stock symbol"},
		},
		"MaxToolCalls": 10,
	})
	if err != nil {
		t.Fatalf("render embedded template: %v", err)
	}

	if !strings.Contains(rendered, "You are stock_trader") {
		t.Fatalf("missing agent name in prompt: %s", rendered)
	}
	if !strings.Contains(rendered, "- stock_price: Current price for a stock symbol") {
		t.Fatalf("missing tool listing in prompt: %s", rendered)
	}
	if !strings.Contains(rendered, "at most 10 tool calls") {
		t.Fatalf("missing tool call budget in prompt: %s", rendered)
	}
}
