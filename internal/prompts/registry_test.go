package prompts

import "testing"

func TestRegistryGet(t *testing.T) {
	registry := NewPromptRegistry()
	registry.Register(&Prompt{ID: "greeting", Version: "1.0.0", Content: "hello"})

	p, err := registry.Get("greeting", "1.0.0")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if p.Content != "hello" {
		t.Errorf("Expected content %q, got %q", "hello", p.Content)
	}

	if _, err := registry.Get("missing", "1.0.0"); err == nil {
		t.Error("Expected error for unknown prompt ID")
	}
	if _, err := registry.Get("greeting", "9.0.0"); err == nil {
		t.Error("Expected error for unknown version")
	}
}

func TestRegistryGetLatestPrefersNewestActive(t *testing.T) {
	registry := NewPromptRegistry()
	registry.Register(&Prompt{ID: "greeting", Version: "1.0.0", Content: "old"})
	registry.Register(&Prompt{ID: "greeting", Version: "2.0.0", Content: "current"})
	registry.Register(&Prompt{ID: "greeting", Version: "3.0.0", Content: "retired", Deprecated: true})

	p, err := registry.GetLatest("greeting")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if p.Version != "2.0.0" {
		t.Errorf("Expected newest active version 2.0.0, got %s", p.Version)
	}
}

func TestRegistryGetLatestFallsBackToDeprecated(t *testing.T) {
	registry := NewPromptRegistry()
	registry.Register(&Prompt{ID: "greeting", Version: "1.0.0", Content: "retired", Deprecated: true})

	p, err := registry.GetLatest("greeting")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if p.Version != "1.0.0" {
		t.Errorf("Expected deprecated fallback 1.0.0, got %s", p.Version)
	}

	if _, err := registry.GetLatest("missing"); err == nil {
		t.Error("Expected error for unknown prompt ID")
	}
}

func TestDefaultRegistryHasAnalystPrompts(t *testing.T) {
	registry := DefaultRegistry()

	for _, id := range []string{"analyst", "question", "visualization"} {
		p, err := registry.GetLatest(id)
		if err != nil {
			t.Errorf("GetLatest(%q) failed: %v", id, err)
			continue
		}
		if p.Content == "" {
			t.Errorf("Prompt %q has empty content", id)
		}
	}
}
