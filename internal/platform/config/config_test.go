package config

import "testing"

func TestLoadRequiresOperator(t *testing.T) {
	t.Setenv("OPERATOR_ID", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error when OPERATOR_ID is unset")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPERATOR_ID", "operator_1")
	t.Setenv("SERVICE_NAME", "")
	t.Setenv("HTTP_PORT", "")
	t.Setenv("EVENT_TOPIC", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "modelmarket" {
		t.Fatalf("expected default service name, got %s", cfg.ServiceName)
	}
	if cfg.HTTPPort != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.HTTPPort)
	}
	if cfg.EventTopic != "marketplace.model-events" {
		t.Fatalf("expected default topic, got %s", cfg.EventTopic)
	}
	if cfg.OperatorID != "operator_1" {
		t.Fatalf("expected operator_1, got %s", cfg.OperatorID)
	}
}
