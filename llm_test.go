package main

import (
	"strings"
	"testing"
)

func TestStripJSONFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"  {\"a\": 1}  ", `{"a": 1}`},
	}
	for _, c := range cases {
		if got := stripJSONFences(c.in); got != c.want {
			t.Fatalf("stripJSONFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseVerdictResponse(t *testing.T) {
	decision, confidence, reason, err := parseVerdictResponse(
		"```json\n{\"decision\": \"SHIPPED\", \"confidence\": 0.9, \"reason\": \"documented\"}\n```")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if decision != DecisionShipped || confidence != 0.9 || reason != "documented" {
		t.Fatalf("parsed %s %v %q", decision, confidence, reason)
	}
}

func TestParseVerdictResponseClampsConfidence(t *testing.T) {
	_, confidence, _, err := parseVerdictResponse(`{"decision": "NOT_SHIPPED", "confidence": 3.5, "reason": "x"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if confidence != 1 {
		t.Fatalf("confidence not clamped to 1, got %v", confidence)
	}
	_, confidence, _, err = parseVerdictResponse(`{"decision": "NOT_SHIPPED", "confidence": -0.2, "reason": "x"}`)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if confidence != 0 {
		t.Fatalf("confidence not clamped to 0, got %v", confidence)
	}
}

func TestParseVerdictResponseRejectsBadInput(t *testing.T) {
	if _, _, _, err := parseVerdictResponse("not json at all"); err == nil {
		t.Fatalf("expected error for non-JSON input")
	}
	if _, _, _, err := parseVerdictResponse(`{"decision": "MAYBE", "confidence": 0.5}`); err == nil {
		t.Fatalf("expected error for unknown decision")
	}
	if !strings.Contains(
		func() string {
			_, _, _, err := parseVerdictResponse(`{"decision": "MAYBE"}`)
			return err.Error()
		}(), "MAYBE") {
		t.Fatalf("error should name the bad decision")
	}
}

func TestNewLLMClientNilWhenUnconfigured(t *testing.T) {
	cfg := Config{UseLLM: false}
	if client := NewLLMClient(cfg); client != nil {
		t.Fatalf("expected nil client when llm is disabled")
	}
	cfg = Config{UseLLM: true, LLMProvider: "anthropic", AnthropicAPIKey: "key", LLMModel: "m"}
	client := NewLLMClient(cfg)
	if client == nil {
		t.Fatalf("expected client when llm is configured")
	}
	if client.Provider != "anthropic" || client.Model != "m" {
		t.Fatalf("client fields wrong: %+v", client)
	}
}
