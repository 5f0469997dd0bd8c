package bootstrap

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"studio/internal/infra"
	"studio/internal/providers/prompt"
	"studio/internal/render"
)

func testConfig() *infra.Config {
	return &infra.Config{
		FalBaseURL:          "https://queue.fal.run",
		VeoModel:            "veo-2.0-generate-001",
		ArkBaseURL:          "https://ark.example.com/api/v3",
		OpenAIModel:         "gpt-4o-mini",
		ProviderHTTPTimeout: 5 * time.Second,
	}
}

func TestNewAdaptersRegistersEveryProvider(t *testing.T) {
	logger := infra.NewLogger("test")
	registry, err := NewAdapters(context.Background(), testConfig(), Keys{}, nil, &logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	names := registry.Names()
	sort.Strings(names)
	if got := strings.Join(names, ","); got != "hailuo,kling,ltx,seedance,veo,wan" {
		t.Fatalf("unexpected providers %s", got)
	}
}

func TestNewWriterSelection(t *testing.T) {
	logger := infra.NewLogger("test")
	cfg := testConfig()

	if _, ok := NewWriter(context.Background(), cfg, Keys{}, &logger).(*prompt.StaticWriter); !ok {
		t.Fatal("expected static writer without keys")
	}
	if _, ok := NewWriter(context.Background(), cfg, Keys{OpenAI: "sk-test", Gemini: "g"}, &logger).(*prompt.OpenAIWriter); !ok {
		t.Fatal("expected openai writer to take precedence")
	}
}

func TestStaleAfterOutlastsPolling(t *testing.T) {
	svc := &Services{Poller: render.NewPoller(render.PollerOptions{Interval: 5 * time.Second, MaxAttempts: 60})}
	if got := svc.StaleAfter(); got != 10*time.Minute+render.PersistTimeout {
		t.Fatalf("StaleAfter = %v", got)
	}
}
