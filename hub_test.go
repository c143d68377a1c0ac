package server

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	cfg := DefaultHubConfig()
	cfg.Seed = "hub-test-seed"
	cfg.PracticeTargets = 2
	hub := NewHub(cfg, nil)
	t.Cleanup(hub.Teardown)
	return hub
}

func TestJoinReturnsWorldSnapshot(t *testing.T) {
	hub := newTestHub(t)

	resp := hub.Join()
	if resp.ID == "" || !strings.HasPrefix(resp.ID, "agent-") {
		t.Fatalf("unexpected agent id %q", resp.ID)
	}
	if resp.MatchID == "" {
		t.Fatalf("expected a match id")
	}
	if len(resp.Agents) != 1 || resp.Agents[0].ID != resp.ID {
		t.Fatalf("expected the joiner in the roster, got %+v", resp.Agents)
	}
	if len(resp.Targets) != 2 {
		t.Fatalf("expected practice targets in the snapshot, got %d", len(resp.Targets))
	}
	if len(resp.WeaponCodes) == 0 {
		t.Fatalf("expected catalog codes")
	}
	if resp.CatalogHash == "" {
		t.Fatalf("expected a catalog hash")
	}
	if resp.Seed != "hub-test-seed" {
		t.Fatalf("expected the configured seed, got %q", resp.Seed)
	}
}

func TestJoinAlternatesSpawnSides(t *testing.T) {
	hub := newTestHub(t)
	first := hub.Join()
	second := hub.Join()

	if first.Agents[0].Position.X == second.Agents[1].Position.X {
		t.Fatalf("expected joiners on opposite sides")
	}
	if len(second.Agents) != 2 {
		t.Fatalf("expected both agents in the second snapshot, got %d", len(second.Agents))
	}
}

func TestSubscribeUnknownAgentRejected(t *testing.T) {
	hub := newTestHub(t)
	if _, ok := hub.Subscribe("nobody", nil); ok {
		t.Fatalf("expected subscription for unknown agent to fail")
	}
}

func TestHubFireCountsTowardDiagnostics(t *testing.T) {
	hub := newTestHub(t)
	resp := hub.Join()

	if _, err := hub.Fire(resp.ID, "shell", FireInput{Direction: mgl64.Vec3{1, 0.4, 0}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	diag := hub.Diagnostics()
	if diag.FiresTotal != 1 {
		t.Fatalf("expected one recorded fire, got %d", diag.FiresTotal)
	}
	if diag.Agents != 1 {
		t.Fatalf("expected one agent, got %d", diag.Agents)
	}

	if _, err := hub.Fire(resp.ID, "bogus", FireInput{Direction: mgl64.Vec3{1, 0, 0}}); err == nil {
		t.Fatalf("expected rejection for unknown weapon")
	}
	if hub.Diagnostics().FiresTotal != 1 {
		t.Fatalf("rejected fires must not count")
	}
}

func TestDisconnectWithoutSubscription(t *testing.T) {
	hub := newTestHub(t)
	resp := hub.Join()

	hub.Disconnect(resp.ID)
	if got := hub.Diagnostics().Agents; got != 0 {
		t.Fatalf("expected agent removed, got %d", got)
	}
}
