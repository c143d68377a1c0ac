package targets

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestLivePreservesRegistrationOrder(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Target{ID: "b", Health: 10})
	registry.Add(Target{ID: "a", Health: 10})
	registry.Add(Target{ID: "c", Health: 10})

	live := registry.Live()
	if len(live) != 3 {
		t.Fatalf("expected 3 live targets, got %d", len(live))
	}
	for i, want := range []string{"b", "a", "c"} {
		if live[i].ID != want {
			t.Fatalf("expected %s at index %d, got %s", want, i, live[i].ID)
		}
	}
}

func TestApplyDamageDestroysAndRemoves(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Target{ID: "drone", Health: 30})

	destroyed, remaining := registry.ApplyDamage("drone", 10)
	if destroyed {
		t.Fatalf("expected drone to survive")
	}
	if remaining != 20 {
		t.Fatalf("expected 20 health remaining, got %v", remaining)
	}

	destroyed, _ = registry.ApplyDamage("drone", 25)
	if !destroyed {
		t.Fatalf("expected drone destroyed")
	}
	if registry.Len() != 0 {
		t.Fatalf("expected destroyed target removed from live set")
	}
	if destroyed, _ := registry.ApplyDamage("drone", 5); destroyed {
		t.Fatalf("expected damage against a dead target to be a no-op")
	}
}

func TestPredictedPositionAt(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Target{
		ID:       "drone",
		Position: mgl64.Vec3{10, 20, 30},
		Velocity: mgl64.Vec3{2, 0, -4},
		Health:   10,
	})

	pos, ok := registry.PredictedPositionAt("drone", 500)
	if !ok {
		t.Fatalf("expected prediction for live target")
	}
	want := mgl64.Vec3{11, 20, 28}
	if !pos.ApproxEqual(want) {
		t.Fatalf("expected %v, got %v", want, pos)
	}

	if _, ok := registry.PredictedPositionAt("ghost", 500); ok {
		t.Fatalf("expected no prediction for unknown target")
	}
}

func TestAddDefaultsMaxHealth(t *testing.T) {
	registry := NewRegistry()
	registry.Add(Target{ID: "drone", Health: 40})
	snapshot := registry.Snapshot()
	if len(snapshot) != 1 || snapshot[0].MaxHealth != 40 {
		t.Fatalf("expected max health defaulted to health, got %+v", snapshot)
	}
}
