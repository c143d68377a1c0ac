package ballistics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

type flatTerrain struct {
	height float64
}

func (f flatTerrain) HeightAt(x, z float64) float64 {
	return f.height
}

type stubRegistry struct {
	targets []Target
	damage  map[string]float64
	health  map[string]float64
}

func newStubRegistry(targets ...Target) *stubRegistry {
	r := &stubRegistry{
		damage: make(map[string]float64),
		health: make(map[string]float64),
	}
	for _, t := range targets {
		r.targets = append(r.targets, t)
		r.health[t.ID] = 100
	}
	return r
}

func (r *stubRegistry) Live() []Target {
	return append([]Target(nil), r.targets...)
}

func (r *stubRegistry) ApplyDamage(id string, amount float64) (bool, float64) {
	if _, ok := r.health[id]; !ok {
		return false, 0
	}
	r.damage[id] += amount
	r.health[id] -= amount
	if r.health[id] <= 0 {
		for i, t := range r.targets {
			if t.ID == id {
				r.targets = append(r.targets[:i], r.targets[i+1:]...)
				break
			}
		}
		return true, 0
	}
	return false, r.health[id]
}

func newTestContext(sim *Simulator) *FireContext {
	return NewFireContext(sim, "seed", "fire-1", 0)
}

func TestResolveTerrainImpact(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: 0}}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 10, 0},
		Direction: mgl64.Vec3{0, -1, 0},
		Power:     20,
		Gravity:   -10,
		Final:     true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Kind != EventImpact {
		t.Fatalf("expected impact terminal, got %s", terminal.Kind)
	}
	if terminal.Position.Y() != 0 {
		t.Fatalf("expected impact snapped to ground, got y=%v", terminal.Position.Y())
	}

	var spawns, impacts int
	for _, ev := range tl.Events() {
		switch ev.Kind {
		case EventSpawn:
			spawns++
		case EventImpact:
			impacts++
		case EventMove:
			if ev.Position.Y() < 0 {
				t.Fatalf("move event below terrain: %+v", ev)
			}
		}
	}
	if spawns != 1 || impacts != 1 {
		t.Fatalf("expected exactly one spawn and one impact, got %d/%d", spawns, impacts)
	}

	tl.Freeze()
	events := tl.Events()
	for i := 1; i < len(events); i++ {
		if events[i].Time < events[i-1].Time {
			t.Fatalf("timestamps regress at index %d", i)
		}
	}
}

func TestResolveRejectsDegenerateDirection(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{}}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	_, err := sim.Resolve(ctx, ProjectileSpec{
		Start: mgl64.Vec3{0, 10, 0},
		Power: 20,
	}, 0, tl)
	if !errors.Is(err, ErrDegenerateDirection) {
		t.Fatalf("expected degenerate direction error, got %v", err)
	}
	if tl.Len() != 0 {
		t.Fatalf("expected no events for a rejected spec, got %d", tl.Len())
	}

	_, err = sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 10, 0},
		Direction: mgl64.Vec3{math.NaN(), 0, 0},
		Power:     20,
	}, 0, tl)
	if err == nil {
		t.Fatalf("expected error for non-finite direction")
	}
}

func TestResolveExpiresWithoutCollision(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: 0}, MaxFlightMillis: 500}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 100, 0},
		Direction: mgl64.Vec3{1, 0, 0},
		Power:     10,
		Final:     true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Kind != EventExpired {
		t.Fatalf("expected expiry, got %s", terminal.Kind)
	}
	if terminal.Time != 500 {
		t.Fatalf("expected expiry at max flight time, got %d", terminal.Time)
	}
}

func TestResolveFloorUnderCarvedTerrain(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: -5}, FloorY: 0}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 10, 0},
		Direction: mgl64.Vec3{0, -1, 0},
		Power:     20,
		Final:     true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Position.Y() != 0 {
		t.Fatalf("expected impact on the floor plane, got y=%v", terminal.Position.Y())
	}
}

func TestResolveStartOffsetClamped(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: 0}}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	if _, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 5, 0},
		Direction: mgl64.Vec3{0, -1, 0},
		Power:     20,
		Final:     true,
	}, -250, tl); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first := tl.Events()[0]; first.Kind != EventSpawn || first.Time != 0 {
		t.Fatalf("expected spawn clamped to zero, got %+v", first)
	}
}

func TestResolveTargetImpactAndSplash(t *testing.T) {
	registry := newStubRegistry(
		Target{ID: "hit-me", Position: mgl64.Vec3{0, 10, 10}, Radius: 1},
		Target{ID: "bystander", Position: mgl64.Vec3{0, 10, 13}, Radius: 1},
	)
	sim := &Simulator{Terrain: flatTerrain{height: 0}, Targets: registry}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:      mgl64.Vec3{0, 10, 0},
		Direction:  mgl64.Vec3{0, 0, 1},
		Power:      20,
		Radius:     0.5,
		BaseDamage: 200,
		AoESize:    8,
		Final:      true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Kind != EventImpact || terminal.Impact == nil {
		t.Fatalf("expected impact terminal, got %+v", terminal)
	}
	if terminal.Impact.TargetID != "hit-me" {
		t.Fatalf("expected direct hit attribution, got %q", terminal.Impact.TargetID)
	}
	if terminal.Impact.Terrain() {
		t.Fatalf("dynamic-target impact must not read as terrain")
	}

	if registry.damage["hit-me"] == 0 || registry.damage["bystander"] == 0 {
		t.Fatalf("expected splash damage on both targets, got %+v", registry.damage)
	}

	var destroyed int
	for _, ev := range tl.Events() {
		if ev.Kind == EventTargetDestroyed {
			destroyed++
			if ev.Time != terminal.Time {
				t.Fatalf("destruction must share the impact timestamp")
			}
		}
	}
	if destroyed == 0 {
		t.Fatalf("expected at least one destroyed target event")
	}
}

func TestGuidedProjectileTurnsTowardTarget(t *testing.T) {
	registry := newStubRegistry(
		Target{ID: "drone", Position: mgl64.Vec3{30, 20, 0}, Radius: 2},
	)
	sim := &Simulator{Terrain: flatTerrain{height: 0}, Targets: registry}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:       mgl64.Vec3{0, 20, 0},
		Direction:   mgl64.Vec3{0, 0, 1},
		Power:       30,
		Gravity:     -10,
		TargetID:    "drone",
		MaxTurnRate: 6,
		Final:       true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Kind != EventImpact || terminal.Impact.TargetID != "drone" {
		t.Fatalf("expected guided projectile to reach the drone, got %+v", terminal)
	}
}

func TestPhantomProjectileIgnoresCollision(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: 50}, MaxFlightMillis: 400}
	ctx := newTestContext(sim)
	tl := &Timeline{}

	terminal, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 10, 0},
		Direction: mgl64.Vec3{0, -1, 0},
		Power:     50,
		Phantom:   true,
		Final:     true,
	}, 0, tl)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if terminal.Kind != EventExpired {
		t.Fatalf("expected phantom to fly through terrain, got %s", terminal.Kind)
	}
}

func TestReflect(t *testing.T) {
	up := mgl64.Vec3{0, 1, 0}
	reflected := Reflect(mgl64.Vec3{0, -1, 0}, up)
	if !reflected.ApproxEqual(mgl64.Vec3{0, 1, 0}) {
		t.Fatalf("expected straight-down to reflect straight up, got %v", reflected)
	}

	reflected = Reflect(mgl64.Vec3{1, -1, 0}.Normalize(), up)
	want := mgl64.Vec3{1, 1, 0}.Normalize()
	if !reflected.ApproxEqual(want) {
		t.Fatalf("expected %v, got %v", want, reflected)
	}
}

func TestAccelerationRampsSpeed(t *testing.T) {
	sim := &Simulator{Terrain: flatTerrain{height: 0}, MaxFlightMillis: 200}
	ctx := newTestContext(sim)

	ramped := &Timeline{}
	if _, err := sim.Resolve(ctx, ProjectileSpec{
		Start:        mgl64.Vec3{0, 100, 0},
		Direction:    mgl64.Vec3{1, 0, 0},
		Power:        50,
		Acceleration: 20,
		Final:        true,
	}, 0, ramped); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	instant := &Timeline{}
	if _, err := sim.Resolve(ctx, ProjectileSpec{
		Start:     mgl64.Vec3{0, 100, 0},
		Direction: mgl64.Vec3{1, 0, 0},
		Power:     50,
		Final:     true,
	}, 0, instant); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rampedDist := lastMoveX(t, ramped)
	instantDist := lastMoveX(t, instant)
	if rampedDist >= instantDist {
		t.Fatalf("expected ramped launch to trail instant launch, got %v >= %v", rampedDist, instantDist)
	}
}

func lastMoveX(t *testing.T, tl *Timeline) float64 {
	t.Helper()
	events := tl.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Kind == EventMove || events[i].Kind == EventExpired {
			return events[i].Position.X()
		}
	}
	t.Fatalf("no move events recorded")
	return 0
}
