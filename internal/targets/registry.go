// Package targets tracks the dynamic targets (airborne units, drones) that
// projectiles can collide with or home onto.
package targets

import (
	"sync"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

// Target is one registered dynamic target. Velocity feeds pre-fire position
// prediction for homing eligibility; collision always uses the live position.
type Target struct {
	ID        string
	Position  mgl64.Vec3
	Velocity  mgl64.Vec3
	Radius    float64
	Health    float64
	MaxHealth float64
}

// Registry is the in-memory dynamic-target collaborator. Insertion order is
// preserved so overlap resolution stays deterministic for a given world
// state.
type Registry struct {
	mu      sync.Mutex
	entries *orderedmap.OrderedMap[string, *Target]
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: orderedmap.NewOrderedMap[string, *Target]()}
}

// Add registers a target, replacing any previous entry with the same id.
func (r *Registry) Add(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.MaxHealth <= 0 {
		t.MaxHealth = t.Health
	}
	copied := t
	r.entries.Set(t.ID, &copied)
}

// Remove drops a target regardless of its health.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries.Delete(id)
}

// Len reports the number of live targets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries.Len()
}

// Live snapshots the live targets in registration order.
func (r *Registry) Live() []ballistics.Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ballistics.Target, 0, r.entries.Len())
	for el := r.entries.Front(); el != nil; el = el.Next() {
		out = append(out, ballistics.Target{
			ID:       el.Value.ID,
			Position: el.Value.Position,
			Radius:   el.Value.Radius,
		})
	}
	return out
}

// Snapshot copies every live target in registration order, health included.
func (r *Registry) Snapshot() []Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Target, 0, r.entries.Len())
	for el := r.entries.Front(); el != nil; el = el.Next() {
		out = append(out, *el.Value)
	}
	return out
}

// SetPosition moves a live target.
func (r *Registry) SetPosition(id string, pos mgl64.Vec3) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if target, ok := r.entries.Get(id); ok {
		target.Position = pos
	}
}

// ApplyDamage subtracts health from a target. A destroyed target leaves the
// live set immediately so later projectiles of the same fire cannot collide
// with it.
func (r *Registry) ApplyDamage(id string, amount float64) (bool, float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.entries.Get(id)
	if !ok {
		return false, 0
	}
	if amount > 0 {
		target.Health -= amount
	}
	if target.Health <= 0 {
		r.entries.Delete(id)
		return true, 0
	}
	return false, target.Health
}

// PredictedPositionAt extrapolates a target's position timeMs into the
// future along its current velocity. The second return is false when the
// target is not live.
func (r *Registry) PredictedPositionAt(id string, timeMs int64) (mgl64.Vec3, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.entries.Get(id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	seconds := float64(timeMs) / 1000
	return target.Position.Add(target.Velocity.Mul(seconds)), true
}
