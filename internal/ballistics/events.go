package ballistics

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

// EventKind identifies one variant of the timeline event union.
type EventKind string

const (
	EventSpawn           EventKind = "spawn"
	EventMove            EventKind = "move"
	EventImpact          EventKind = "impact"
	EventExpired         EventKind = "expired"
	EventTargetDestroyed EventKind = "target-destroyed"
)

// Event is a single time-stamped entry in a fire action's resolved outcome.
// Time is the millisecond offset from the fire instant, never wall clock.
type Event struct {
	Kind         EventKind
	Time         int64
	ProjectileID string
	Position     mgl64.Vec3

	// Impact is populated for EventImpact only.
	Impact *ImpactDetail

	// TargetID is populated for EventTargetDestroyed only.
	TargetID string
}

// ImpactDetail carries the terminal payload recorded when a projectile stops.
// Style and Scale pass through untouched for the renderer.
type ImpactDetail struct {
	// TargetID is empty for terrain impacts; terrain and dynamic-target
	// impacts are mutually exclusive.
	TargetID string

	BaseDamage  float64
	CraterSize  float64
	AoESize     float64
	BounceCount int
	Final       bool
	WeaponCode  string
	Style       string
	Scale       float64
}

// Terrain reports whether the impact struck the height field rather than a
// dynamic target.
func (d *ImpactDetail) Terrain() bool {
	return d != nil && d.TargetID == ""
}

// Timeline accumulates events while a fire action resolves and becomes
// immutable once frozen. Events are kept in append order until Freeze sorts
// them by time; equal times keep their insertion order.
type Timeline struct {
	events []Event
	frozen bool
}

// Append records an event. It reports false once the timeline is frozen,
// which callers treat as a programming error rather than a recoverable one.
func (t *Timeline) Append(ev Event) bool {
	if t.frozen {
		return false
	}
	t.events = append(t.events, ev)
	return true
}

// Merge copies every event from other into the timeline.
func (t *Timeline) Merge(other *Timeline) bool {
	if t.frozen {
		return false
	}
	if other == nil {
		return true
	}
	t.events = append(t.events, other.events...)
	return true
}

// TruncateAfter drops every event recorded for the given projectile with a
// timestamp strictly greater than cutoff. Used by carrier-style weapons that
// shorten a parent's arc after synthesizing an early terminal event.
func (t *Timeline) TruncateAfter(projectileID string, cutoff int64) {
	if t.frozen {
		return
	}
	kept := t.events[:0]
	for _, ev := range t.events {
		if ev.ProjectileID == projectileID && ev.Time > cutoff {
			continue
		}
		kept = append(kept, ev)
	}
	t.events = kept
}

// Freeze sorts the timeline into its final presentation order and marks it
// immutable. Freezing twice is a no-op.
func (t *Timeline) Freeze() {
	if t.frozen {
		return
	}
	sort.SliceStable(t.events, func(i, j int) bool {
		return t.events[i].Time < t.events[j].Time
	})
	t.frozen = true
}

// Frozen reports whether the timeline has been sealed.
func (t *Timeline) Frozen() bool {
	return t.frozen
}

// Events exposes the recorded events. Callers must not mutate the returned
// slice; the scheduler consumes it as-is after Freeze.
func (t *Timeline) Events() []Event {
	return t.events
}

// Len returns the number of recorded events.
func (t *Timeline) Len() int {
	return len(t.events)
}

// MaxTime returns the largest event timestamp, or zero for an empty timeline.
// The turn collaborator is notified relative to this value.
func (t *Timeline) MaxTime() int64 {
	var max int64
	for _, ev := range t.events {
		if ev.Time > max {
			max = ev.Time
		}
	}
	return max
}

// EventsFor returns the events recorded for one projectile in append order.
func (t *Timeline) EventsFor(projectileID string) []Event {
	var out []Event
	for _, ev := range t.events {
		if ev.ProjectileID == projectileID {
			out = append(out, ev)
		}
	}
	return out
}
