package ballistics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestFreezeSortsStable(t *testing.T) {
	tl := &Timeline{}
	tl.Append(Event{Kind: EventMove, Time: 100, ProjectileID: "a"})
	tl.Append(Event{Kind: EventSpawn, Time: 0, ProjectileID: "a"})
	tl.Append(Event{Kind: EventImpact, Time: 100, ProjectileID: "b"})
	tl.Append(Event{Kind: EventMove, Time: 50, ProjectileID: "a"})

	tl.Freeze()

	events := tl.Events()
	times := []int64{0, 50, 100, 100}
	for i, want := range times {
		if events[i].Time != want {
			t.Fatalf("expected time %d at index %d, got %d", want, i, events[i].Time)
		}
	}
	// Ties keep insertion order.
	if events[2].ProjectileID != "a" || events[3].ProjectileID != "b" {
		t.Fatalf("tie order not preserved: %s then %s", events[2].ProjectileID, events[3].ProjectileID)
	}
}

func TestAppendAfterFreezeRejected(t *testing.T) {
	tl := &Timeline{}
	tl.Append(Event{Kind: EventSpawn})
	tl.Freeze()

	if tl.Append(Event{Kind: EventMove}) {
		t.Fatalf("expected append to fail on a frozen timeline")
	}
	if tl.Merge(&Timeline{}) {
		t.Fatalf("expected merge to fail on a frozen timeline")
	}
	if tl.Len() != 1 {
		t.Fatalf("frozen timeline grew to %d events", tl.Len())
	}
	tl.Freeze() // second freeze is a no-op
}

func TestTruncateAfterDropsOnlyMatchingProjectile(t *testing.T) {
	tl := &Timeline{}
	tl.Append(Event{Kind: EventSpawn, Time: 0, ProjectileID: "carrier"})
	tl.Append(Event{Kind: EventMove, Time: 50, ProjectileID: "carrier"})
	tl.Append(Event{Kind: EventMove, Time: 100, ProjectileID: "carrier"})
	tl.Append(Event{Kind: EventMove, Time: 150, ProjectileID: "carrier"})
	tl.Append(Event{Kind: EventMove, Time: 150, ProjectileID: "bomblet"})

	tl.TruncateAfter("carrier", 100)

	if got := len(tl.EventsFor("carrier")); got != 3 {
		t.Fatalf("expected 3 carrier events after truncation, got %d", got)
	}
	if got := len(tl.EventsFor("bomblet")); got != 1 {
		t.Fatalf("expected bomblet events untouched, got %d", got)
	}
}

func TestMaxTime(t *testing.T) {
	tl := &Timeline{}
	if tl.MaxTime() != 0 {
		t.Fatalf("expected zero max time for empty timeline")
	}
	tl.Append(Event{Time: 300})
	tl.Append(Event{Time: 150})
	if tl.MaxTime() != 300 {
		t.Fatalf("expected max time 300, got %d", tl.MaxTime())
	}
}

func TestMergeCopiesEvents(t *testing.T) {
	scratch := &Timeline{}
	scratch.Append(Event{Kind: EventSpawn, Time: 0, Position: mgl64.Vec3{1, 2, 3}})
	scratch.Append(Event{Kind: EventImpact, Time: 100})

	tl := &Timeline{}
	if !tl.Merge(scratch) {
		t.Fatalf("expected merge into unfrozen timeline to succeed")
	}
	if tl.Len() != 2 {
		t.Fatalf("expected 2 merged events, got %d", tl.Len())
	}
}
