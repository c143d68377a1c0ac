package schedule

import (
	"sort"
	"testing"
	"time"

	"shellstorm/server/internal/ballistics"
)

// manualHost collects deferred callbacks and fires them only when the test
// advances it, so playback ordering is fully controlled.
type manualHost struct {
	entries []*manualEntry
}

type manualEntry struct {
	delay     time.Duration
	fn        func()
	cancelled bool
	fired     bool
}

func (h *manualHost) host() HostFunc {
	return func(delay time.Duration, fn func()) CancelFunc {
		entry := &manualEntry{delay: delay, fn: fn}
		h.entries = append(h.entries, entry)
		return func() { entry.cancelled = true }
	}
}

// fireAll runs every pending callback in delay order.
func (h *manualHost) fireAll() {
	sort.SliceStable(h.entries, func(i, j int) bool {
		return h.entries[i].delay < h.entries[j].delay
	})
	for _, entry := range h.entries {
		if entry.cancelled || entry.fired {
			continue
		}
		entry.fired = true
		entry.fn()
	}
}

func (h *manualHost) cancelledCount() int {
	var n int
	for _, entry := range h.entries {
		if entry.cancelled {
			n++
		}
	}
	return n
}

func buildTimeline(times ...int64) *ballistics.Timeline {
	tl := &ballistics.Timeline{}
	for i, at := range times {
		kind := ballistics.EventMove
		if i == 0 {
			kind = ballistics.EventSpawn
		}
		tl.Append(ballistics.Event{Kind: kind, Time: at, ProjectileID: "p"})
	}
	return tl
}

func TestPlayAppliesEventsInOrder(t *testing.T) {
	host := &manualHost{}
	scheduler := NewScheduler(host.host())

	tl := buildTimeline(0, 50, 50, 100)
	var applied []int64
	var completions []int64
	scheduler.Play(tl,
		func(ev ballistics.Event) { applied = append(applied, ev.Time) },
		func(final int64) { completions = append(completions, final) },
	)

	host.fireAll()

	want := []int64{0, 50, 50, 100}
	if len(applied) != len(want) {
		t.Fatalf("expected %d applications, got %d", len(want), len(applied))
	}
	for i, at := range want {
		if applied[i] != at {
			t.Fatalf("expected event at %d in slot %d, got %d", at, i, applied[i])
		}
	}
	if len(completions) != 1 || completions[0] != 100 {
		t.Fatalf("expected one completion at max time 100, got %v", completions)
	}
}

func TestCompletionDelayedByGrace(t *testing.T) {
	host := &manualHost{}
	scheduler := NewScheduler(host.host())
	scheduler.GraceMillis = 500

	scheduler.Play(buildTimeline(0, 200), nil, nil)

	var maxDelay time.Duration
	for _, entry := range host.entries {
		if entry.delay > maxDelay {
			maxDelay = entry.delay
		}
	}
	if maxDelay != 700*time.Millisecond {
		t.Fatalf("expected completion timer at 700ms, got %v", maxDelay)
	}
}

func TestCancelAllStopsPendingEffects(t *testing.T) {
	host := &manualHost{}
	scheduler := NewScheduler(host.host())

	var applied int
	var completed int
	playback := scheduler.Play(buildTimeline(0, 50, 100),
		func(ballistics.Event) { applied++ },
		func(int64) { completed++ },
	)

	playback.CancelAll()
	host.fireAll()

	if applied != 0 || completed != 0 {
		t.Fatalf("expected no effects after cancellation, applied=%d completed=%d", applied, completed)
	}
	if !playback.Cancelled() {
		t.Fatalf("expected playback to report cancelled")
	}
	if playback.Outstanding() != 0 {
		t.Fatalf("expected no outstanding callbacks, got %d", playback.Outstanding())
	}
}

func TestCancelAllIdempotent(t *testing.T) {
	host := &manualHost{}
	scheduler := NewScheduler(host.host())
	playback := scheduler.Play(buildTimeline(0, 100), nil, nil)

	playback.CancelAll()
	first := host.cancelledCount()
	playback.CancelAll()
	if host.cancelledCount() != first {
		t.Fatalf("second cancel must not revoke more timers")
	}
}

func TestCancelAfterCompletionIsHarmless(t *testing.T) {
	host := &manualHost{}
	scheduler := NewScheduler(host.host())

	var completed int
	playback := scheduler.Play(buildTimeline(0),
		nil,
		func(int64) { completed++ },
	)

	host.fireAll()
	if completed != 1 {
		t.Fatalf("expected completion exactly once, got %d", completed)
	}
	playback.CancelAll()
	host.fireAll()
	if completed != 1 {
		t.Fatalf("cancel after completion re-ran callbacks, completed=%d", completed)
	}
}

func TestZeroDelayHostCannotOutrunCancelStore(t *testing.T) {
	// A host that runs callbacks synchronously during Play exercises the
	// token reserve/store path: effects fire before Play returns and the
	// stored cancel handles must not resurrect them.
	immediate := func(delay time.Duration, fn func()) CancelFunc {
		fn()
		return func() {}
	}
	scheduler := NewScheduler(immediate)

	var applied int
	var completed int
	playback := scheduler.Play(buildTimeline(0, 50),
		func(ballistics.Event) { applied++ },
		func(int64) { completed++ },
	)

	if applied != 2 || completed != 1 {
		t.Fatalf("expected synchronous replay, applied=%d completed=%d", applied, completed)
	}
	if playback.Outstanding() != 0 {
		t.Fatalf("expected no stored cancels after synchronous replay, got %d", playback.Outstanding())
	}
	playback.CancelAll()
}
