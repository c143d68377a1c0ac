// Package schedule replays frozen timelines on a real-time clock. Simulation
// already resolved every outcome; scheduling only controls when each
// precomputed event becomes visible and applied.
package schedule

import (
	"sync"
	"time"

	"github.com/elliotchance/orderedmap/v2"

	"shellstorm/server/internal/ballistics"
)

// CancelFunc revokes one deferred callback. Calling it after the callback
// has fired, or more than once, is harmless.
type CancelFunc func()

// HostFunc is the deferred-execution primitive the scheduler runs on. Tests
// substitute a manual host; production uses StdHost.
type HostFunc func(delay time.Duration, fn func()) CancelFunc

// StdHost schedules through time.AfterFunc.
func StdHost() HostFunc {
	return func(delay time.Duration, fn func()) CancelFunc {
		timer := time.AfterFunc(delay, fn)
		return func() { timer.Stop() }
	}
}

// Scheduler arranges a frozen timeline's side effects at their millisecond
// offsets from the moment Play is called.
type Scheduler struct {
	host HostFunc

	// GraceMillis is the delay added after the final event before the
	// completion callback notifies the turn collaborator.
	GraceMillis int64
}

// DefaultGraceMillis separates the last visible event from turn advance.
const DefaultGraceMillis = 750

// NewScheduler wraps a host. A nil host falls back to StdHost.
func NewScheduler(host HostFunc) *Scheduler {
	if host == nil {
		host = StdHost()
	}
	return &Scheduler{host: host, GraceMillis: DefaultGraceMillis}
}

// Play schedules every event of the timeline. Events sharing a timestamp are
// applied in timeline order from a single deferred callback, so stable
// ordering survives hosts that do not guarantee timer order. complete runs
// exactly once at MaxTime plus the grace delay unless the playback is
// cancelled first. The timeline is frozen defensively if the caller has not
// done so already.
func (s *Scheduler) Play(tl *ballistics.Timeline, apply func(ballistics.Event), complete func(finalEventTimeMs int64)) *Playback {
	tl.Freeze()

	playback := newPlayback()

	events := tl.Events()
	for start := 0; start < len(events); {
		end := start + 1
		for end < len(events) && events[end].Time == events[start].Time {
			end++
		}
		batch := events[start:end]
		at := batch[0].Time
		token := playback.reserve()
		cancel := s.host(time.Duration(at)*time.Millisecond, func() {
			playback.run(token, func() {
				if apply == nil {
					return
				}
				for _, ev := range batch {
					apply(ev)
				}
			})
		})
		playback.store(token, cancel)
		start = end
	}

	final := tl.MaxTime()
	token := playback.reserve()
	cancel := s.host(time.Duration(final+s.GraceMillis)*time.Millisecond, func() {
		playback.run(token, func() {
			if complete != nil {
				complete(final)
			}
		})
	})
	playback.store(token, cancel)

	return playback
}

// Playback binds one scheduled timeline to its set of cancellable deferred
// callbacks. All timers cancel as one batch; cancellation is idempotent and
// never re-invokes effects that already fired.
type Playback struct {
	mu        sync.Mutex
	pending   *orderedmap.OrderedMap[int, CancelFunc]
	fired     map[int]struct{}
	cancelled bool
	next      int
}

func newPlayback() *Playback {
	return &Playback{
		pending: orderedmap.NewOrderedMap[int, CancelFunc](),
		fired:   make(map[int]struct{}),
	}
}

func (p *Playback) lock()   { p.mu.Lock() }
func (p *Playback) unlock() { p.mu.Unlock() }

// reserve allocates a token before its timer exists, closing the race where
// a zero-delay host fires before the cancel handle is stored.
func (p *Playback) reserve() int {
	p.lock()
	defer p.unlock()
	p.next++
	return p.next
}

func (p *Playback) store(token int, cancel CancelFunc) {
	p.lock()
	defer p.unlock()
	if p.cancelled {
		p.unlockedCancel(cancel)
		return
	}
	if _, done := p.fired[token]; done {
		return
	}
	p.pending.Set(token, cancel)
}

func (p *Playback) unlockedCancel(cancel CancelFunc) {
	if cancel != nil {
		cancel()
	}
}

// run executes a deferred callback unless the playback was cancelled.
func (p *Playback) run(token int, fn func()) {
	p.lock()
	if p.cancelled {
		p.unlock()
		return
	}
	p.fired[token] = struct{}{}
	p.pending.Delete(token)
	p.unlock()
	fn()
}

// CancelAll revokes every outstanding callback. Safe to call repeatedly and
// after the playback has completed.
func (p *Playback) CancelAll() {
	p.lock()
	if p.cancelled {
		p.unlock()
		return
	}
	p.cancelled = true
	cancels := make([]CancelFunc, 0, p.pending.Len())
	for el := p.pending.Front(); el != nil; el = el.Next() {
		cancels = append(cancels, el.Value)
	}
	p.pending = orderedmap.NewOrderedMap[int, CancelFunc]()
	p.unlock()

	for _, cancel := range cancels {
		if cancel != nil {
			cancel()
		}
	}
}

// Cancelled reports whether CancelAll has run.
func (p *Playback) Cancelled() bool {
	p.lock()
	defer p.unlock()
	return p.cancelled
}

// Outstanding reports how many callbacks have neither fired nor been
// cancelled. Diagnostics only.
func (p *Playback) Outstanding() int {
	p.lock()
	defer p.unlock()
	return p.pending.Len()
}
