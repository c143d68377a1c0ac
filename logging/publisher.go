package logging

import (
	"context"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

type EntityKind string

const (
	EntityKindUnknown    EntityKind = "unknown"
	EntityKindAgent      EntityKind = "agent"
	EntityKindTarget     EntityKind = "target"
	EntityKindProjectile EntityKind = "projectile"
	EntityKindMatch      EntityKind = "match"
	EntityKindWorld      EntityKind = "world"
)

// Event is one structured log entry. FireID ties combat events back to the
// fire action whose timeline produced them.
type Event struct {
	Type     EventType      `json:"type"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	FireID   string         `json:"fireId,omitempty"`
	MatchID  string         `json:"matchId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

const (
	CategoryCombat = "combat"
	CategorySystem = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

// WithMatch stamps every published event with a match id before forwarding.
func WithMatch(p Publisher, matchID string) Publisher {
	if p == nil {
		return NopPublisher()
	}
	return PublisherFunc(func(ctx context.Context, event Event) {
		if event.MatchID == "" {
			event.MatchID = matchID
		}
		p.Publish(ctx, event)
	})
}

func (e Event) WithExtra(key string, value any) Event {
	if e.Extra == nil {
		e.Extra = make(map[string]any, 1)
	}
	e.Extra[key] = value
	return e
}
