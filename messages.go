package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

const protocolVersion = 1

type vec3Payload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func vecPayload(v mgl64.Vec3) vec3Payload {
	return vec3Payload{X: v.X(), Y: v.Y(), Z: v.Z()}
}

type impactPayload struct {
	TargetID    string  `json:"targetId,omitempty"`
	Damage      float64 `json:"damage"`
	CraterSize  float64 `json:"craterSize,omitempty"`
	AoESize     float64 `json:"aoeSize,omitempty"`
	BounceCount int     `json:"bounceCount,omitempty"`
	Final       bool    `json:"final,omitempty"`
	WeaponCode  string  `json:"weaponCode,omitempty"`
	Style       string  `json:"style,omitempty"`
	Scale       float64 `json:"scale,omitempty"`
}

type eventWire struct {
	Kind         string         `json:"kind"`
	T            int64          `json:"t"`
	ProjectileID string         `json:"projectileId,omitempty"`
	Position     vec3Payload    `json:"position"`
	Impact       *impactPayload `json:"impact,omitempty"`
	TargetID     string         `json:"targetId,omitempty"`
}

func eventPayload(ev ballistics.Event) eventWire {
	wire := eventWire{
		Kind:         string(ev.Kind),
		T:            ev.Time,
		ProjectileID: ev.ProjectileID,
		Position:     vecPayload(ev.Position),
		TargetID:     ev.TargetID,
	}
	if ev.Impact != nil {
		wire.Impact = &impactPayload{
			TargetID:    ev.Impact.TargetID,
			Damage:      ev.Impact.BaseDamage,
			CraterSize:  ev.Impact.CraterSize,
			AoESize:     ev.Impact.AoESize,
			BounceCount: ev.Impact.BounceCount,
			Final:       ev.Impact.Final,
			WeaponCode:  ev.Impact.WeaponCode,
			Style:       ev.Impact.Style,
			Scale:       ev.Impact.Scale,
		}
	}
	return wire
}

func timelinePayload(tl *ballistics.Timeline) []eventWire {
	events := tl.Events()
	wire := make([]eventWire, 0, len(events))
	for _, ev := range events {
		wire = append(wire, eventPayload(ev))
	}
	return wire
}

// timelineMessage ships an entire resolved fire to clients in one frame so
// they can animate it locally while the server replays it on schedule.
type timelineMessage struct {
	Ver        int         `json:"ver"`
	Type       string      `json:"type"`
	MatchID    string      `json:"matchId"`
	FireID     string      `json:"fireId"`
	ShooterID  string      `json:"shooterId"`
	WeaponCode string      `json:"weaponCode"`
	Events     []eventWire `json:"events"`
	MaxTimeMs  int64       `json:"maxTimeMs"`
}

// effectMessage confirms one authoritative side effect at its scheduled
// wall-clock moment.
type effectMessage struct {
	Ver     int       `json:"ver"`
	Type    string    `json:"type"`
	MatchID string    `json:"matchId"`
	FireID  string    `json:"fireId"`
	Event   eventWire `json:"event"`
}

type turnMessage struct {
	Ver              int    `json:"ver"`
	Type             string `json:"type"`
	MatchID          string `json:"matchId"`
	FireID           string `json:"fireId"`
	FinalEventTimeMs int64  `json:"finalEventTimeMs"`
}

type agentPayload struct {
	ID       string      `json:"id"`
	Position vec3Payload `json:"position"`
	Shield   float64     `json:"shield"`
	Armor    float64     `json:"armor"`
	Health   float64     `json:"health"`
	Alive    bool        `json:"alive"`
}

type targetPayload struct {
	ID       string      `json:"id"`
	Position vec3Payload `json:"position"`
	Radius   float64     `json:"radius"`
	Health   float64     `json:"health"`
}

type joinResponse struct {
	Ver         int            `json:"ver"`
	ID          string         `json:"id"`
	MatchID     string         `json:"matchId"`
	Agents      []agentPayload `json:"agents"`
	Targets     []targetPayload `json:"targets"`
	WeaponCodes []string       `json:"weaponCodes"`
	CatalogHash string         `json:"weaponCatalogHash"`
	Seed        string         `json:"seed"`
}
