package combat

import (
	"context"

	"shellstorm/server/logging"
)

const (
	FireResolvedEventType      logging.EventType = "combat.fire_resolved"
	ImpactAppliedEventType     logging.EventType = "combat.impact_applied"
	TargetDestroyedEventType   logging.EventType = "combat.target_destroyed"
	PlaybackCancelledEventType logging.EventType = "combat.playback_cancelled"
	FireRejectedEventType      logging.EventType = "combat.fire_rejected"
)

type FireResolvedPayload struct {
	WeaponCode  string `json:"weaponCode"`
	Events      int    `json:"events"`
	Projectiles int    `json:"projectiles"`
	MaxTimeMs   int64  `json:"maxTimeMs"`
}

func FireResolved(ctx context.Context, pub logging.Publisher, fireID string, actor logging.EntityRef, payload FireResolvedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     FireResolvedEventType,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		FireID:   fireID,
	})
}

type ImpactAppliedPayload struct {
	WeaponCode   string  `json:"weaponCode"`
	TimeMs       int64   `json:"timeMs"`
	Terrain      bool    `json:"terrain"`
	ChangedCells int     `json:"changedCells,omitempty"`
	TotalDamage  float64 `json:"totalDamage,omitempty"`
}

func ImpactApplied(ctx context.Context, pub logging.Publisher, fireID string, actor logging.EntityRef, hit []logging.EntityRef, payload ImpactAppliedPayload) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     ImpactAppliedEventType,
		Actor:    actor,
		Targets:  hit,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		Payload:  payload,
		FireID:   fireID,
	})
}

func TargetDestroyed(ctx context.Context, pub logging.Publisher, fireID string, target logging.EntityRef) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     TargetDestroyedEventType,
		Actor:    target,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryCombat,
		FireID:   fireID,
	})
}

func PlaybackCancelled(ctx context.Context, pub logging.Publisher, fireID string, outstanding int) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     PlaybackCancelledEventType,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySystem,
		FireID:   fireID,
	}
	pub.Publish(ctx, event.WithExtra("outstanding", outstanding))
}

func FireRejected(ctx context.Context, pub logging.Publisher, actor logging.EntityRef, weaponCode string, reason string) {
	if pub == nil {
		return
	}
	event := logging.Event{
		Type:     FireRejectedEventType,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryCombat,
	}
	event = event.WithExtra("weaponCode", weaponCode)
	pub.Publish(ctx, event.WithExtra("reason", reason))
}
