package weapons

import (
	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

// fireApexSplit lofts a phantom carrier, cuts its recorded arc at the
// highest Move sample, synthesizes a near-zero-damage burst there, and fans
// SplitCount children along the carrier's apex velocity. Children never
// reuse the parent's weapon instance, so a burst cannot re-enter itself;
// only the last child is final.
func fireApexSplit(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	count := def.Params.SplitCount
	if count < 1 {
		count = 3
	}
	spread := def.Params.SplitSpread
	if spread <= 0 {
		spread = 0.3
	}
	damageScale := def.Params.ChildDamageScale
	if damageScale <= 0 {
		damageScale = 0.8
	}

	carrier := baseSpec(def, shot)
	carrier.Phantom = true
	carrier.Final = false

	scratch := &ballistics.Timeline{}
	terminal, ok, err := resolve(ctx, carrier, 0, scratch)
	if err != nil || !ok {
		return err
	}
	carrierID := terminal.ProjectileID

	var moves []ballistics.Event
	for _, ev := range scratch.EventsFor(carrierID) {
		if ev.Kind == ballistics.EventMove {
			moves = append(moves, ev)
		}
	}
	if len(moves) == 0 {
		tl.Merge(scratch)
		return nil
	}

	apex := 0
	for i, ev := range moves {
		if ev.Position.Y() > moves[apex].Position.Y() {
			apex = i
		}
	}
	apexTime := moves[apex].Time
	apexPos := moves[apex].Position

	scratch.TruncateAfter(carrierID, apexTime)
	scratch.Append(ballistics.Event{
		Kind:         ballistics.EventImpact,
		Time:         apexTime,
		ProjectileID: carrierID,
		Position:     apexPos,
		Impact: &ballistics.ImpactDetail{
			BaseDamage: 1,
			Final:      true,
			WeaponCode: def.Code,
			Style:      def.Style,
			Scale:      carrier.Scale,
		},
	})
	tl.Merge(scratch)

	heading := apexHeading(moves, apex, carrier.Direction)
	for i := 0; i < count; i++ {
		child := baseSpec(def, shot)
		child.Start = apexPos
		child.Direction = jitter(ctx, heading, spread)
		child.Acceleration = 0
		child.BaseDamage = def.Damage * damageScale
		child.Final = i == count-1
		if _, ok, err := resolve(ctx, child, apexTime+childSpawnDelayMillis, tl); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	return nil
}

// apexHeading estimates the carrier's flight direction at the apex from the
// neighboring Move samples.
func apexHeading(moves []ballistics.Event, apex int, fallback mgl64.Vec3) mgl64.Vec3 {
	lo := apex - 1
	if lo < 0 {
		lo = 0
	}
	hi := apex + 1
	if hi >= len(moves) {
		hi = len(moves) - 1
	}
	if lo == hi {
		return fallback
	}
	delta := moves[hi].Position.Sub(moves[lo].Position)
	if delta.Len() == 0 {
		return fallback
	}
	return delta.Normalize()
}
