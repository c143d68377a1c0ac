package weapons

import (
	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

// fireCarrier flies one slow, low-gravity carrier and rains bomblets beneath
// its recorded arc. After DropDelayMs, one bomblet drops every CadenceMs with
// randomized horizontal deviation and normal gravity, until the carrier's
// own impact time. With SelfDestruct set, the carrier's tail past the last
// drop is truncated and replaced by a low-damage self-destruct impact.
func fireCarrier(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	cadence := def.Params.CadenceMs
	if cadence <= 0 {
		cadence = 250
	}
	dropDelay := def.Params.DropDelayMs
	if dropDelay < 0 {
		dropDelay = 0
	}

	carrier := baseSpec(def, shot)
	carrier.Final = false

	scratch := &ballistics.Timeline{}
	terminal, ok, err := resolve(ctx, carrier, 0, scratch)
	if err != nil || !ok {
		return err
	}
	carrierID := terminal.ProjectileID

	moves := make([]ballistics.Event, 0, scratch.Len())
	for _, ev := range scratch.EventsFor(carrierID) {
		if ev.Kind == ballistics.EventMove {
			moves = append(moves, ev)
		}
	}

	bomblet := bombletSpec(def, carrier)
	var lastDrop int64
	var drops []mgl64.Vec3
	var dropTimes []int64
	for at := dropDelay; at < terminal.Time; at += cadence {
		pos, found := samplePosition(moves, carrier.Start, at)
		if !found {
			continue
		}
		drops = append(drops, pos)
		dropTimes = append(dropTimes, at)
		lastDrop = at
	}

	for i, pos := range drops {
		sub := bomblet
		sub.Start = pos
		sub.Direction = bombletDirection(ctx, def.Params.Deviation)
		sub.Final = i == len(drops)-1
		if _, ok, err := resolve(ctx, sub, dropTimes[i], tl); err != nil {
			return err
		} else if !ok {
			break
		}
	}

	if def.Params.SelfDestruct && lastDrop > 0 && lastDrop < terminal.Time {
		pos, _ := samplePosition(moves, carrier.Start, lastDrop)
		scratch.TruncateAfter(carrierID, lastDrop)
		scratch.Append(ballistics.Event{
			Kind:         ballistics.EventImpact,
			Time:         lastDrop,
			ProjectileID: carrierID,
			Position:     pos,
			Impact: &ballistics.ImpactDetail{
				BaseDamage: def.Damage * 0.25,
				CraterSize: def.CraterSize * 0.5,
				AoESize:    def.AoESize * 0.5,
				Final:      true,
				WeaponCode: def.Code,
				Style:      def.Style,
				Scale:      def.Scale,
			},
		})
	}

	tl.Merge(scratch)
	return nil
}

// bombletSpec derives the submunition spec from the definition, falling back
// to carrier-relative defaults for unset tunables.
func bombletSpec(def Definition, carrier ballistics.ProjectileSpec) ballistics.ProjectileSpec {
	sub := carrier
	sub.WeaponInstance = ""
	sub.BounceCount = 0
	sub.Scale = carrier.Scale * 0.5
	sub.Power = def.Params.BombletPower
	if sub.Power <= 0 {
		sub.Power = carrier.Power * 0.4
	}
	sub.Gravity = def.Params.BombletGravity
	if sub.Gravity >= 0 {
		sub.Gravity = -20
	}
	sub.BaseDamage = def.Params.BombletDamage
	if sub.BaseDamage <= 0 {
		sub.BaseDamage = carrier.BaseDamage
	}
	sub.Acceleration = 0
	return sub
}

// bombletDirection aims a bomblet mostly downward with random horizontal
// deviation.
func bombletDirection(ctx *ballistics.FireContext, deviation float64) mgl64.Vec3 {
	if deviation <= 0 {
		deviation = 0.2
	}
	rng := ctx.RNG()
	dir := mgl64.Vec3{
		(rng.Float64()*2 - 1) * deviation,
		-1,
		(rng.Float64()*2 - 1) * deviation,
	}
	return dir.Normalize()
}

// samplePosition returns the carrier position at the latest Move recorded at
// or before the requested time.
func samplePosition(moves []ballistics.Event, start mgl64.Vec3, at int64) (mgl64.Vec3, bool) {
	pos := start
	found := false
	for _, ev := range moves {
		if ev.Time > at {
			break
		}
		pos = ev.Position
		found = true
	}
	return pos, found
}
