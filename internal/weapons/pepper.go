package weapons

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"shellstorm/server/internal/ballistics"
)

// firePepper launches a shell that walks a chain of micro-bounces across the
// ground near its first impact. Every generation re-aims steeply at a random
// ground point inside PepperRadius and decays scale, damage, and time factor
// by DecayFactor. The chain hard-stops at PepperCount generations.
func firePepper(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	count := def.Params.PepperCount
	if count < 1 {
		count = 4
	}
	radius := def.Params.PepperRadius
	if radius <= 0 {
		radius = 3
	}
	decay := def.Params.DecayFactor
	if decay <= 0 || decay >= 1 {
		decay = 0.8
	}

	instance := uuid.NewString()
	ctx.RegisterHandler(instance, func(c *ballistics.FireContext, hit ballistics.Impact, out *ballistics.Timeline) {
		if !hit.Event.Impact.Terrain() {
			return
		}
		generation := hit.Spec.BounceCount + 1

		// Hop up from the crater and dive at a nearby random point.
		rng := c.RNG()
		angle := rng.Float64() * 2 * math.Pi
		dist := radius * (0.3 + 0.7*rng.Float64())
		start := hit.Event.Position.Add(mgl64.Vec3{0, 1.5 + hit.Spec.Scale, 0})
		aim := hit.Event.Position.Add(mgl64.Vec3{math.Cos(angle) * dist, 0, math.Sin(angle) * dist})

		child := hit.Spec
		child.Start = start
		child.Direction = aim.Sub(start).Normalize()
		child.Acceleration = 0
		child.BounceCount = generation
		child.BaseDamage = hit.Spec.BaseDamage * decay
		child.Scale = hit.Spec.Scale * decay
		child.TimeFactor = hit.Spec.TimeFactor * decay
		if generation >= count-1 {
			child.Final = true
			child.WeaponInstance = ""
		}
		// Near-zero inter-spawn delay keeps the burst staccato.
		resolve(c, child, hit.Event.Time, out)
	})

	spec := baseSpec(def, shot)
	spec.WeaponInstance = instance
	spec.Final = count <= 1
	_, _, err := resolve(ctx, spec, 0, tl)
	return err
}
