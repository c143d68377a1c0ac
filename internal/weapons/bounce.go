package weapons

import (
	"github.com/google/uuid"

	"shellstorm/server/internal/ballistics"
)

// fireBounce launches a projectile that reflects off terrain up to
// MaxBounces times. Each bounce scales speed by Bounciness, tilts the
// reflection upward as the chain grows, and adds lateral spread that shrinks
// with every generation. The final bounce is marked final so no handler can
// retrigger the chain.
func fireBounce(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	maxBounces := def.Params.MaxBounces
	bounciness := def.Params.Bounciness
	if bounciness <= 0 || bounciness >= 1 {
		bounciness = 0.65
	}

	instance := uuid.NewString()
	ctx.RegisterHandler(instance, func(c *ballistics.FireContext, hit ballistics.Impact, out *ballistics.Timeline) {
		if !hit.Event.Impact.Terrain() {
			return
		}
		generation := hit.Spec.BounceCount + 1

		dir := ballistics.Reflect(hit.Velocity.Normalize(), hit.SurfaceNormal)
		bias := def.Params.UpwardBias
		if bias <= 0 {
			bias = 0.1
		}
		dir[1] += bias * float64(generation)

		spread := def.Params.Spread / float64(generation+1)
		dir = jitter(c, dir, spread)

		child := hit.Spec
		child.Start = hit.Event.Position.Add(hit.SurfaceNormal.Mul(childLift))
		child.Direction = dir
		child.Power = hit.Spec.Power * bounciness
		child.Acceleration = 0
		child.BounceCount = generation
		if generation >= maxBounces {
			child.Final = true
			child.WeaponInstance = ""
		}
		resolve(c, child, hit.Event.Time+childSpawnDelayMillis, out)
	})

	spec := baseSpec(def, shot)
	spec.WeaponInstance = instance
	spec.Final = maxBounces <= 0
	_, _, err := resolve(ctx, spec, 0, tl)
	return err
}
