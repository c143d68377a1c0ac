package weapons

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"shellstorm/server/internal/ballistics"
)

// fireSplit launches a shell that bursts into SplitCount children on impact.
// Children fan out over explicit left/center/right lateral offsets rather
// than randomness and keep splitting recursively until the fire's projectile
// ceiling would be exceeded, at which point every child of that impact is
// forced final and stripped of its handler linkage.
func fireSplit(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	count := def.Params.SplitCount
	if count < 2 {
		count = 2
	}
	spread := def.Params.SplitSpread
	if spread <= 0 {
		spread = 0.4
	}
	damageScale := def.Params.ChildDamageScale
	if damageScale <= 0 {
		damageScale = 0.6
	}

	instance := uuid.NewString()
	ctx.RegisterHandler(instance, func(c *ballistics.FireContext, hit ballistics.Impact, out *ballistics.Timeline) {
		if !hit.Event.Impact.Terrain() {
			return
		}

		forward := horizontal(hit.Velocity)
		lateral := mgl64.Vec3{0, 1, 0}.Cross(forward).Normalize()

		// A further generation needs room for count children; when it no
		// longer fits, this generation's children go out final.
		exhausted := c.Remaining() < count*2

		for i := 0; i < count; i++ {
			offset := (float64(i) - float64(count-1)/2) * spread
			dir := mgl64.Vec3{0, 1, 0}.
				Add(forward.Mul(0.5)).
				Add(lateral.Mul(offset)).
				Normalize()

			child := hit.Spec
			child.Start = hit.Event.Position.Add(mgl64.Vec3{0, childLift, 0})
			child.Direction = dir
			child.Acceleration = 0
			child.BaseDamage = hit.Spec.BaseDamage * damageScale
			child.CraterSize = hit.Spec.CraterSize * damageScale
			child.AoESize = hit.Spec.AoESize * damageScale
			if exhausted {
				child.Final = true
				child.WeaponInstance = ""
			}
			if _, ok, _ := resolve(c, child, hit.Event.Time+childSpawnDelayMillis, out); !ok {
				break
			}
		}
	})

	spec := baseSpec(def, shot)
	spec.WeaponInstance = instance
	_, _, err := resolve(ctx, spec, 0, tl)
	return err
}
