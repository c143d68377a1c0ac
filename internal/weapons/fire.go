package weapons

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

// childSpawnDelayMillis is the standard offset between a parent impact and
// its children's spawn. Spawn offsets are always clamped to be non-negative.
const childSpawnDelayMillis = 50

// childLift keeps spawned children marginally clear of the surface that
// terminated their parent.
const childLift = 0.25

// TargetLookup is the pre-fire view of the dynamic-target registry used to
// decide homing eligibility.
type TargetLookup interface {
	Live() []ballistics.Target
	PredictedPositionAt(id string, timeMs int64) (mgl64.Vec3, bool)
}

// Deps bundles the collaborators a behavior may consult while arming.
type Deps struct {
	// Targets may be nil; homing weapons then fall back to unguided shots.
	Targets TargetLookup
}

// Shot is the player's aim input for one fire action.
type Shot struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
	// Power overrides the definition's launch speed when positive.
	Power float64
}

// Fire arms the definition's behavior and resolves every projectile it
// produces into the timeline. The call returns only after the entire
// recursive outcome, sub-projectiles included, has been recorded.
func Fire(ctx *ballistics.FireContext, deps Deps, def Definition, shot Shot, tl *ballistics.Timeline) error {
	switch def.Behavior {
	case BehaviorStraight:
		return fireStraight(ctx, def, shot, tl)
	case BehaviorBounce:
		return fireBounce(ctx, def, shot, tl)
	case BehaviorSplit:
		return fireSplit(ctx, def, shot, tl)
	case BehaviorCarrier:
		return fireCarrier(ctx, def, shot, tl)
	case BehaviorApexSplit:
		return fireApexSplit(ctx, def, shot, tl)
	case BehaviorPepper:
		return firePepper(ctx, def, shot, tl)
	case BehaviorHoming:
		return fireHoming(ctx, deps, def, shot, tl)
	case BehaviorMultiHoming:
		return fireMultiHoming(ctx, deps, def, shot, tl)
	case BehaviorVolley:
		return fireVolley(ctx, def, shot, tl)
	default:
		return fmt.Errorf("weapons: %q has unknown behavior %q", def.Code, def.Behavior)
	}
}

// baseSpec translates a definition plus aim input into the root projectile
// spec behaviors start from.
func baseSpec(def Definition, shot Shot) ballistics.ProjectileSpec {
	power := shot.Power
	if power <= 0 {
		power = def.Power
	}
	return ballistics.ProjectileSpec{
		Start:        shot.Origin,
		Direction:    shot.Direction,
		Power:        power,
		Gravity:      def.Gravity,
		Acceleration: def.Acceleration,
		TimeFactor:   def.TimeFactor,
		Radius:       def.Radius,
		BaseDamage:   def.Damage,
		CraterSize:   def.CraterSize,
		AoESize:      def.AoESize,
		WeaponCode:   def.Code,
		Style:        def.Style,
		Scale:        def.Scale,
	}
}

// resolve runs one projectile through the simulator if the fire's budget
// still has room. Overflow is a guard, not a failure.
func resolve(ctx *ballistics.FireContext, spec ballistics.ProjectileSpec, at int64, tl *ballistics.Timeline) (ballistics.Event, bool, error) {
	if !ctx.TrySpend(1) {
		return ballistics.Event{}, false, nil
	}
	ev, err := ctx.Simulator().Resolve(ctx, spec, at, tl)
	if err != nil {
		return ballistics.Event{}, false, err
	}
	return ev, true, nil
}

// jitter displaces a unit direction by uniform lateral noise and
// renormalizes.
func jitter(ctx *ballistics.FireContext, dir mgl64.Vec3, spread float64) mgl64.Vec3 {
	if spread <= 0 {
		return dir
	}
	rng := ctx.RNG()
	out := mgl64.Vec3{
		dir.X() + (rng.Float64()*2-1)*spread,
		dir.Y(),
		dir.Z() + (rng.Float64()*2-1)*spread,
	}
	if out.Len() == 0 {
		return dir
	}
	return out.Normalize()
}

// horizontal extracts the normalized horizontal component of v, falling back
// to +X when the vector is vertical.
func horizontal(v mgl64.Vec3) mgl64.Vec3 {
	flat := mgl64.Vec3{v.X(), 0, v.Z()}
	if flat.Len() == 0 {
		return mgl64.Vec3{1, 0, 0}
	}
	return flat.Normalize()
}

func fireStraight(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	spec := baseSpec(def, shot)
	spec.Final = true
	_, _, err := resolve(ctx, spec, 0, tl)
	return err
}

func fireVolley(ctx *ballistics.FireContext, def Definition, shot Shot, tl *ballistics.Timeline) error {
	count := def.Params.VolleyCount
	if count < 1 {
		count = 1
	}
	for i := 0; i < count; i++ {
		spec := baseSpec(def, shot)
		spec.Direction = jitter(ctx, spec.Direction, def.Params.Spread)
		spec.Final = i == count-1
		at := int64(i) * def.Params.VolleyDelayMs
		if _, ok, err := resolve(ctx, spec, at, tl); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	return nil
}
