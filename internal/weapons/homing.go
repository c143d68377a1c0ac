package weapons

import (
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/ballistics"
)

// fireHoming launches one guided projectile at the nearest eligible target.
// Guidance engages after GuidanceDelayMs and steers at most TurnRate radians
// per second toward the target's live position. With no eligible target at
// fire time the weapon degrades to exactly one unguided final shot.
func fireHoming(ctx *ballistics.FireContext, deps Deps, def Definition, shot Shot, tl *ballistics.Timeline) error {
	eligible := eligibleTargets(deps, shot.Origin, def.Params.HomingRange, def.Params.GuidanceDelayMs)
	spec := guidedSpec(def, shot, 0)
	spec.Final = true
	if len(eligible) > 0 {
		spec.TargetID = eligible[0].ID
	}
	_, _, err := resolve(ctx, spec, 0, tl)
	return err
}

// fireMultiHoming launches one guided projectile per eligible target with
// staggered guidance delays; only the last is final. Zero eligible targets
// degrade to a single unguided final shot, exactly like the single-target
// variant.
func fireMultiHoming(ctx *ballistics.FireContext, deps Deps, def Definition, shot Shot, tl *ballistics.Timeline) error {
	eligible := eligibleTargets(deps, shot.Origin, def.Params.HomingRange, def.Params.GuidanceDelayMs)
	if len(eligible) == 0 {
		spec := guidedSpec(def, shot, 0)
		spec.Final = true
		_, _, err := resolve(ctx, spec, 0, tl)
		return err
	}

	for i, target := range eligible {
		spec := guidedSpec(def, shot, int64(i)*def.Params.GuidanceStaggerMs)
		spec.TargetID = target.ID
		spec.Direction = jitter(ctx, spec.Direction, def.Params.Spread)
		spec.Final = i == len(eligible)-1
		if _, ok, err := resolve(ctx, spec, 0, tl); err != nil {
			return err
		} else if !ok {
			break
		}
	}
	return nil
}

// guidedSpec builds the shared guided-projectile spec with an extra guidance
// delay stagger.
func guidedSpec(def Definition, shot Shot, stagger int64) ballistics.ProjectileSpec {
	spec := baseSpec(def, shot)
	spec.MaxTurnRate = def.Params.TurnRate
	spec.GuidanceDelay = def.Params.GuidanceDelayMs + stagger
	if spec.GuidanceDelay < 0 {
		spec.GuidanceDelay = 0
	}
	return spec
}

// eligibleTargets returns the live targets whose predicted position at the
// guidance-engage moment falls within rangeLimit of the muzzle, nearest
// first. A nil registry or non-positive range yields none.
func eligibleTargets(deps Deps, origin mgl64.Vec3, rangeLimit float64, lookaheadMs int64) []ballistics.Target {
	if deps.Targets == nil || rangeLimit <= 0 {
		return nil
	}
	type candidate struct {
		target ballistics.Target
		dist   float64
	}
	var candidates []candidate
	for _, target := range deps.Targets.Live() {
		pos, ok := deps.Targets.PredictedPositionAt(target.ID, lookaheadMs)
		if !ok {
			continue
		}
		dist := pos.Sub(origin).Len()
		if dist > rangeLimit {
			continue
		}
		candidates = append(candidates, candidate{target: target, dist: dist})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})
	out := make([]ballistics.Target, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.target)
	}
	return out
}
