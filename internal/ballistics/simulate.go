package ballistics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/damage"
)

const (
	// DefaultStepMillis is the fixed presentation step between Move events.
	DefaultStepMillis = 50
	// DefaultMaxFlightMillis bounds a projectile that never collides.
	DefaultMaxFlightMillis = 10_000
)

// HeightField answers ground-height queries during collision checks.
// Deformation lives on the terrain collaborator; the simulator only reads.
type HeightField interface {
	HeightAt(x, z float64) float64
}

// Target is the simulator's view of one live dynamic target.
type Target struct {
	ID       string
	Position mgl64.Vec3
	Radius   float64
}

// TargetRegistry tracks moving targets for mid-air collision and homing.
// ApplyDamage resolves combat damage synchronously during simulation so the
// live set stays correct for later projectiles of the same fire; the
// scheduler replays the recorded outcome to observers afterwards.
type TargetRegistry interface {
	Live() []Target
	ApplyDamage(id string, amount float64) (destroyed bool, remaining float64)
}

// Simulator advances one projectile at a time from spawn to a terminal
// condition, appending time-stamped events to the fire's timeline. A nil
// Terrain or Targets collaborator means no collision of that kind is
// possible, which keeps in-flight work safe during match teardown.
type Simulator struct {
	Terrain HeightField
	Targets TargetRegistry

	// FloorY is the theme-specific floor (e.g. a water plane) applied under
	// below-zero terrain.
	FloorY float64

	StepMillis      int64
	MaxFlightMillis int64
}

func (s *Simulator) stepMillis() int64 {
	if s.StepMillis > 0 {
		return s.StepMillis
	}
	return DefaultStepMillis
}

func (s *Simulator) maxFlightMillis() int64 {
	if s.MaxFlightMillis > 0 {
		return s.MaxFlightMillis
	}
	return DefaultMaxFlightMillis
}

// Resolve simulates one projectile starting at the given millisecond offset,
// appends its events to the timeline, and dispatches the registered impact
// handler so the weapon may inject sub-projectiles. The recursion completes
// before Resolve returns; nothing is deferred. Negative start offsets are
// clamped to zero.
func (s *Simulator) Resolve(ctx *FireContext, spec ProjectileSpec, at int64, tl *Timeline) (Event, error) {
	if err := spec.normalize(); err != nil {
		return Event{}, err
	}
	if at < 0 {
		at = 0
	}

	terminal, velocity, normal := s.fly(ctx, spec, at, tl)

	if terminal.Kind == EventImpact && !spec.Final {
		if handler := ctx.Handler(spec.WeaponInstance); handler != nil {
			handler(ctx, Impact{
				Event:         terminal,
				Spec:          spec,
				Velocity:      velocity,
				SurfaceNormal: normal,
			}, tl)
		}
	}
	return terminal, nil
}

// fly runs the kinematic step loop and returns the terminal event alongside
// the impact velocity and surface normal.
func (s *Simulator) fly(ctx *FireContext, spec ProjectileSpec, at int64, tl *Timeline) (Event, mgl64.Vec3, mgl64.Vec3) {
	id := ctx.NewProjectileID()
	tl.Append(Event{Kind: EventSpawn, Time: at, ProjectileID: id, Position: spec.Start})

	step := s.stepMillis()
	maxFlight := s.maxFlightMillis()

	pos := spec.Start
	heading := spec.Direction
	speed := 0.0
	if spec.Acceleration <= 0 {
		speed = spec.Power
	}
	vertical := 0.0
	velocity := heading.Mul(speed)
	up := mgl64.Vec3{0, 1, 0}

	for elapsed := int64(0); elapsed < maxFlight; {
		elapsed += step
		now := at + elapsed
		dt := float64(step) / 1000 * spec.TimeFactor

		guided := spec.TargetID != "" && elapsed >= spec.GuidanceDelay
		if guided {
			if target, ok := s.liveTarget(spec.TargetID); ok {
				heading = steer(heading, target.Position.Sub(pos), spec.MaxTurnRate*dt)
				vertical = 0
			} else {
				guided = false
			}
		}

		if speed < spec.Power {
			speed += spec.Acceleration * dt
			if speed > spec.Power {
				speed = spec.Power
			}
		}
		if !guided {
			vertical += spec.Gravity * dt
		}

		velocity = heading.Mul(speed)
		velocity[1] += vertical
		pos = pos.Add(velocity.Mul(dt))

		if spec.Phantom {
			tl.Append(Event{Kind: EventMove, Time: now, ProjectileID: id, Position: pos})
			continue
		}

		if ground, ok := s.groundHeight(pos.X(), pos.Z()); ok && pos.Y() <= ground {
			pos[1] = ground
			impact := s.appendImpact(tl, spec, id, now, pos, "")
			return impact, velocity, s.surfaceNormal(pos.X(), pos.Z())
		}

		if target, ok := s.firstOverlap(pos, spec.Radius); ok {
			impact := s.appendImpact(tl, spec, id, now, pos, target.ID)
			s.damageTargets(tl, spec, id, now, pos)
			return impact, velocity, up
		}

		tl.Append(Event{Kind: EventMove, Time: now, ProjectileID: id, Position: pos})
	}

	expired := Event{Kind: EventExpired, Time: at + maxFlight, ProjectileID: id, Position: pos}
	tl.Append(expired)
	return expired, velocity, up
}

// appendImpact records the single terminal impact for a projectile.
func (s *Simulator) appendImpact(tl *Timeline, spec ProjectileSpec, id string, now int64, pos mgl64.Vec3, targetID string) Event {
	impact := Event{
		Kind:         EventImpact,
		Time:         now,
		ProjectileID: id,
		Position:     pos,
		Impact: &ImpactDetail{
			TargetID:    targetID,
			BaseDamage:  spec.BaseDamage,
			CraterSize:  spec.CraterSize,
			AoESize:     spec.AoESize,
			BounceCount: spec.BounceCount,
			Final:       spec.Final,
			WeaponCode:  spec.WeaponCode,
			Style:       spec.Style,
			Scale:       spec.Scale,
		},
	}
	tl.Append(impact)
	return impact
}

// damageTargets resolves falloff damage against every live target within the
// blast radius of a dynamic-target impact, keyed on 3D distance. Destroyed
// targets leave the live set immediately and gain a TargetDestroyed event at
// the impact timestamp.
func (s *Simulator) damageTargets(tl *Timeline, spec ProjectileSpec, projectileID string, now int64, center mgl64.Vec3) {
	if s.Targets == nil || spec.BaseDamage <= 0 {
		return
	}
	for _, target := range s.Targets.Live() {
		dist := target.Position.Sub(center).Len()
		amount := damage.Falloff(spec.BaseDamage, dist, spec.AoESize)
		if amount <= 0 {
			continue
		}
		destroyed, _ := s.Targets.ApplyDamage(target.ID, amount)
		if destroyed {
			tl.Append(Event{
				Kind:         EventTargetDestroyed,
				Time:         now,
				ProjectileID: projectileID,
				Position:     target.Position,
				TargetID:     target.ID,
			})
		}
	}
}

// groundHeight reports the collision floor under (x, z). The second return is
// false when no terrain collaborator is available.
func (s *Simulator) groundHeight(x, z float64) (float64, bool) {
	if s.Terrain == nil {
		return 0, false
	}
	height := s.Terrain.HeightAt(x, z)
	if height < s.FloorY {
		height = s.FloorY
	}
	return height, true
}

// surfaceNormal estimates the terrain normal at (x, z) by central differences.
func (s *Simulator) surfaceNormal(x, z float64) mgl64.Vec3 {
	up := mgl64.Vec3{0, 1, 0}
	if s.Terrain == nil {
		return up
	}
	const sample = 0.5
	dhdx := (s.Terrain.HeightAt(x+sample, z) - s.Terrain.HeightAt(x-sample, z)) / (2 * sample)
	dhdz := (s.Terrain.HeightAt(x, z+sample) - s.Terrain.HeightAt(x, z-sample)) / (2 * sample)
	normal := mgl64.Vec3{-dhdx, 1, -dhdz}
	length := normal.Len()
	if length == 0 {
		return up
	}
	return normal.Mul(1 / length)
}

// firstOverlap returns the first live target whose bounding sphere overlaps
// the projectile. Registry order decides ties, which keeps resolution
// deterministic for a given world state.
func (s *Simulator) firstOverlap(pos mgl64.Vec3, radius float64) (Target, bool) {
	if s.Targets == nil {
		return Target{}, false
	}
	for _, target := range s.Targets.Live() {
		if target.Position.Sub(pos).Len() <= target.Radius+radius {
			return target, true
		}
	}
	return Target{}, false
}

// liveTarget finds a live target by id for guidance updates.
func (s *Simulator) liveTarget(id string) (Target, bool) {
	if s.Targets == nil {
		return Target{}, false
	}
	for _, target := range s.Targets.Live() {
		if target.ID == id {
			return target, true
		}
	}
	return Target{}, false
}

// steer rotates heading toward desired by at most maxAngle radians,
// preserving unit length.
func steer(heading, desired mgl64.Vec3, maxAngle float64) mgl64.Vec3 {
	if maxAngle <= 0 || desired.Len() == 0 {
		return heading
	}
	want := desired.Normalize()
	dot := heading.Dot(want)
	if dot > 1 {
		dot = 1
	} else if dot < -1 {
		dot = -1
	}
	angle := math.Acos(dot)
	if angle <= maxAngle {
		return want
	}
	axis := heading.Cross(want)
	if axis.Len() == 0 {
		// Anti-parallel; pick any perpendicular axis.
		axis = heading.Cross(mgl64.Vec3{0, 1, 0})
		if axis.Len() == 0 {
			axis = mgl64.Vec3{1, 0, 0}
		}
	}
	rotated := mgl64.QuatRotate(maxAngle, axis.Normalize()).Rotate(heading)
	return rotated.Normalize()
}

// Reflect mirrors an incoming direction about a surface normal,
// R = I - 2(I·N)N. Exposed for the bounce family of weapons.
func Reflect(incoming, normal mgl64.Vec3) mgl64.Vec3 {
	return incoming.Sub(normal.Mul(2 * incoming.Dot(normal)))
}
