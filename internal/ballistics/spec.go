package ballistics

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrDegenerateDirection marks a spec whose direction cannot be normalized.
var ErrDegenerateDirection = errors.New("ballistics: zero-length direction")

// ProjectileSpec is the full input to one simulation run. Specs are value
// types; handlers copy and adjust the parent spec when spawning children.
type ProjectileSpec struct {
	Start     mgl64.Vec3
	Direction mgl64.Vec3

	// Power is the target speed in world units per second. Speed ramps from
	// zero toward Power under Acceleration; a non-positive Acceleration
	// launches at full Power immediately.
	Power        float64
	Gravity      float64
	Acceleration float64

	// TimeFactor scales the physics advance per fixed presentation step, so
	// sub-munitions can play faster or slower than their parent. Defaults
	// to 1.
	TimeFactor float64

	// Radius expands the projectile for dynamic-target overlap checks.
	Radius float64

	// Final forbids spawning children regardless of handler logic.
	Final bool

	// BounceCount records how many reflection generations precede this
	// projectile. Carried into the terminal payload.
	BounceCount int

	BaseDamage float64
	CraterSize float64
	AoESize    float64

	// Guidance. A projectile with a TargetID steers toward the target's
	// live position after GuidanceDelay, turning at most MaxTurnRate
	// radians per second.
	TargetID      string
	MaxTurnRate   float64
	GuidanceDelay int64

	// WeaponInstance is the ephemeral per-fire handler key. It scopes
	// recursive handler lookups to one fire action and must never be
	// conflated with WeaponCode, the stable catalog identity used for
	// damage attribution and display.
	WeaponInstance string
	WeaponCode     string

	// Visual passthrough for the renderer.
	Style string
	Scale float64

	// Phantom disables collision entirely; the projectile flies its arc and
	// expires. Used by apex-split carriers that exist only to be sampled.
	Phantom bool
}

// normalize validates the spec and fills inferable defaults in place.
// Degenerate input is a hard error; everything safely inferable is repaired.
func (s *ProjectileSpec) normalize() error {
	for _, v := range []float64{s.Direction.X(), s.Direction.Y(), s.Direction.Z()} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("ballistics: non-finite direction component %v", v)
		}
	}
	length := s.Direction.Len()
	if length == 0 {
		return ErrDegenerateDirection
	}
	if math.Abs(length-1) > 1e-9 {
		s.Direction = s.Direction.Mul(1 / length)
	}
	if s.Power <= 0 || math.IsNaN(s.Power) || math.IsInf(s.Power, 0) {
		return fmt.Errorf("ballistics: non-positive power %v", s.Power)
	}
	if s.TimeFactor <= 0 {
		s.TimeFactor = 1
	}
	if s.Scale <= 0 {
		s.Scale = 1
	}
	return nil
}
