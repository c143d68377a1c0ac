// Package damage owns the radial falloff curve and the layered
// shield/armor/health resolution applied to agents.
package damage

import "math"

// Epsilon is the tolerance used when comparing pool values.
const Epsilon = 1e-6

// Falloff computes the damage applied at a given distance from an impact:
// full base damage at the center, half at the blast edge, zero beyond it.
func Falloff(base, distance, radius float64) float64 {
	if base <= 0 {
		return 0
	}
	if distance < 0 {
		distance = 0
	}
	if radius <= 0 {
		if distance > 0 {
			return 0
		}
		return math.Round(base)
	}
	if distance > radius {
		return 0
	}
	return math.Round(base * (1 - 0.5*distance/radius))
}

// Pools captures an agent's defensive layers.
type Pools struct {
	Shield float64
	Armor  float64
	Health float64
}

// Breakdown reports how one application of damage distributed across pools.
type Breakdown struct {
	ShieldDamage float64
	ArmorDamage  float64
	HealthDamage float64
	Destroyed    bool
}

// Resolve applies amount to the pools in place. Shields absorb first. The
// remainder splits evenly between armor and health while armor holds at
// least half of it; otherwise armor is exhausted and health takes the rest.
func Resolve(pools *Pools, amount float64) Breakdown {
	var out Breakdown
	if pools == nil || amount <= 0 {
		return out
	}

	if pools.Shield > 0 {
		absorbed := math.Min(pools.Shield, amount)
		pools.Shield -= absorbed
		amount -= absorbed
		out.ShieldDamage = absorbed
	}

	if amount > 0 {
		half := amount / 2
		if pools.Armor >= half {
			pools.Armor -= half
			pools.Health -= half
			out.ArmorDamage = half
			out.HealthDamage = half
		} else {
			out.ArmorDamage = pools.Armor
			out.HealthDamage = amount - pools.Armor
			pools.Health -= amount - pools.Armor
			pools.Armor = 0
		}
	}

	if pools.Health < Epsilon {
		if pools.Health < 0 {
			pools.Health = 0
		}
		out.Destroyed = true
	}
	return out
}
