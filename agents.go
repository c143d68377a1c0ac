package server

import (
	"github.com/go-gl/mathgl/mgl64"

	"shellstorm/server/internal/damage"
)

// Default mitigation pools for a freshly deployed agent emplacement.
const (
	defaultShield = 25.0
	defaultArmor  = 50.0
	defaultHealth = 100.0
)

// Agent is a player-controlled emplacement. Agents never move during a fire
// sequence, so impact damage against them resolves at playback time rather
// than during simulation.
type Agent struct {
	ID       string
	Position mgl64.Vec3
	Pools    damage.Pools
	Alive    bool
}
