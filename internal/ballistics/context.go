package ballistics

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// Impact is the payload handed to a weapon's impact handler when one of its
// projectiles lands.
type Impact struct {
	// Event is the terminal impact event already appended to the timeline.
	Event Event
	// Spec is the spec of the projectile that landed.
	Spec ProjectileSpec
	// Velocity is the projectile's velocity at the moment of impact.
	Velocity mgl64.Vec3
	// SurfaceNormal is the terrain normal at the impact point, or world up
	// for dynamic-target impacts.
	SurfaceNormal mgl64.Vec3
}

// ImpactHandler reacts to a terminal impact and may append further events by
// resolving sub-projectiles through the fire context's simulator.
type ImpactHandler func(ctx *FireContext, hit Impact, tl *Timeline)

// FireContext scopes one fire action: the handler registry keyed by ephemeral
// weapon-instance ids, the per-fire projectile budget, the seeded RNG, and
// projectile id allocation. Contexts never outlive their fire; Close releases
// every handler once the timeline is frozen.
type FireContext struct {
	FireID string

	sim      *Simulator
	rng      *rand.Rand
	budget   int
	spent    int
	handlers *orderedmap.OrderedMap[string, ImpactHandler]
	nextID   int
}

// DefaultProjectileBudget caps projectiles produced by one fire action when
// the weapon definition does not set its own ceiling.
const DefaultProjectileBudget = 64

// NewFireContext builds the per-fire context. The RNG is derived from the
// match root seed and the fire id so resolved timelines are reproducible.
func NewFireContext(sim *Simulator, rootSeed, fireID string, budget int) *FireContext {
	if budget <= 0 {
		budget = DefaultProjectileBudget
	}
	return &FireContext{
		FireID:   fireID,
		sim:      sim,
		rng:      rand.New(rand.NewSource(deriveSeed(rootSeed, fireID))),
		budget:   budget,
		handlers: orderedmap.NewOrderedMap[string, ImpactHandler](),
	}
}

// deriveSeed hashes the root seed and a label into a non-zero RNG seed.
func deriveSeed(rootSeed, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(rootSeed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

// Simulator returns the simulator this fire resolves through.
func (c *FireContext) Simulator() *Simulator {
	return c.sim
}

// RNG exposes the per-fire random source used for spread and deviation.
func (c *FireContext) RNG() *rand.Rand {
	return c.rng
}

// RegisterHandler binds an impact handler to a weapon-instance id for the
// duration of this fire.
func (c *FireContext) RegisterHandler(weaponInstance string, h ImpactHandler) {
	if weaponInstance == "" || h == nil {
		return
	}
	c.handlers.Set(weaponInstance, h)
}

// ReleaseHandler removes a single handler binding, typically once a weapon's
// termination condition is met.
func (c *FireContext) ReleaseHandler(weaponInstance string) {
	c.handlers.Delete(weaponInstance)
}

// Handler looks up the handler bound to a weapon-instance id.
func (c *FireContext) Handler(weaponInstance string) ImpactHandler {
	if weaponInstance == "" {
		return nil
	}
	h, ok := c.handlers.Get(weaponInstance)
	if !ok {
		return nil
	}
	return h
}

// Close deregisters every handler. Called when the fire's timeline freezes so
// no registration can leak past one fire action.
func (c *FireContext) Close() {
	keys := make([]string, 0, c.handlers.Len())
	for el := c.handlers.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	for _, key := range keys {
		c.handlers.Delete(key)
	}
}

// TrySpend consumes n slots from the fire's projectile budget. It reports
// false without spending when the budget would be exceeded; callers respond
// by forcing children final rather than erroring.
func (c *FireContext) TrySpend(n int) bool {
	if n <= 0 {
		return true
	}
	if c.spent+n > c.budget {
		return false
	}
	c.spent += n
	return true
}

// Remaining reports how many projectile slots the budget still holds.
func (c *FireContext) Remaining() int {
	left := c.budget - c.spent
	if left < 0 {
		return 0
	}
	return left
}

// Spent reports how many projectiles this fire has produced.
func (c *FireContext) Spent() int {
	return c.spent
}

// NewProjectileID allocates a timeline-unique projectile id.
func (c *FireContext) NewProjectileID() string {
	c.nextID++
	return fmt.Sprintf("%s/p%d", c.FireID, c.nextID)
}
