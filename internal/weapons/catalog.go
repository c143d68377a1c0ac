// Package weapons holds the weapon catalog and the library of spawn-on-impact
// behaviors that turn one fire action into a fully resolved timeline.
package weapons

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"sync"
)

// ErrUnknownWeapon is returned when a fire action names a weapon code the
// catalog does not carry. The fire fails fast with no timeline produced.
var ErrUnknownWeapon = errors.New("weapons: unknown weapon code")

// Behavior selects the spawn-on-impact strategy for a definition.
type Behavior string

const (
	BehaviorStraight    Behavior = "straight"
	BehaviorBounce      Behavior = "bounce"
	BehaviorSplit       Behavior = "split"
	BehaviorCarrier     Behavior = "carrier"
	BehaviorApexSplit   Behavior = "apex-split"
	BehaviorPepper      Behavior = "pepper"
	BehaviorHoming      Behavior = "homing"
	BehaviorMultiHoming Behavior = "multi-homing"
	BehaviorVolley      Behavior = "volley"
)

// Definition is one designer-authored weapon catalog entry. Code is the
// stable catalog identity carried into impact payloads; it is never the
// per-fire weapon-instance id.
type Definition struct {
	Code     string   `json:"code" jsonschema:"title=Weapon code,pattern=^[a-z0-9-]+$,description=Stable catalog identifier used for damage attribution and display"`
	Name     string   `json:"name" jsonschema:"title=Display name"`
	Behavior Behavior `json:"behavior" jsonschema:"title=Impact behavior,description=Spawn-on-impact strategy resolved by the combat core"`

	Power        float64 `json:"power" jsonschema:"description=Default launch speed in world units per second"`
	Gravity      float64 `json:"gravity" jsonschema:"description=Vertical acceleration applied every step; negative pulls down"`
	Acceleration float64 `json:"acceleration,omitempty" jsonschema:"description=Speed ramp toward power; zero launches at full speed"`
	TimeFactor   float64 `json:"timeFactor,omitempty" jsonschema:"description=Physics advance per presentation step relative to the parent"`
	Radius       float64 `json:"radius,omitempty" jsonschema:"description=Collision radius against dynamic targets"`

	Damage     float64 `json:"damage" jsonschema:"description=Base damage at the impact center"`
	CraterSize float64 `json:"craterSize,omitempty"`
	AoESize    float64 `json:"aoeSize,omitempty"`

	Style string  `json:"style,omitempty" jsonschema:"description=Visual style token passed through to the renderer"`
	Scale float64 `json:"scale,omitempty"`

	Params Params `json:"params,omitempty" jsonschema:"description=Behavior tunables"`
}

// Params carries the behavior-specific tunables. Unused fields are ignored
// by behaviors that do not read them.
type Params struct {
	MaxBounces int     `json:"maxBounces,omitempty"`
	Bounciness float64 `json:"bounciness,omitempty"`
	UpwardBias float64 `json:"upwardBias,omitempty"`
	Spread     float64 `json:"spread,omitempty"`

	SplitCount        int     `json:"splitCount,omitempty"`
	SplitSpread       float64 `json:"splitSpread,omitempty"`
	ChildDamageScale  float64 `json:"childDamageScale,omitempty"`
	ProjectileCeiling int     `json:"projectileCeiling,omitempty"`

	DropDelayMs    int64   `json:"dropDelayMs,omitempty"`
	CadenceMs      int64   `json:"cadenceMs,omitempty"`
	Deviation      float64 `json:"deviation,omitempty"`
	SelfDestruct   bool    `json:"selfDestruct,omitempty"`
	BombletPower   float64 `json:"bombletPower,omitempty"`
	BombletGravity float64 `json:"bombletGravity,omitempty"`
	BombletDamage  float64 `json:"bombletDamage,omitempty"`

	PepperCount  int     `json:"pepperCount,omitempty"`
	PepperRadius float64 `json:"pepperRadius,omitempty"`
	DecayFactor  float64 `json:"decayFactor,omitempty"`

	TurnRate          float64 `json:"turnRate,omitempty"`
	GuidanceDelayMs   int64   `json:"guidanceDelayMs,omitempty"`
	GuidanceStaggerMs int64   `json:"guidanceStaggerMs,omitempty"`
	HomingRange       float64 `json:"homingRange,omitempty"`

	VolleyCount   int   `json:"volleyCount,omitempty"`
	VolleyDelayMs int64 `json:"volleyDelayMs,omitempty"`
}

// FileDefinitions models the JSON contract for weapon catalog files. It is
// shared with the schema generator so designers get a machine-readable
// document for validation and editor tooling.
type FileDefinitions []Definition

// Catalog is the stable weapon lookup table: builtin definitions plus any
// file overrides merged on top. Lookup order never changes after load, so
// the hash surfaced to clients is reproducible.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Definition
	order   []string
}

// NewCatalog returns a catalog seeded with the builtin weapon set.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]Definition)}
	for _, def := range builtinDefinitions() {
		c.putLocked(def)
	}
	return c
}

func (c *Catalog) putLocked(def Definition) {
	if _, exists := c.entries[def.Code]; !exists {
		c.order = append(c.order, def.Code)
	}
	c.entries[def.Code] = def
}

// Lookup resolves a weapon code to its definition.
func (c *Catalog) Lookup(code string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.entries[code]
	return def, ok
}

// Codes lists every catalog code in load order.
func (c *Catalog) Codes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// MergeFile layers designer-authored definitions from a JSON file over the
// builtins. Entries replace builtins with the same code.
func (c *Catalog) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("weapons: read catalog %s: %w", path, err)
	}
	var defs FileDefinitions
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("weapons: parse catalog %s: %w", path, err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, def := range defs {
		if def.Code == "" {
			return fmt.Errorf("weapons: catalog %s: entry missing code", path)
		}
		c.putLocked(def)
	}
	return nil
}

// Hash fingerprints the catalog contents so clients can detect drift against
// the server's weapon set.
func (c *Catalog) Hash() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hasher := fnv.New64a()
	for _, code := range c.order {
		data, err := json.Marshal(c.entries[code])
		if err != nil {
			continue
		}
		hasher.Write([]byte(code))
		hasher.Write([]byte{0})
		hasher.Write(data)
		hasher.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", hasher.Sum64())
}

// builtinDefinitions is the shipped weapon set. One entry per behavior plus
// a couple of plain shells so the catalog is useful without any file.
func builtinDefinitions() []Definition {
	return []Definition{
		{
			Code: "shell", Name: "Field Shell", Behavior: BehaviorStraight,
			Power: 60, Gravity: -20, Acceleration: 120,
			Damage: 40, CraterSize: 6, AoESize: 10, Radius: 0.5,
			Style: "shell",
		},
		{
			Code: "mortar", Name: "Heavy Mortar", Behavior: BehaviorStraight,
			Power: 45, Gravity: -26, Acceleration: 90,
			Damage: 65, CraterSize: 10, AoESize: 14, Radius: 0.8, Scale: 1.4,
			Style: "mortar",
		},
		{
			Code: "bouncer", Name: "Bouncing Betty", Behavior: BehaviorBounce,
			Power: 55, Gravity: -20, Acceleration: 110,
			Damage: 25, CraterSize: 4, AoESize: 7, Radius: 0.5,
			Style: "bouncer",
			Params: Params{MaxBounces: 3, Bounciness: 0.65, UpwardBias: 0.12, Spread: 0.1},
		},
		{
			Code: "cluster", Name: "Cluster Bomb", Behavior: BehaviorSplit,
			Power: 55, Gravity: -20, Acceleration: 110,
			Damage: 30, CraterSize: 5, AoESize: 8, Radius: 0.5,
			Style: "cluster",
			Params: Params{SplitCount: 3, SplitSpread: 0.45, ChildDamageScale: 0.6, ProjectileCeiling: 13},
		},
		{
			Code: "hailstorm", Name: "Hailstorm Carrier", Behavior: BehaviorCarrier,
			Power: 28, Gravity: -6, Acceleration: 60,
			Damage: 12, CraterSize: 3, AoESize: 5, Radius: 0.6, Scale: 1.2,
			Style: "carrier",
			Params: Params{
				DropDelayMs: 600, CadenceMs: 300, Deviation: 0.25, SelfDestruct: true,
				BombletPower: 10, BombletGravity: -22, BombletDamage: 14,
			},
		},
		{
			Code: "starburst", Name: "Starburst", Behavior: BehaviorApexSplit,
			Power: 50, Gravity: -22, Acceleration: 100,
			Damage: 18, CraterSize: 4, AoESize: 6, Radius: 0.5,
			Style: "starburst",
			Params: Params{SplitCount: 5, SplitSpread: 0.35, ChildDamageScale: 0.8},
		},
		{
			Code: "pepperbox", Name: "Pepperbox", Behavior: BehaviorPepper,
			Power: 50, Gravity: -20, Acceleration: 100,
			Damage: 20, CraterSize: 3, AoESize: 5, Radius: 0.4,
			Style: "pepper",
			Params: Params{PepperCount: 6, PepperRadius: 4, DecayFactor: 0.8},
		},
		{
			Code: "seeker", Name: "Seeker Missile", Behavior: BehaviorHoming,
			Power: 40, Gravity: -18, Acceleration: 80,
			Damage: 35, CraterSize: 4, AoESize: 6, Radius: 0.6,
			Style: "seeker",
			Params: Params{TurnRate: 2.4, GuidanceDelayMs: 400, HomingRange: 120},
		},
		{
			Code: "hydra", Name: "Hydra Battery", Behavior: BehaviorMultiHoming,
			Power: 40, Gravity: -18, Acceleration: 80,
			Damage: 22, CraterSize: 3, AoESize: 5, Radius: 0.6,
			Style: "seeker",
			Params: Params{TurnRate: 2.4, GuidanceDelayMs: 300, GuidanceStaggerMs: 150, HomingRange: 150},
		},
		{
			Code: "ripple", Name: "Ripple Volley", Behavior: BehaviorVolley,
			Power: 58, Gravity: -20, Acceleration: 115,
			Damage: 16, CraterSize: 3, AoESize: 5, Radius: 0.4,
			Style: "volley",
			Params: Params{VolleyCount: 5, VolleyDelayMs: 120, Spread: 0.06},
		},
	}
}
