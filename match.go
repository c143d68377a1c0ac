package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"shellstorm/server/internal/ballistics"
	"shellstorm/server/internal/damage"
	"shellstorm/server/internal/schedule"
	"shellstorm/server/internal/targets"
	"shellstorm/server/internal/terrain"
	"shellstorm/server/internal/weapons"
	"shellstorm/server/logging"
	combatlog "shellstorm/server/logging/combat"
)

// muzzleHeight lifts the launch point above the agent's emplacement so the
// first simulation step cannot start inside the ground.
const muzzleHeight = 1.5

// TurnCallback notifies the turn collaborator once a fire's playback has
// fully completed, grace delay included.
type TurnCallback func(matchID string, finalEventTimeMs int64)

// FireInput is the aim portion of a fire command.
type FireInput struct {
	Direction mgl64.Vec3
	// Power overrides the weapon's default launch speed when positive.
	Power float64
}

// FireResult hands the resolved outcome back to the transport layer.
type FireResult struct {
	FireID   string
	Timeline *ballistics.Timeline
	Playback *schedule.Playback
}

// MatchConfig wires a match's collaborators. Zero values get working
// defaults so tests can construct matches piecemeal.
type MatchConfig struct {
	ID        string
	Seed      string
	Terrain   *terrain.Grid
	Targets   *targets.Registry
	Catalog   *weapons.Catalog
	Scheduler *schedule.Scheduler
	Publisher logging.Publisher

	// Notify broadcasts a wire message to the match's observers.
	Notify func(msg any)
	// OnFireSequenceComplete is the turn collaborator.
	OnFireSequenceComplete TurnCallback
}

// Match owns one isolated arena: its terrain, agents, dynamic targets, and
// every playback it has scheduled. All world mutation runs behind the match
// mutex, so scheduled callbacks and fire commands share one logical thread
// of control.
type Match struct {
	mu sync.Mutex

	id        string
	seed      string
	terrain   *terrain.Grid
	targets   *targets.Registry
	catalog   *weapons.Catalog
	scheduler *schedule.Scheduler
	sim       *ballistics.Simulator
	pub       logging.Publisher
	notify    func(msg any)
	onDone    TurnCallback

	agents     map[string]*Agent
	agentOrder []string
	playbacks  []*schedule.Playback
	torn       bool
}

// NewMatch builds a match from the config, filling defaults for any
// collaborator left nil.
func NewMatch(cfg MatchConfig) *Match {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Terrain == nil {
		cfg.Terrain = terrain.NewGrid(128, 128, 1, 10)
	}
	if cfg.Targets == nil {
		cfg.Targets = targets.NewRegistry()
	}
	if cfg.Catalog == nil {
		cfg.Catalog = weapons.NewCatalog()
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = schedule.NewScheduler(nil)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}

	m := &Match{
		id:        cfg.ID,
		seed:      cfg.Seed,
		terrain:   cfg.Terrain,
		targets:   cfg.Targets,
		catalog:   cfg.Catalog,
		scheduler: cfg.Scheduler,
		pub:       logging.WithMatch(cfg.Publisher, cfg.ID),
		notify:    cfg.Notify,
		onDone:    cfg.OnFireSequenceComplete,
		agents:    make(map[string]*Agent),
	}
	m.sim = &ballistics.Simulator{
		Terrain: cfg.Terrain,
		Targets: cfg.Targets,
		FloorY:  cfg.Terrain.WaterLevel(),
	}
	return m
}

// ID returns the match identity.
func (m *Match) ID() string {
	return m.id
}

// Targets exposes the dynamic-target registry for pre-match setup.
func (m *Match) Targets() *targets.Registry {
	return m.targets
}

// Terrain exposes the height field for pre-match setup.
func (m *Match) Terrain() *terrain.Grid {
	return m.terrain
}

// Catalog exposes the weapon catalog.
func (m *Match) Catalog() *weapons.Catalog {
	return m.catalog
}

// AddAgent registers a new agent emplacement standing on the terrain at the
// given horizontal position.
func (m *Match) AddAgent(id string, x, z float64) *Agent {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent := &Agent{
		ID:       id,
		Position: mgl64.Vec3{x, m.terrain.HeightAt(x, z), z},
		Pools:    damage.Pools{Shield: defaultShield, Armor: defaultArmor, Health: defaultHealth},
		Alive:    true,
	}
	if _, exists := m.agents[id]; !exists {
		m.agentOrder = append(m.agentOrder, id)
	}
	m.agents[id] = agent
	return agent
}

// Agent returns the agent registered under id.
func (m *Match) Agent(id string) (*Agent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[id]
	return agent, ok
}

// RemoveAgent drops an agent from the match.
func (m *Match) RemoveAgent(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[id]; !ok {
		return
	}
	delete(m.agents, id)
	for i, other := range m.agentOrder {
		if other == id {
			m.agentOrder = append(m.agentOrder[:i], m.agentOrder[i+1:]...)
			break
		}
	}
}

// Fire resolves one weapon shot into a frozen timeline and schedules its
// playback. The entire recursive simulation completes before Fire returns;
// an unknown weapon code fails fast with no timeline and no mutation.
func (m *Match) Fire(agentID, weaponCode string, input FireInput) (*FireResult, error) {
	m.mu.Lock()
	if m.torn {
		m.mu.Unlock()
		return nil, fmt.Errorf("match %s: fire after teardown", m.id)
	}
	agent, ok := m.agents[agentID]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("match %s: unknown agent %q", m.id, agentID)
	}
	def, ok := m.catalog.Lookup(weaponCode)
	if !ok {
		m.mu.Unlock()
		combatlog.FireRejected(context.Background(), m.pub,
			logging.EntityRef{ID: agentID, Kind: logging.EntityKindAgent}, weaponCode, "unknown weapon code")
		return nil, fmt.Errorf("%w: %q", weapons.ErrUnknownWeapon, weaponCode)
	}

	fireID := uuid.NewString()
	ctx := ballistics.NewFireContext(m.sim, m.seed, fireID, def.Params.ProjectileCeiling)
	tl := &ballistics.Timeline{}
	shot := weapons.Shot{
		Origin:    agent.Position.Add(mgl64.Vec3{0, muzzleHeight, 0}),
		Direction: input.Direction,
		Power:     input.Power,
	}
	err := weapons.Fire(ctx, weapons.Deps{Targets: m.targets}, def, shot, tl)
	ctx.Close()
	if err != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("match %s: fire %s: %w", m.id, weaponCode, err)
	}
	tl.Freeze()

	combatlog.FireResolved(context.Background(), m.pub, fireID,
		logging.EntityRef{ID: agentID, Kind: logging.EntityKindAgent},
		combatlog.FireResolvedPayload{
			WeaponCode:  weaponCode,
			Events:      tl.Len(),
			Projectiles: ctx.Spent(),
			MaxTimeMs:   tl.MaxTime(),
		})

	m.send(timelineMessage{
		Ver:        protocolVersion,
		Type:       "timeline",
		MatchID:    m.id,
		FireID:     fireID,
		ShooterID:  agentID,
		WeaponCode: weaponCode,
		Events:     timelinePayload(tl),
		MaxTimeMs:  tl.MaxTime(),
	})

	playback := m.scheduler.Play(tl,
		func(ev ballistics.Event) { m.applyEvent(fireID, ev) },
		func(final int64) { m.completeFire(fireID, final) },
	)
	m.playbacks = append(m.playbacks, playback)
	m.mu.Unlock()

	return &FireResult{FireID: fireID, Timeline: tl, Playback: playback}, nil
}

// applyEvent runs one scheduled event's authoritative side effects. Spawn,
// Move, and Expired events were presentation-only and already shipped inside
// the timeline broadcast; only impacts and destroyed targets mutate world
// state here.
func (m *Match) applyEvent(fireID string, ev ballistics.Event) {
	switch ev.Kind {
	case ballistics.EventImpact:
		m.applyImpact(fireID, ev)
	case ballistics.EventTargetDestroyed:
		combatlog.TargetDestroyed(context.Background(), m.pub, fireID,
			logging.EntityRef{ID: ev.TargetID, Kind: logging.EntityKindTarget})
		m.sendEffect(fireID, ev)
	}
}

func (m *Match) applyImpact(fireID string, ev ballistics.Event) {
	detail := ev.Impact
	if detail == nil {
		return
	}

	m.mu.Lock()
	if m.torn {
		m.mu.Unlock()
		return
	}

	var changed int
	var total float64
	var hit []logging.EntityRef
	if detail.Terrain() {
		cells := m.terrain.Deform(ev.Position.X(), ev.Position.Z(), detail.CraterSize, terrain.ModeCrater)
		changed = len(cells)

		for _, id := range m.agentOrder {
			agent := m.agents[id]
			if agent == nil || !agent.Alive {
				continue
			}
			dx := agent.Position.X() - ev.Position.X()
			dz := agent.Position.Z() - ev.Position.Z()
			dist := mgl64.Vec2{dx, dz}.Len()
			amount := damage.Falloff(detail.BaseDamage, dist, detail.AoESize)
			if amount <= 0 {
				continue
			}
			breakdown := damage.Resolve(&agent.Pools, amount)
			total += breakdown.ShieldDamage + breakdown.ArmorDamage + breakdown.HealthDamage
			if breakdown.Destroyed {
				agent.Alive = false
			}
			hit = append(hit, logging.EntityRef{ID: id, Kind: logging.EntityKindAgent})
		}
	}
	m.mu.Unlock()

	combatlog.ImpactApplied(context.Background(), m.pub, fireID,
		logging.EntityRef{ID: ev.ProjectileID, Kind: logging.EntityKindProjectile}, hit,
		combatlog.ImpactAppliedPayload{
			WeaponCode:   detail.WeaponCode,
			TimeMs:       ev.Time,
			Terrain:      detail.Terrain(),
			ChangedCells: changed,
			TotalDamage:  total,
		})
	m.sendEffect(fireID, ev)
}

func (m *Match) completeFire(fireID string, finalEventTimeMs int64) {
	m.send(turnMessage{
		Ver:              protocolVersion,
		Type:             "turn-complete",
		MatchID:          m.id,
		FireID:           fireID,
		FinalEventTimeMs: finalEventTimeMs,
	})
	if m.onDone != nil {
		m.onDone(m.id, finalEventTimeMs)
	}
}

func (m *Match) send(msg any) {
	if m.notify != nil {
		m.notify(msg)
	}
}

func (m *Match) sendEffect(fireID string, ev ballistics.Event) {
	m.send(effectMessage{
		Ver:     protocolVersion,
		Type:    "effect",
		MatchID: m.id,
		FireID:  fireID,
		Event:   eventPayload(ev),
	})
}

// Teardown cancels every outstanding playback. Idempotent; scheduled
// callbacks observing the torn flag drop silently instead of mutating a
// dismantled world.
func (m *Match) Teardown() {
	m.mu.Lock()
	if m.torn {
		m.mu.Unlock()
		return
	}
	m.torn = true
	playbacks := m.playbacks
	m.playbacks = nil
	m.mu.Unlock()

	for _, playback := range playbacks {
		outstanding := playback.Outstanding()
		playback.CancelAll()
		combatlog.PlaybackCancelled(context.Background(), m.pub, "", outstanding)
	}
}

// snapshotLocked copies the agent roster for wire responses.
func (m *Match) snapshotLocked() []agentPayload {
	agents := make([]agentPayload, 0, len(m.agentOrder))
	for _, id := range m.agentOrder {
		agent := m.agents[id]
		if agent == nil {
			continue
		}
		agents = append(agents, agentPayload{
			ID:       agent.ID,
			Position: vecPayload(agent.Position),
			Shield:   agent.Pools.Shield,
			Armor:    agent.Pools.Armor,
			Health:   agent.Pools.Health,
			Alive:    agent.Alive,
		})
	}
	return agents
}

// Snapshot returns the current agent roster.
func (m *Match) Snapshot() []agentPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}
