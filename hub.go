package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"

	"shellstorm/server/internal/schedule"
	"shellstorm/server/internal/targets"
	"shellstorm/server/internal/terrain"
	"shellstorm/server/internal/weapons"
	"shellstorm/server/logging"
)

// Hub owns the default match, all connected subscribers, and the fan-out of
// wire messages. One hub serves one process.
type Hub struct {
	mu          sync.Mutex
	cfg         HubConfig
	pub         logging.Publisher
	match       *Match
	subscribers map[string]*Subscriber
	nextID      atomic.Uint64
	firesTotal  atomic.Uint64
}

// Subscriber serializes writes to one agent's WebSocket connection.
type Subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage writes one frame, holding the subscriber's write lock so
// broadcasts and direct replies never interleave.
func (s *Subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

// NewHub builds a hub with a freshly generated arena. A nil publisher
// disables logging.
func NewHub(cfg HubConfig, pub logging.Publisher) *Hub {
	if cfg.TerrainWidth <= 0 || cfg.TerrainDepth <= 0 {
		def := DefaultHubConfig()
		cfg.TerrainWidth = def.TerrainWidth
		cfg.TerrainDepth = def.TerrainDepth
		cfg.CellSize = def.CellSize
		cfg.BaseHeight = def.BaseHeight
	}
	if cfg.Seed == "" {
		cfg.Seed = fmt.Sprintf("arena-%d", time.Now().UnixNano())
	}
	if pub == nil {
		pub = logging.NopPublisher()
	}

	hub := &Hub{
		cfg:         cfg,
		pub:         pub,
		subscribers: make(map[string]*Subscriber),
	}

	grid := terrain.NewGrid(cfg.TerrainWidth, cfg.TerrainDepth, cfg.CellSize, cfg.BaseHeight)
	grid.SetWaterLevel(cfg.WaterLevel)

	registry := targets.NewRegistry()
	seedPracticeTargets(registry, cfg)

	scheduler := schedule.NewScheduler(nil)
	if cfg.GraceMillis > 0 {
		scheduler.GraceMillis = cfg.GraceMillis
	}

	hub.match = NewMatch(MatchConfig{
		ID:        "arena-1",
		Seed:      cfg.Seed,
		Terrain:   grid,
		Targets:   registry,
		Catalog:   weapons.NewCatalog(),
		Scheduler: scheduler,
		Publisher: pub,
		Notify:    hub.broadcast,
	})
	return hub
}

// seedPracticeTargets scatters slow drones across the arena midline.
func seedPracticeTargets(registry *targets.Registry, cfg HubConfig) {
	width := float64(cfg.TerrainWidth) * cfg.CellSize
	depth := float64(cfg.TerrainDepth) * cfg.CellSize
	for i := 0; i < cfg.PracticeTargets; i++ {
		frac := float64(i+1) / float64(cfg.PracticeTargets+1)
		registry.Add(targets.Target{
			ID:       fmt.Sprintf("drone-%d", i+1),
			Position: mgl64.Vec3{width * frac, cfg.BaseHeight + 18, depth * 0.5},
			Velocity: mgl64.Vec3{0, 0, 3 - float64(i)},
			Radius:   1.5,
			Health:   40,
		})
	}
}

// Match returns the default arena.
func (h *Hub) Match() *Match {
	return h.match
}

// Join registers a new agent and returns the world snapshot it needs to
// render the arena.
func (h *Hub) Join() joinResponse {
	id := h.nextID.Add(1)
	agentID := fmt.Sprintf("agent-%d", id)

	width := float64(h.cfg.TerrainWidth) * h.cfg.CellSize
	depth := float64(h.cfg.TerrainDepth) * h.cfg.CellSize
	// Alternate spawn corners so two joiners face each other.
	x := width * 0.2
	if id%2 == 0 {
		x = width * 0.8
	}
	h.match.AddAgent(agentID, x, depth*0.5)

	snapshot := h.match.Snapshot()
	live := h.match.Targets().Snapshot()
	wireTargets := make([]targetPayload, 0, len(live))
	for _, t := range live {
		wireTargets = append(wireTargets, targetPayload{
			ID:       t.ID,
			Position: vecPayload(t.Position),
			Radius:   t.Radius,
			Health:   t.Health,
		})
	}

	return joinResponse{
		Ver:         protocolVersion,
		ID:          agentID,
		MatchID:     h.match.ID(),
		Agents:      snapshot,
		Targets:     wireTargets,
		WeaponCodes: h.match.Catalog().Codes(),
		CatalogHash: h.match.Catalog().Hash(),
		Seed:        h.cfg.Seed,
	}
}

// Subscribe associates a WebSocket connection with an existing agent. A
// second subscription for the same agent replaces the first.
func (h *Hub) Subscribe(agentID string, conn *websocket.Conn) (*Subscriber, bool) {
	if _, ok := h.match.Agent(agentID); !ok {
		return nil, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing, ok := h.subscribers[agentID]; ok {
		existing.conn.Close()
	}
	sub := &Subscriber{conn: conn}
	h.subscribers[agentID] = sub
	return sub, true
}

// Disconnect removes an agent and closes its subscriber connection.
func (h *Hub) Disconnect(agentID string) {
	h.mu.Lock()
	sub, ok := h.subscribers[agentID]
	if ok {
		delete(h.subscribers, agentID)
	}
	h.mu.Unlock()

	if ok {
		sub.conn.Close()
	}
	h.match.RemoveAgent(agentID)
}

// Fire resolves one shot on behalf of agentID.
func (h *Hub) Fire(agentID, weaponCode string, input FireInput) (*FireResult, error) {
	result, err := h.match.Fire(agentID, weaponCode, input)
	if err != nil {
		return nil, err
	}
	h.firesTotal.Add(1)
	return result, nil
}

// broadcast marshals a wire message once and writes it to every subscriber.
// Write failures drop the subscriber's connection; the read loop notices and
// disconnects it.
func (h *Hub) broadcast(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("broadcast marshal failed: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*Subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			sub.conn.Close()
		}
	}
}

// DiagnosticsSnapshot summarizes hub health for the diagnostics endpoint.
type DiagnosticsSnapshot struct {
	Subscribers int    `json:"subscribers"`
	Agents      int    `json:"agents"`
	Targets     int    `json:"targets"`
	FiresTotal  uint64 `json:"firesTotal"`
}

// Diagnostics snapshots the hub counters.
func (h *Hub) Diagnostics() DiagnosticsSnapshot {
	h.mu.Lock()
	subscribers := len(h.subscribers)
	h.mu.Unlock()
	return DiagnosticsSnapshot{
		Subscribers: subscribers,
		Agents:      len(h.match.Snapshot()),
		Targets:     h.match.Targets().Len(),
		FiresTotal:  h.firesTotal.Load(),
	}
}

// Teardown cancels all scheduled playbacks and closes every subscriber.
func (h *Hub) Teardown() {
	h.match.Teardown()

	h.mu.Lock()
	subs := h.subscribers
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.conn.Close()
	}
}
