package server

// HubConfig controls world generation and playback pacing for the hub's
// default arena.
type HubConfig struct {
	// Seed salts every fire's deterministic RNG. Empty picks a random seed
	// at hub construction so replays within one process stay reproducible.
	Seed string

	TerrainWidth  int
	TerrainDepth  int
	CellSize      float64
	BaseHeight    float64
	WaterLevel    float64

	// GraceMillis pads playback completion past the last scheduled event.
	GraceMillis int64

	// PracticeTargets seeds the arena with this many drifting drones so a
	// lone agent has something to shoot at.
	PracticeTargets int
}

// DefaultHubConfig mirrors the values the playtest client assumes.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		TerrainWidth:    160,
		TerrainDepth:    160,
		CellSize:        1,
		BaseHeight:      12,
		WaterLevel:      0,
		GraceMillis:     750,
		PracticeTargets: 3,
	}
}
