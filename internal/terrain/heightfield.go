// Package terrain provides the height-field collaborator: ground-height
// queries for the simulator and crater/flatten deformation applied when
// impacts play back.
package terrain

import (
	"math"
	"sync"
)

// DeformMode selects how Deform reshapes the field.
type DeformMode string

const (
	ModeFlatten DeformMode = "flatten"
	ModeCrater  DeformMode = "crater"
)

// Cell identifies one height-field sample that a deformation changed.
type Cell struct {
	X int `json:"x"`
	Z int `json:"z"`
}

// Grid is an in-memory height field over a regular (x, z) lattice. Heights
// between samples are bilinearly interpolated; queries outside the grid clamp
// to the nearest edge sample.
type Grid struct {
	mu       sync.RWMutex
	width    int
	depth    int
	cellSize float64
	heights  []float64
	water    float64
}

// NewGrid builds a flat grid of width x depth samples at the given base
// height. cellSize is the world-unit spacing between samples.
func NewGrid(width, depth int, cellSize, base float64) *Grid {
	if width < 2 {
		width = 2
	}
	if depth < 2 {
		depth = 2
	}
	if cellSize <= 0 {
		cellSize = 1
	}
	heights := make([]float64, width*depth)
	for i := range heights {
		heights[i] = base
	}
	return &Grid{width: width, depth: depth, cellSize: cellSize, heights: heights}
}

// SetWaterLevel configures the floor returned for terrain carved below it.
func (g *Grid) SetWaterLevel(level float64) {
	g.mu.Lock()
	g.water = level
	g.mu.Unlock()
}

// WaterLevel reports the configured water plane.
func (g *Grid) WaterLevel() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.water
}

// SetHeight overwrites a single sample. Out-of-range cells are ignored.
func (g *Grid) SetHeight(cx, cz int, height float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cx < 0 || cz < 0 || cx >= g.width || cz >= g.depth {
		return
	}
	g.heights[cz*g.width+cx] = height
}

// HeightAt returns the interpolated ground height at world (x, z).
func (g *Grid) HeightAt(x, z float64) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	fx := clamp(x/g.cellSize, 0, float64(g.width-1))
	fz := clamp(z/g.cellSize, 0, float64(g.depth-1))

	x0 := int(fx)
	z0 := int(fz)
	x1 := min(x0+1, g.width-1)
	z1 := min(z0+1, g.depth-1)
	tx := fx - float64(x0)
	tz := fz - float64(z0)

	h00 := g.heights[z0*g.width+x0]
	h10 := g.heights[z0*g.width+x1]
	h01 := g.heights[z1*g.width+x0]
	h11 := g.heights[z1*g.width+x1]

	top := h00 + (h10-h00)*tx
	bottom := h01 + (h11-h01)*tx
	return top + (bottom-top)*tz
}

// Deform reshapes the field around world (x, z) and returns every changed
// cell. Crater mode digs a rounded bowl whose depth fades toward the rim;
// flatten levels the area to the lowest sample inside the radius. Carved
// heights never drop below the water level.
func (g *Grid) Deform(x, z, radius float64, mode DeformMode) []Cell {
	if radius <= 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	minX := max(int((x-radius)/g.cellSize), 0)
	maxX := min(int(math.Ceil((x+radius)/g.cellSize)), g.width-1)
	minZ := max(int((z-radius)/g.cellSize), 0)
	maxZ := min(int(math.Ceil((z+radius)/g.cellSize)), g.depth-1)

	floor := math.Inf(1)
	if mode == ModeFlatten {
		for cz := minZ; cz <= maxZ; cz++ {
			for cx := minX; cx <= maxX; cx++ {
				if g.inRadius(cx, cz, x, z, radius) {
					floor = math.Min(floor, g.heights[cz*g.width+cx])
				}
			}
		}
		if math.IsInf(floor, 1) {
			return nil
		}
	}

	var changed []Cell
	for cz := minZ; cz <= maxZ; cz++ {
		for cx := minX; cx <= maxX; cx++ {
			dist, inside := g.distance(cx, cz, x, z, radius)
			if !inside {
				continue
			}
			idx := cz*g.width + cx
			current := g.heights[idx]
			var next float64
			switch mode {
			case ModeFlatten:
				next = floor
			default:
				depth := radius * 0.5 * (1 - dist/radius)
				next = current - depth
			}
			if next < g.water {
				next = g.water
			}
			if math.Abs(next-current) < 1e-9 {
				continue
			}
			g.heights[idx] = next
			changed = append(changed, Cell{X: cx, Z: cz})
		}
	}
	return changed
}

func (g *Grid) inRadius(cx, cz int, x, z, radius float64) bool {
	_, inside := g.distance(cx, cz, x, z, radius)
	return inside
}

func (g *Grid) distance(cx, cz int, x, z, radius float64) (float64, bool) {
	dx := float64(cx)*g.cellSize - x
	dz := float64(cz)*g.cellSize - z
	dist := math.Hypot(dx, dz)
	return dist, dist <= radius
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
