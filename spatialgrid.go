package boule

import (
	"math"
	"sort"

	"github.com/akmonengine/boule/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// ============================================================================
// Types
// ============================================================================

// CellKey - coordinates of a cell in 3D space
type CellKey struct {
	X, Y, Z int
}

// Cell - body indices stored in a cell
type Cell struct {
	bodyIndices []int
}

// SpatialGrid - uniform hashed grid, used as a Broadphase.
// Bodies spanning more cells than the grid holds are kept aside and tested
// against every other body.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int

	bounds   []actor.AABB
	oversize []int
	seen     []bool
}

// ============================================================================
// Constructor
// ============================================================================

// NewSpatialGrid - creates a grid of numCells buckets (rounded up to a power of two)
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

// nextPowerOfTwo - rounds up to the next power of 2
func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert - inserts a body into every cell its bounds cover
func (sg *SpatialGrid) Insert(bodyIndex int, bounds actor.AABB) {
	minCell := sg.worldToCell(bounds.Min)
	maxCell := sg.worldToCell(bounds.Max)

	if !sg.fits(minCell, maxCell) {
		sg.oversize = append(sg.oversize, bodyIndex)
		return
	}

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				cellIdx := sg.hashCell(CellKey{x, y, z})

				sg.cells[cellIdx].bodyIndices = append(
					sg.cells[cellIdx].bodyIndices,
					bodyIndex,
				)
			}
		}
	}
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
	sg.oversize = sg.oversize[:0]
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs rebuilds the grid from the swept bounds of bodies, then reports
// every pair whose swept bounds overlap
func (sg *SpatialGrid) FindPairs(bodies []actor.RigidBody, dt float64) []CollisionPair {
	sg.Clear()
	sg.bounds = sg.bounds[:0]
	for i := range bodies {
		bounds := SweptBounds(&bodies[i], dt)
		sg.bounds = append(sg.bounds, bounds)
		sg.Insert(i, bounds)
	}
	sg.SortCells()

	if cap(sg.seen) < len(bodies) {
		sg.seen = make([]bool, len(bodies))
	}
	seen := sg.seen[:len(bodies)]

	pairs := make([]CollisionPair, 0, len(bodies)/2)

	// ========== OVERSIZED BODIES ==========
	isOversize := make(map[int]bool, len(sg.oversize))
	for _, bodyIdx := range sg.oversize {
		isOversize[bodyIdx] = true
	}
	for _, bodyIdx := range sg.oversize {
		for otherIdx := range bodies {
			if otherIdx == bodyIdx || (isOversize[otherIdx] && otherIdx < bodyIdx) {
				continue
			}
			if sg.bounds[bodyIdx].Overlaps(sg.bounds[otherIdx]) {
				pairs = append(pairs, orderedPair(bodyIdx, otherIdx))
			}
		}
	}

	// ========== GRID ==========
	for bodyIdx := range bodies {
		if isOversize[bodyIdx] {
			continue
		}
		clear(seen)

		minCell := sg.worldToCell(sg.bounds[bodyIdx].Min)
		maxCell := sg.worldToCell(sg.bounds[bodyIdx].Max)

		for x := minCell.X; x <= maxCell.X; x++ {
			for y := minCell.Y; y <= maxCell.Y; y++ {
				for z := minCell.Z; z <= maxCell.Z; z++ {
					cellIdx := sg.hashCell(CellKey{x, y, z})

					for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
						// Deterministic order, and hash collisions visit a body twice
						if otherIdx <= bodyIdx || seen[otherIdx] {
							continue
						}
						seen[otherIdx] = true

						if sg.bounds[bodyIdx].Overlaps(sg.bounds[otherIdx]) {
							pairs = append(pairs, CollisionPair{A: bodyIdx, B: otherIdx})
						}
					}
				}
			}
		}
	}

	return pairs
}

// fits reports whether a cell range stays within what the grid can index
// without visiting the same bucket over and over
func (sg *SpatialGrid) fits(minCell, maxCell CellKey) bool {
	span := float64(maxCell.X-minCell.X+1) * float64(maxCell.Y-minCell.Y+1) * float64(maxCell.Z-minCell.Z+1)

	return span <= float64(len(sg.cells))
}

// worldToCell - converts a world position to cell coordinates
func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

// hashCell - hashes a cell to an index in the array
func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}

func orderedPair(a, b int) CollisionPair {
	if b < a {
		a, b = b, a
	}

	return CollisionPair{A: a, B: b}
}
