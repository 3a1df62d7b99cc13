package world

// aoiGrid indexes entities by cell so range-limited broadcasts only visit
// nearby cells. The cell size equals the visible range, so a 3x3
// neighbourhood of cells fully covers it.
// Not safe for concurrent use; guarded by the owning region's lock.
type aoiGrid struct {
	cellSize int32
	cells    map[cellKey]map[int64]struct{}
}

type cellKey struct {
	cx int32
	cy int32
}

func newAOIGrid(cellSize int32) *aoiGrid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &aoiGrid{
		cellSize: cellSize,
		cells:    make(map[cellKey]map[int64]struct{}),
	}
}

func (g *aoiGrid) toCell(v int32) int32 {
	if v < 0 {
		return (v - g.cellSize + 1) / g.cellSize
	}
	return v / g.cellSize
}

func (g *aoiGrid) key(p Position) cellKey {
	return cellKey{cx: g.toCell(p.X), cy: g.toCell(p.Y)}
}

func (g *aoiGrid) add(id int64, p Position) {
	k := g.key(p)
	cell := g.cells[k]
	if cell == nil {
		cell = make(map[int64]struct{})
		g.cells[k] = cell
	}
	cell[id] = struct{}{}
}

func (g *aoiGrid) remove(id int64, p Position) {
	k := g.key(p)
	if cell := g.cells[k]; cell != nil {
		delete(cell, id)
		if len(cell) == 0 {
			delete(g.cells, k)
		}
	}
}

func (g *aoiGrid) move(id int64, from, to Position) {
	if g.key(from) == g.key(to) {
		return
	}
	g.remove(id, from)
	g.add(id, to)
}

// nearby returns the ids in the 3x3 cells around p. Callers filter by exact
// distance.
func (g *aoiGrid) nearby(p Position) []int64 {
	c := g.key(p)
	var result []int64
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for id := range g.cells[cellKey{cx: c.cx + dx, cy: c.cy + dy}] {
				result = append(result, id)
			}
		}
	}
	return result
}
