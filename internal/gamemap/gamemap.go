package gamemap

import (
	"errors"
	"math/rand"
	"strings"
)

// Cell codes of the flat text grid.
const (
	CellEmpty = '0'
	CellRock  = 'R'
	CellWater = 'W'
	CellTree  = 'T'
)

var obstacles = []byte{CellRock, CellWater, CellTree}

var (
	ErrEmptyMap  = errors.New("map is empty")
	ErrRaggedMap = errors.New("map rows have different widths")
)

type Point struct {
	X int
	Y int
}

// Grid is a rectangular cell grid, rows outermost. The zero row is the top
// of the map.
type Grid [][]byte

// Parse - builds a grid from its newline-separated text form.
func Parse(serialized string) (Grid, error) {
	lines := strings.Split(serialized, "\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, ErrEmptyMap
	}

	grid := make(Grid, 0, len(lines))
	for _, line := range lines {
		if len(line) != len(lines[0]) {
			return nil, ErrRaggedMap
		}
		grid = append(grid, []byte(line))
	}

	return grid, nil
}

func (that Grid) String() string {
	rows := make([]string, 0, len(that))
	for _, row := range that {
		rows = append(rows, string(row))
	}

	return strings.Join(rows, "\n")
}

func (that Grid) Width() int {
	if len(that) == 0 {
		return 0
	}
	return len(that[0])
}

func (that Grid) Height() int {
	return len(that)
}

func (that Grid) InBounds(p Point) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < that.Width() && p.Y < that.Height()
}

func (that Grid) At(p Point) byte {
	return that[p.Y][p.X]
}

func (that Grid) Set(p Point, cell byte) {
	that[p.Y][p.X] = cell
}

// Find - locates a marker on the grid.
func (that Grid) Find(marker byte) (Point, bool) {
	for y, row := range that {
		for x, cell := range row {
			if cell == marker {
				return Point{X: x, Y: y}, true
			}
		}
	}

	return Point{}, false
}

// Generate - builds a random grid. The top and bottom rows stay clear so the
// starting cells are always passable; inner rows hold at most width/2
// obstacles each.
func Generate(width, height int) Grid {
	grid := make(Grid, height)
	for y := range grid {
		grid[y] = make([]byte, width)
		for x := range grid[y] {
			grid[y][x] = CellEmpty
		}
	}

	maxPerRow := width / 2
	for y := 1; y < height-1; y++ {
		placed := 0
		for x := 0; x < width && placed < maxPerRow; x++ {
			// one in four cells gets an obstacle, like the cell pool {0,R,W,T}
			if rand.Intn(4) == 0 { //nolint: gosec // it's ok
				grid[y][x] = obstacles[rand.Intn(len(obstacles))] //nolint: gosec // it's ok
				placed++
			}
		}
	}

	return grid
}

// StartingCell - the fixed spawn cell for a slot marker: slot "1" top-left,
// slot "2" bottom-right.
func (that Grid) StartingCell(slot string) Point {
	if slot == "1" {
		return Point{X: 0, Y: 0}
	}
	return Point{X: that.Width() - 1, Y: that.Height() - 1}
}

// PlaceStartMarkers - stamps both slot markers onto their starting cells.
func (that Grid) PlaceStartMarkers() {
	that.Set(that.StartingCell("1"), '1')
	that.Set(that.StartingCell("2"), '2')
}
