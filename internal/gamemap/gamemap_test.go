package gamemap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Round-trips the text form", func(t *testing.T) {
		// Given: a serialized 3x4 map
		serialized := "0000\n0RW0\n0000"

		// When: parsing and re-serializing it
		grid, err := Parse(serialized)
		require.NoError(t, err)

		// Then: dimensions and content survive
		assert.Equal(t, 4, grid.Width())
		assert.Equal(t, 3, grid.Height())
		assert.Equal(t, serialized, grid.String())
	})

	t.Run("Rejects ragged rows", func(t *testing.T) {
		_, err := Parse("000\n00")
		require.ErrorIs(t, err, ErrRaggedMap)
	})

	t.Run("Rejects an empty map", func(t *testing.T) {
		_, err := Parse("")
		require.ErrorIs(t, err, ErrEmptyMap)
	})
}

func TestGenerate(t *testing.T) {
	for i := 0; i < 20; i++ {
		// When: generating the default 5x10 map
		grid := Generate(10, 5)

		// Then: dimensions match the configuration
		require.Equal(t, 10, grid.Width())
		require.Equal(t, 5, grid.Height())

		// And: the top and bottom border rows carry no obstacles
		assert.Equal(t, strings.Repeat("0", 10), string(grid[0]))
		assert.Equal(t, strings.Repeat("0", 10), string(grid[4]))

		// And: every cell is a known code
		for _, row := range grid {
			for _, cell := range row {
				assert.Contains(t, []byte{CellEmpty, CellRock, CellWater, CellTree}, cell)
			}
		}
	}
}

func TestGrid_PlaceStartMarkers(t *testing.T) {
	// Given: a fresh map
	grid := Generate(10, 5)

	// When: stamping the start markers
	grid.PlaceStartMarkers()

	// Then: slot 1 spawns top-left and slot 2 bottom-right
	assert.Equal(t, byte('1'), grid.At(Point{X: 0, Y: 0}))
	assert.Equal(t, byte('2'), grid.At(Point{X: 9, Y: 4}))

	// And: each marker appears exactly once
	serialized := grid.String()
	assert.Equal(t, 1, strings.Count(serialized, "1"))
	assert.Equal(t, 1, strings.Count(serialized, "2"))
}

func TestGrid_Find(t *testing.T) {
	// Given: a map with one marker
	grid, err := Parse("000\n010\n000")
	require.NoError(t, err)

	// When: searching for it
	at, ok := grid.Find('1')

	// Then: the cell is located
	require.True(t, ok)
	assert.Equal(t, Point{X: 1, Y: 1}, at)

	// And: a missing marker reports absence
	_, ok = grid.Find('2')
	assert.False(t, ok)
}

func TestGrid_InBounds(t *testing.T) {
	grid, err := Parse("000\n000")
	require.NoError(t, err)

	assert.True(t, grid.InBounds(Point{X: 2, Y: 1}))
	assert.False(t, grid.InBounds(Point{X: 3, Y: 0}))
	assert.False(t, grid.InBounds(Point{X: 0, Y: 2}))
	assert.False(t, grid.InBounds(Point{X: -1, Y: 0}))
}
