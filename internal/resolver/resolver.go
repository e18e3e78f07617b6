package resolver

import (
	"github.com/quickforge/tactics-backend/internal/apperror"
	"github.com/quickforge/tactics-backend/internal/entity"
	"github.com/quickforge/tactics-backend/internal/gamemap"
)

// AttackOutcome reports the defender hit by a resolved attack.
type AttackOutcome struct {
	EnemyNum    string
	RemainingHP int
	Eliminated  bool
}

// Move - relocates the acting slot's marker to dest. The path is a 4-way
// shortest walk over empty cells; obstacles and the other marker block it.
// Returns ErrIllegalAction and leaves the grid untouched when dest is out of
// bounds, occupied, or costs more than moveSpeed steps.
func Move(grid gamemap.Grid, slot string, dest gamemap.Point, moveSpeed int) error {
	if !grid.InBounds(dest) || grid.At(dest) != gamemap.CellEmpty {
		return apperror.ErrIllegalAction
	}

	start, ok := grid.Find(slot[0])
	if !ok {
		return apperror.ErrIllegalAction
	}

	cost := pathCost(grid, start, dest)
	if cost < 0 || cost > moveSpeed {
		return apperror.ErrIllegalAction
	}

	grid.Set(start, gamemap.CellEmpty)
	grid.Set(dest, slot[0])

	return nil
}

// Attack - resolves an attack on target. The target must hold an enemy
// marker within Chebyshev range of the attacker. Damage is applied to the
// matching roster member; at 0 HP the marker is cleared from the grid.
func Attack(grid gamemap.Grid, slot string, enemies []*entity.Membership, target gamemap.Point, atk, rng int) (*AttackOutcome, error) {
	if !grid.InBounds(target) {
		return nil, apperror.ErrIllegalAction
	}

	attacker, ok := grid.Find(slot[0])
	if !ok {
		return nil, apperror.ErrIllegalAction
	}

	if chebyshev(attacker, target) > rng {
		return nil, apperror.ErrIllegalAction
	}

	occupant := string(grid.At(target))
	for _, enemy := range enemies {
		if enemy.PlayerNum != occupant {
			continue
		}

		enemy.Stats.HP -= atk
		if enemy.Stats.HP <= 0 {
			enemy.Stats.HP = 0
			grid.Set(target, gamemap.CellEmpty)
		}

		return &AttackOutcome{
			EnemyNum:    enemy.PlayerNum,
			RemainingHP: enemy.Stats.HP,
			Eliminated:  enemy.Stats.HP == 0,
		}, nil
	}

	return nil, apperror.ErrIllegalAction
}

func chebyshev(a, b gamemap.Point) int {
	dx := abs(a.X - b.X)
	dy := abs(a.Y - b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// pathCost - breadth-first step count from start to dest over empty cells,
// -1 when unreachable.
func pathCost(grid gamemap.Grid, start, dest gamemap.Point) int {
	type node struct {
		at   gamemap.Point
		cost int
	}

	visited := make(map[gamemap.Point]bool, grid.Width()*grid.Height())
	visited[start] = true

	queue := []node{{at: start}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.at == dest {
			return current.cost
		}

		for _, step := range []gamemap.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
			next := gamemap.Point{X: current.at.X + step.X, Y: current.at.Y + step.Y}
			if !grid.InBounds(next) || visited[next] || grid.At(next) != gamemap.CellEmpty {
				continue
			}

			visited[next] = true
			queue = append(queue, node{at: next, cost: current.cost + 1})
		}
	}

	return -1
}
