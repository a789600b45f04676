// Package grid answers spatial questions about a map: bounds, walkability,
// occupancy, distance and movement cost. Geometry comes from the rpg-toolkit
// square grid; terrain walkability is layered on top.
package grid

import (
	"math"

	"github.com/KirkDiggler/rpg-toolkit/tools/spatial"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
)

// occupant is a token standing in the room
type occupant struct {
	id   string
	kind string
}

func (o *occupant) GetID() string {
	return o.id
}

func (o *occupant) GetType() string {
	return o.kind
}

// Grid is a walkability mask over a width x height square grid
type Grid struct {
	width     int
	height    int
	squares   *spatial.SquareGrid
	room      *spatial.BasicRoom
	blocked   []bool
	occupants map[entities.Point]string
}

// New builds a grid from tiles. Cells without a tile are walkable.
func New(width, height int, tiles []*entities.MapTile) *Grid {
	squares := spatial.NewSquareGrid(spatial.SquareGridConfig{
		Width:  float64(width),
		Height: float64(height),
	})
	g := &Grid{
		width:   width,
		height:  height,
		squares: squares,
		room: spatial.NewBasicRoom(spatial.BasicRoomConfig{
			ID:   "battlemap",
			Type: "map",
			Grid: squares,
		}),
		blocked:   make([]bool, width*height),
		occupants: make(map[entities.Point]string),
	}
	for _, t := range tiles {
		if t != nil && g.InBounds(t.X, t.Y) {
			g.blocked[t.Y*width+t.X] = t.IsBlocked
		}
	}
	return g
}

func position(p entities.Point) spatial.Position {
	return spatial.Position{X: float64(p.X), Y: float64(p.Y)}
}

func point(p spatial.Position) entities.Point {
	return entities.Point{X: int(p.X), Y: int(p.Y)}
}

// Width of the grid
func (g *Grid) Width() int { return g.width }

// Height of the grid
func (g *Grid) Height() int { return g.height }

// InBounds reports whether (x, y) is on the grid
func (g *Grid) InBounds(x, y int) bool {
	return g.squares.IsValidPosition(position(entities.Point{X: x, Y: y}))
}

// Walkable reports whether (x, y) is on the grid and not blocked
func (g *Grid) Walkable(x, y int) bool {
	return g.InBounds(x, y) && !g.blocked[y*g.width+x]
}

// Distance in squares; a diagonal step costs the same as an orthogonal one
func (g *Grid) Distance(a, b entities.Point) int {
	return int(math.Round(g.squares.Distance(position(a), position(b))))
}

// InRange reports whether b is within reach squares of a
func (g *Grid) InRange(a, b entities.Point, reach int) bool {
	return g.Distance(a, b) <= reach
}

// Occupy places a token on the grid
func (g *Grid) Occupy(id, kind string, p entities.Point) error {
	if err := g.room.PlaceEntity(&occupant{id: id, kind: kind}, position(p)); err != nil {
		return errors.InvalidArgumentf("cannot place %s at (%d, %d): %v", id, p.X, p.Y, err)
	}
	g.occupants[p] = id
	return nil
}

// Occupant returns the id of the token standing on p
func (g *Grid) Occupant(p entities.Point) (string, bool) {
	id, ok := g.occupants[p]
	return id, ok
}

// Free reports whether p is walkable and unoccupied
func (g *Grid) Free(p entities.Point) bool {
	_, taken := g.occupants[p]
	return g.Walkable(p.X, p.Y) && !taken
}

// PathLength returns the number of steps on the shortest walkable path from
// one point to another, searching no further than limit steps. ok is false
// when the target is unreachable within limit.
func (g *Grid) PathLength(from, to entities.Point, limit int) (steps int, ok bool) {
	if !g.Walkable(to.X, to.Y) || !g.InBounds(from.X, from.Y) {
		return 0, false
	}
	if from == to {
		return 0, true
	}
	if g.Distance(from, to) > limit {
		return 0, false
	}

	dist := map[entities.Point]int{from: 0}
	queue := []entities.Point{from}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if dist[cur] >= limit {
			continue
		}
		for _, n := range g.squares.GetNeighbors(position(cur)) {
			next := point(n)
			if !g.Walkable(next.X, next.Y) {
				continue
			}
			if _, seen := dist[next]; seen {
				continue
			}
			dist[next] = dist[cur] + 1
			if next == to {
				return dist[next], true
			}
			queue = append(queue, next)
		}
	}

	return 0, false
}
