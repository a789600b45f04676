// Package mapgen generates tactical maps deterministically from a seed.
//
// All randomness comes from math/rand sources seeded with an FNV-64a hash of
// (seed, preset, subsystem), and the noise is integer-only, so the same input
// yields the same tiles on every run, process and architecture. Tiles are
// emitted row-major: y outer, x inner.
package mapgen

import (
	"hash/fnv"
	"math/rand"
	"sort"
	"strconv"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
)

// MaxDimension bounds width and height
const MaxDimension = 128

// torchChance is per mille for wall tiles bordering a dungeon floor
const torchChance = 60

// Input describes a generation request
type Input struct {
	Preset Preset
	Width  int
	Height int
	// Seed is optional; an empty seed is derived from the clock and returned
	Seed string
}

// Output is a generated map
type Output struct {
	Seed           string
	DefaultTerrain entities.TerrainType
	Tiles          []*entities.MapTile
	Metadata       *entities.MapMetadata
}

// Config holds generator dependencies
type Config struct {
	Clock clock.Clock
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.Clock == nil {
		return errors.InvalidArgument("clock is required")
	}
	return nil
}

// Generator produces maps
type Generator struct {
	clock clock.Clock
}

// New creates a generator
func New(cfg *Config) (*Generator, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Generator{clock: cfg.Clock}, nil
}

// ValidateInput checks dimensions and preset without generating anything
func ValidateInput(input *Input) error {
	vb := errors.NewValidationBuilder()
	if input.Width <= 0 {
		vb.Field("width", "must be positive")
	} else if input.Width > MaxDimension {
		vb.Fieldf("width", "must be at most %d", MaxDimension)
	}
	if input.Height <= 0 {
		vb.Field("height", "must be positive")
	} else if input.Height > MaxDimension {
		vb.Fieldf("height", "must be at most %d", MaxDimension)
	}
	if _, ok := presetTable[input.Preset]; !ok {
		allowed := make([]string, 0, len(presetTable))
		for _, p := range Presets() {
			allowed = append(allowed, string(p))
		}
		errors.ValidateEnum("preset", string(input.Preset), allowed, vb)
	}
	return vb.Build()
}

// Generate builds the tiles for input
func (g *Generator) Generate(input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.InvalidArgument("input is required")
	}
	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	seed := input.Seed
	if seed == "" {
		seed = strconv.FormatInt(g.clock.Now().UnixNano(), 10)
	}

	rules := presetTable[input.Preset]
	b := &builder{
		width:  input.Width,
		height: input.Height,
		rules:  rules,
		tiles:  make([]*entities.MapTile, input.Width*input.Height),
	}

	if rules.carveRooms {
		b.carve(newRNG(seed, input.Preset, "rooms"))
	} else {
		b.terrain(newRNG(seed, input.Preset, "terrain"))
	}
	b.clearSpawn()
	b.scatter(newRNG(seed, input.Preset, "features"))

	return &Output{
		Seed:           seed,
		DefaultTerrain: rules.defaultTerrain,
		Tiles:          b.tiles,
		Metadata:       b.metadata(input.Preset, seed),
	}, nil
}

// seedValue hashes the seed with a subsystem label, as two independent
// subsystems must not share a stream
func seedValue(seed string, preset Preset, label string) int64 {
	hasher := fnv.New64a()
	hasher.Write([]byte(seed))
	hasher.Write([]byte{0})
	hasher.Write([]byte(preset))
	hasher.Write([]byte{0})
	hasher.Write([]byte(label))
	sum := hasher.Sum64()
	if sum == 0 {
		sum = 1
	}
	return int64(sum)
}

func newRNG(seed string, preset Preset, label string) *rand.Rand {
	return rand.New(rand.NewSource(seedValue(seed, preset, label)))
}

type builder struct {
	width    int
	height   int
	rules    presetRules
	tiles    []*entities.MapTile
	clearing []entities.Point
	inClear  map[int]bool
	rooms    int
}

func (b *builder) at(x, y int) *entities.MapTile {
	return b.tiles[y*b.width+x]
}

func (b *builder) set(x, y int, terrain entities.TerrainType, blocked bool, elevation int) {
	b.tiles[y*b.width+x] = &entities.MapTile{
		X:           x,
		Y:           y,
		TerrainType: terrain,
		Elevation:   elevation,
		IsBlocked:   blocked,
		HasFog:      b.rules.fog,
	}
}

// terrain assigns every tile from two octaves of value noise
func (b *builder) terrain(rng *rand.Rand) {
	terrainNoise := newFractalNoise(rng, b.width, b.height, b.rules.cell)
	elevationNoise := newFractalNoise(rng, b.width, b.height, b.rules.cell*2)
	span := b.rules.maxElevation - b.rules.minElevation + 1

	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			v := terrainNoise.at(x, y)
			bd := b.rules.bands[len(b.rules.bands)-1]
			for _, candidate := range b.rules.bands {
				if v < candidate.upTo {
					bd = candidate
					break
				}
			}

			elevation := b.rules.minElevation + elevationNoise.at(x, y)*span/256
			if bd.fixedElev {
				elevation = bd.elevation
			}
			b.set(x, y, bd.terrain, bd.blocked, elevation)
		}
	}
}

type room struct {
	x, y, w, h int
}

func (r room) center() (int, int) {
	return r.x + r.w/2, r.y + r.h/2
}

func (r room) overlaps(o room) bool {
	return r.x-1 < o.x+o.w && o.x-1 < r.x+r.w && r.y-1 < o.y+o.h && o.y-1 < r.y+r.h
}

// carve fills the map with wall, then digs rooms joined by L-shaped corridors.
// The first room always sits on the map centre so the spawn clearing is
// connected to the rest of the dungeon.
func (b *builder) carve(rng *rand.Rand) {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			b.set(x, y, entities.TerrainWall, true, 0)
		}
	}

	maxRoom := 8
	if half := min(b.width, b.height) / 2; half < maxRoom {
		maxRoom = half
	}
	if maxRoom < 3 {
		maxRoom = 3
	}

	cx, cy := b.width/2, b.height/2
	rooms := []room{b.fit(room{x: cx - 1, y: cy - 1, w: 3, h: 3})}

	attempts := b.width * b.height / 20
	if attempts > 200 {
		attempts = 200
	}
	for i := 0; i < attempts; i++ {
		w := 3 + rng.Intn(maxRoom-2)
		h := 3 + rng.Intn(maxRoom-2)
		if w > b.width-2 || h > b.height-2 {
			continue
		}
		candidate := room{
			x: 1 + rng.Intn(b.width-w-1),
			y: 1 + rng.Intn(b.height-h-1),
			w: w,
			h: h,
		}
		clash := false
		for _, existing := range rooms {
			if candidate.overlaps(existing) {
				clash = true
				break
			}
		}
		if clash {
			continue
		}
		horizontalFirst := rng.Intn(2) == 0
		b.corridor(rooms[len(rooms)-1], candidate, horizontalFirst)
		rooms = append(rooms, candidate)
	}

	for _, r := range rooms {
		for y := r.y; y < r.y+r.h; y++ {
			for x := r.x; x < r.x+r.w; x++ {
				b.set(x, y, entities.TerrainFloor, false, 0)
			}
		}
	}
	b.rooms = len(rooms)
}

// fit clamps a room into the map, shrinking it on tiny maps
func (b *builder) fit(r room) room {
	if r.w > b.width {
		r.w = b.width
	}
	if r.h > b.height {
		r.h = b.height
	}
	r.x = max(0, min(r.x, b.width-r.w))
	r.y = max(0, min(r.y, b.height-r.h))
	return r
}

func (b *builder) corridor(from, to room, horizontalFirst bool) {
	x1, y1 := from.center()
	x2, y2 := to.center()
	if horizontalFirst {
		b.dig(x1, x2, y1, true)
		b.dig(y1, y2, x2, false)
		return
	}
	b.dig(y1, y2, x1, false)
	b.dig(x1, x2, y2, true)
}

func (b *builder) dig(from, to, fixed int, horizontal bool) {
	if from > to {
		from, to = to, from
	}
	for v := from; v <= to; v++ {
		if horizontal {
			b.set(v, fixed, entities.TerrainFloor, false, 0)
		} else {
			b.set(fixed, v, entities.TerrainFloor, false, 0)
		}
	}
}

// clearSpawn makes the area around the centre walkable and bare
func (b *builder) clearSpawn() {
	radius := 1
	switch shortest := min(b.width, b.height); {
	case shortest >= 40:
		radius = 3
	case shortest >= 12:
		radius = 2
	}

	cx, cy := b.width/2, b.height/2
	b.inClear = make(map[int]bool)
	for y := cy - radius; y <= cy+radius; y++ {
		for x := cx - radius; x <= cx+radius; x++ {
			if x < 0 || y < 0 || x >= b.width || y >= b.height {
				continue
			}
			b.set(x, y, b.rules.clearTerrain, false, 0)
			b.at(x, y).HasFog = false
			b.inClear[y*b.width+x] = true
			b.clearing = append(b.clearing, entities.Point{X: x, Y: y})
		}
	}
}

// scatter places features in row-major order so draws happen in a fixed sequence
func (b *builder) scatter(rng *rand.Rand) {
	for y := 0; y < b.height; y++ {
		for x := 0; x < b.width; x++ {
			if b.inClear[y*b.width+x] {
				continue
			}
			tile := b.at(x, y)
			if tile.IsBlocked {
				if b.rules.carveRooms && tile.TerrainType == entities.TerrainWall && b.bordersFloor(x, y) {
					if rng.Intn(1000) < torchChance {
						tile.FeatureType = entities.FeatureTorch
					}
				}
				continue
			}
			for _, rule := range b.rules.features {
				if !containsTerrain(rule.on, tile.TerrainType) {
					continue
				}
				if rng.Intn(1000) < rule.chance {
					tile.FeatureType = rule.feature
					tile.IsBlocked = rule.blocks
					break
				}
			}
		}
	}
}

func (b *builder) bordersFloor(x, y int) bool {
	for _, d := range [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}} {
		nx, ny := x+d[0], y+d[1]
		if nx < 0 || ny < 0 || nx >= b.width || ny >= b.height {
			continue
		}
		if b.at(nx, ny).TerrainType == entities.TerrainFloor {
			return true
		}
	}
	return false
}

func containsTerrain(list []entities.TerrainType, t entities.TerrainType) bool {
	for _, candidate := range list {
		if candidate == t {
			return true
		}
	}
	return false
}

func (b *builder) metadata(preset Preset, seed string) *entities.MapMetadata {
	meta := &entities.MapMetadata{
		Preset:        string(preset),
		Width:         b.width,
		Height:        b.height,
		Seed:          seed,
		TerrainCounts: make(map[entities.TerrainType]int),
		Features:      []entities.PlacedFeature{},
		Rooms:         b.rooms,
	}
	for _, t := range b.tiles {
		meta.TerrainCounts[t.TerrainType]++
		if t.IsBlocked {
			meta.BlockedCount++
		}
		if t.FeatureType != "" {
			meta.Features = append(meta.Features, entities.PlacedFeature{Type: t.FeatureType, X: t.X, Y: t.Y})
		}
	}

	meta.SpawnPoints = append([]entities.Point(nil), b.clearing...)
	cx, cy := b.width/2, b.height/2
	sort.SliceStable(meta.SpawnPoints, func(i, j int) bool {
		di := spawnRank(meta.SpawnPoints[i], cx, cy)
		dj := spawnRank(meta.SpawnPoints[j], cx, cy)
		if di != dj {
			return di < dj
		}
		if meta.SpawnPoints[i].Y != meta.SpawnPoints[j].Y {
			return meta.SpawnPoints[i].Y < meta.SpawnPoints[j].Y
		}
		return meta.SpawnPoints[i].X < meta.SpawnPoints[j].X
	})
	return meta
}

// spawnRank orders spawn points by distance from the centre, centre first
func spawnRank(p entities.Point, cx, cy int) int {
	dx, dy := p.X-cx, p.Y-cy
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return max(dx, dy)
}
