// Package maps persists maps and their tiles
package maps

import (
	"context"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
)

//go:generate mockgen -destination=mock/mock_repository.go -package=mapsmock github.com/KirkDiggler/tabletop-api/internal/repositories/maps Repository

// Repository defines the interface for map and tile persistence.
// Coordinates are bounds-checked by callers before they reach the store.
type Repository interface {
	// CreateMap inserts a map row without tiles
	// Returns errors.AlreadyExists if the id is taken
	CreateMap(ctx context.Context, input CreateMapInput) (*CreateMapOutput, error)

	// GetMap loads a map by id
	// Returns errors.NotFound if the map doesn't exist
	GetMap(ctx context.Context, input GetMapInput) (*GetMapOutput, error)

	// ListMapsForGame returns a session's maps, newest first
	ListMapsForGame(ctx context.Context, input ListMapsForGameInput) (*ListMapsForGameOutput, error)

	// BulkCreateTiles inserts every tile in one transaction using multi-row statements
	// Returns errors.NotFound if the map doesn't exist
	// Returns errors.AlreadyExists if a coordinate already has a tile
	BulkCreateTiles(ctx context.Context, input BulkCreateTilesInput) (*BulkCreateTilesOutput, error)

	// UpsertTiles inserts each tile or updates the existing row at its coordinate
	// Returns errors.NotFound if the map doesn't exist
	UpsertTiles(ctx context.Context, input UpsertTilesInput) (*UpsertTilesOutput, error)

	// GetTilesForMap returns all tiles in row-major order
	GetTilesForMap(ctx context.Context, input GetTilesForMapInput) (*GetTilesForMapOutput, error)

	// GetTile returns the tile at a coordinate; Tile is nil when absent
	GetTile(ctx context.Context, input GetTileInput) (*GetTileOutput, error)

	// CountTiles returns how many tile rows a map has
	CountTiles(ctx context.Context, input CountTilesInput) (*CountTilesOutput, error)
}

// CreateMapInput defines the input for creating a map
type CreateMapInput struct {
	Map *entities.Map
}

// CreateMapOutput defines the output for creating a map
type CreateMapOutput struct {
	Map *entities.Map
}

// GetMapInput defines the input for getting a map
type GetMapInput struct {
	ID string
}

// GetMapOutput defines the output for getting a map
type GetMapOutput struct {
	Map *entities.Map
}

// ListMapsForGameInput defines the input for listing a session's maps
type ListMapsForGameInput struct {
	GameID string
}

// ListMapsForGameOutput defines the output for listing a session's maps
type ListMapsForGameOutput struct {
	Maps []*entities.Map
}

// BulkCreateTilesInput defines the input for a bulk tile insert
type BulkCreateTilesInput struct {
	MapID string
	Tiles []*entities.MapTile
}

// BulkCreateTilesOutput defines the output for a bulk tile insert
type BulkCreateTilesOutput struct {
	Created int
}

// UpsertTilesInput defines the input for a tile upsert
type UpsertTilesInput struct {
	MapID string
	Tiles []*entities.MapTile
}

// UpsertTilesOutput defines the output for a tile upsert
type UpsertTilesOutput struct {
	Tiles []*entities.MapTile
}

// GetTilesForMapInput defines the input for reading all tiles
type GetTilesForMapInput struct {
	MapID string
}

// GetTilesForMapOutput defines the output for reading all tiles
type GetTilesForMapOutput struct {
	Tiles []*entities.MapTile
}

// GetTileInput defines the input for reading one tile
type GetTileInput struct {
	MapID string
	X     int
	Y     int
}

// GetTileOutput defines the output for reading one tile
type GetTileOutput struct {
	Tile *entities.MapTile
}

// CountTilesInput defines the input for counting tiles
type CountTilesInput struct {
	MapID string
}

// CountTilesOutput defines the output for counting tiles
type CountTilesOutput struct {
	Count int
}
