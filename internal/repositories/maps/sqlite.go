package maps

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"strings"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// tilesPerStatement keeps each multi-row statement well under SQLite's
// bound-parameter limit
const tilesPerStatement = 500

const (
	mapColumns  = `id, game_id, name, width, height, default_terrain, generator_preset, seed, is_generated, metadata_json, created_at`
	tileColumns = `map_id, x, y, terrain_type, elevation, is_blocked, has_fog, feature_type`
)

// Config holds the configuration for the SQLite repository
type Config struct {
	DB *sqlite.DB
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c.DB == nil {
		return errors.InvalidArgument("database is required")
	}
	return nil
}

type sqliteRepository struct {
	db *sqlite.DB
}

// NewSQLiteRepository creates a map repository backed by SQLite
func NewSQLiteRepository(cfg *Config) (Repository, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &sqliteRepository{db: cfg.DB}, nil
}

var _ Repository = (*sqliteRepository)(nil)

func (r *sqliteRepository) CreateMap(ctx context.Context, input CreateMapInput) (*CreateMapOutput, error) {
	m := input.Map
	if m == nil || m.ID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}
	if m.Width <= 0 || m.Height <= 0 {
		return nil, errors.InvalidArgument("map dimensions must be positive")
	}

	metadata := []byte("{}")
	if m.Metadata != nil {
		var err error
		if metadata, err = json.Marshal(m.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to marshal map metadata")
		}
	}

	var seed sql.NullString
	if m.Seed != nil {
		seed = sql.NullString{String: *m.Seed, Valid: true}
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `INSERT INTO maps (`+mapColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, sqlite.NullString(m.GameID), m.Name, m.Width, m.Height, string(m.DefaultTerrain),
		m.GeneratorPreset, seed, sqlite.BoolToInt(m.IsGenerated), string(metadata), sqlite.ToMillis(m.CreatedAt))
	if err != nil {
		switch {
		case sqlite.IsUniqueViolation(err):
			return nil, errors.AlreadyExistsf("map %s already exists", m.ID)
		case sqlite.IsForeignKeyViolation(err):
			return nil, errors.NotFoundf("game %s not found", m.GameID)
		}
		return nil, sqlite.Classify(err, "failed to insert map")
	}

	return &CreateMapOutput{Map: m}, nil
}

func (r *sqliteRepository) GetMap(ctx context.Context, input GetMapInput) (*GetMapOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("map id is required")
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+mapColumns+` FROM maps WHERE id = ?`, input.ID)
	m, err := scanMap(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("map %s not found", input.ID)
		}
		return nil, sqlite.Classify(err, "failed to load map")
	}
	return &GetMapOutput{Map: m}, nil
}

func (r *sqliteRepository) ListMapsForGame(ctx context.Context, input ListMapsForGameInput) (*ListMapsForGameOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx,
		`SELECT `+mapColumns+` FROM maps WHERE game_id = ? ORDER BY created_at DESC, rowid DESC`, input.GameID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list maps")
	}
	defer func() { _ = rows.Close() }()

	list := []*entities.Map{}
	for rows.Next() {
		m, err := scanMap(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan map")
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list maps")
	}
	return &ListMapsForGameOutput{Maps: list}, nil
}

func (r *sqliteRepository) BulkCreateTiles(ctx context.Context, input BulkCreateTilesInput) (*BulkCreateTilesOutput, error) {
	err := r.writeTiles(ctx, input.MapID, input.Tiles, "")
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return nil, errors.AlreadyExistsf("map %s already has tiles at some of these coordinates", input.MapID)
		}
		return nil, err
	}

	slog.DebugContext(ctx, "Bulk created tiles", "map_id", input.MapID, "count", len(input.Tiles))
	return &BulkCreateTilesOutput{Created: len(input.Tiles)}, nil
}

func (r *sqliteRepository) UpsertTiles(ctx context.Context, input UpsertTilesInput) (*UpsertTilesOutput, error) {
	err := r.writeTiles(ctx, input.MapID, input.Tiles, ` ON CONFLICT (map_id, x, y) DO UPDATE SET
		terrain_type = excluded.terrain_type,
		elevation = excluded.elevation,
		is_blocked = excluded.is_blocked,
		has_fog = excluded.has_fog,
		feature_type = excluded.feature_type`)
	if err != nil {
		return nil, err
	}
	return &UpsertTilesOutput{Tiles: input.Tiles}, nil
}

// writeTiles inserts tiles in chunks inside one transaction, appending suffix
// to every statement
func (r *sqliteRepository) writeTiles(ctx context.Context, mapID string, tiles []*entities.MapTile, suffix string) error {
	if mapID == "" {
		return errors.InvalidArgument("map id is required")
	}

	return r.db.InTx(ctx, func(ctx context.Context) error {
		q := r.db.Querier(ctx)

		var exists int
		err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM maps WHERE id = ?`, mapID).Scan(&exists)
		if err != nil {
			return sqlite.Classify(err, "failed to check map")
		}
		if exists == 0 {
			return errors.NotFoundf("map %s not found", mapID)
		}

		for start := 0; start < len(tiles); start += tilesPerStatement {
			end := min(start+tilesPerStatement, len(tiles))
			chunk := tiles[start:end]

			var sb strings.Builder
			sb.WriteString(`INSERT INTO map_tiles (` + tileColumns + `) VALUES `)
			args := make([]any, 0, len(chunk)*8)
			for i, t := range chunk {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString("(?, ?, ?, ?, ?, ?, ?, ?)")
				t.MapID = mapID
				args = append(args, mapID, t.X, t.Y, string(t.TerrainType), t.Elevation,
					sqlite.BoolToInt(t.IsBlocked), sqlite.BoolToInt(t.HasFog), sqlite.NullString(string(t.FeatureType)))
			}
			sb.WriteString(suffix)

			if _, err := q.ExecContext(ctx, sb.String(), args...); err != nil {
				if sqlite.IsUniqueViolation(err) {
					return err
				}
				return sqlite.Classify(err, "failed to write tiles")
			}
		}
		return nil
	})
}

func (r *sqliteRepository) GetTilesForMap(ctx context.Context, input GetTilesForMapInput) (*GetTilesForMapOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx,
		`SELECT `+tileColumns+` FROM map_tiles WHERE map_id = ? ORDER BY y, x`, input.MapID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to load tiles")
	}
	defer func() { _ = rows.Close() }()

	tiles := []*entities.MapTile{}
	for rows.Next() {
		t, err := scanTile(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan tile")
		}
		tiles = append(tiles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to load tiles")
	}
	return &GetTilesForMapOutput{Tiles: tiles}, nil
}

func (r *sqliteRepository) GetTile(ctx context.Context, input GetTileInput) (*GetTileOutput, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+tileColumns+` FROM map_tiles WHERE map_id = ? AND x = ? AND y = ?`, input.MapID, input.X, input.Y)
	t, err := scanTile(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return &GetTileOutput{}, nil
		}
		return nil, sqlite.Classify(err, "failed to load tile")
	}
	return &GetTileOutput{Tile: t}, nil
}

func (r *sqliteRepository) CountTiles(ctx context.Context, input CountTilesInput) (*CountTilesOutput, error) {
	var n int
	err := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM map_tiles WHERE map_id = ?`, input.MapID).Scan(&n)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to count tiles")
	}
	return &CountTilesOutput{Count: n}, nil
}

func scanMap(row sqlite.Scanner) (*entities.Map, error) {
	var (
		m                 entities.Map
		gameID, seed      sql.NullString
		terrain, metadata string
		isGenerated       int
		createdAt         int64
	)
	err := row.Scan(&m.ID, &gameID, &m.Name, &m.Width, &m.Height, &terrain, &m.GeneratorPreset,
		&seed, &isGenerated, &metadata, &createdAt)
	if err != nil {
		return nil, err
	}

	m.GameID = gameID.String
	m.DefaultTerrain = entities.TerrainType(terrain)
	if seed.Valid {
		m.Seed = &seed.String
	}
	m.IsGenerated = isGenerated != 0
	if metadata != "" && metadata != "{}" {
		m.Metadata = &entities.MapMetadata{}
		if err := json.Unmarshal([]byte(metadata), m.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal map metadata")
		}
	}
	m.CreatedAt = sqlite.FromMillis(createdAt)
	return &m, nil
}

func scanTile(row sqlite.Scanner) (*entities.MapTile, error) {
	var (
		t            entities.MapTile
		terrain      string
		blocked, fog int
		feature      sql.NullString
	)
	if err := row.Scan(&t.MapID, &t.X, &t.Y, &terrain, &t.Elevation, &blocked, &fog, &feature); err != nil {
		return nil, err
	}
	t.TerrainType = entities.TerrainType(terrain)
	t.IsBlocked = blocked != 0
	t.HasFog = fog != 0
	t.FeatureType = entities.FeatureType(feature.String)
	return &t, nil
}
