package tokens

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const columns = `id, map_id, token_type, character_id, npc_instance_id, label, x, y, facing, status,
	is_visible, hit_points, max_hit_points, created_at, updated_at`

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

// NewSQLiteRepository creates a token repository backed by SQLite
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

func (r *sqliteRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	t := input.Token
	if t == nil || t.ID == "" || t.MapID == "" {
		return nil, errors.InvalidArgument("token id and map id are required")
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `INSERT INTO map_tokens (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.MapID, string(t.TokenType), sqlite.NullString(t.CharacterID), sqlite.NullString(t.NPCInstanceID),
		t.Label, t.X, t.Y, string(t.Facing), string(t.Status), sqlite.BoolToInt(t.IsVisible),
		nullInt(t.HitPoints), nullInt(t.MaxHitPoints), sqlite.ToMillis(t.CreatedAt), sqlite.ToMillis(t.UpdatedAt))
	if err != nil {
		switch {
		case sqlite.IsForeignKeyViolation(err):
			return nil, errors.NotFoundf("map %s not found", t.MapID)
		case sqlite.IsUniqueViolation(err):
			return nil, errors.AlreadyExistsf("token %s already exists", t.ID)
		}
		return nil, sqlite.Classify(err, "failed to insert token")
	}
	return &CreateOutput{Token: t}, nil
}

func (r *sqliteRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("token id is required")
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+columns+` FROM map_tokens WHERE id = ?`, input.ID)
	t, err := scanToken(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("token %s not found", input.ID)
		}
		return nil, sqlite.Classify(err, "failed to load token")
	}
	return &GetOutput{Token: t}, nil
}

func (r *sqliteRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	t := input.Token
	if t == nil || t.ID == "" {
		return nil, errors.InvalidArgument("token is required")
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx, `UPDATE map_tokens SET
		label = ?, x = ?, y = ?, facing = ?, status = ?, is_visible = ?, hit_points = ?, max_hit_points = ?, updated_at = ?
		WHERE id = ?`,
		t.Label, t.X, t.Y, string(t.Facing), string(t.Status), sqlite.BoolToInt(t.IsVisible),
		nullInt(t.HitPoints), nullInt(t.MaxHitPoints), sqlite.ToMillis(t.UpdatedAt), t.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to update token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("token %s not found", t.ID)
	}
	return &UpdateOutput{Token: t}, nil
}

func (r *sqliteRepository) ListForMap(ctx context.Context, input ListForMapInput) (*ListForMapOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM map_tokens WHERE map_id = ? ORDER BY created_at, rowid`, input.MapID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list tokens")
	}
	defer func() { _ = rows.Close() }()

	list := []*entities.MapToken{}
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan token")
		}
		list = append(list, t)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list tokens")
	}
	return &ListForMapOutput{Tokens: list}, nil
}

func (r *sqliteRepository) FindByEntity(ctx context.Context, input FindByEntityInput) (*FindByEntityOutput, error) {
	column := "character_id"
	switch input.TokenType {
	case entities.TokenTypePlayer:
	case entities.TokenTypeNPC:
		column = "npc_instance_id"
	default:
		return nil, errors.InvalidArgumentf("tokens of type %q have no entity", input.TokenType)
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+columns+` FROM map_tokens
		WHERE map_id = ? AND token_type = ? AND `+column+` = ?
		ORDER BY created_at, rowid LIMIT 1`, input.MapID, string(input.TokenType), input.EntityID)
	t, err := scanToken(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return &FindByEntityOutput{}, nil
		}
		return nil, sqlite.Classify(err, "failed to find token")
	}
	return &FindByEntityOutput{Token: t}, nil
}

func (r *sqliteRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("token id is required")
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM map_tokens WHERE id = ?`, input.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to delete token")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("token %s not found", input.ID)
	}
	return &DeleteOutput{}, nil
}

func (r *sqliteRepository) DeleteForMap(ctx context.Context, input DeleteForMapInput) (*DeleteForMapOutput, error) {
	res, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM map_tokens WHERE map_id = ?`, input.MapID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to delete tokens")
	}
	n, _ := res.RowsAffected()
	return &DeleteForMapOutput{Deleted: n}, nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func scanToken(row sqlite.Scanner) (*entities.MapToken, error) {
	var (
		t                    entities.MapToken
		tokenType            string
		characterID, npcID   sql.NullString
		facing, status       string
		visible              int
		hp, maxHP            sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(&t.ID, &t.MapID, &tokenType, &characterID, &npcID, &t.Label, &t.X, &t.Y,
		&facing, &status, &visible, &hp, &maxHP, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.TokenType = entities.TokenType(tokenType)
	t.CharacterID = characterID.String
	t.NPCInstanceID = npcID.String
	t.Facing = entities.Facing(facing)
	t.Status = entities.TokenStatus(status)
	t.IsVisible = visible != 0
	if hp.Valid {
		v := int(hp.Int64)
		t.HitPoints = &v
	}
	if maxHP.Valid {
		v := int(maxHP.Int64)
		t.MaxHitPoints = &v
	}
	t.CreatedAt = sqlite.FromMillis(createdAt)
	t.UpdatedAt = sqlite.FromMillis(updatedAt)
	return &t, nil
}
