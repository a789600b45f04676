package characters

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

const columns = `id, player_id, player_email, name, level, race, class, stats_json, skills_json,
	health, max_health, action_points, max_action_points, speed, inventory_json, equipped_json,
	created_at, updated_at`

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

// NewSQLiteRepository creates a character repository backed by SQLite
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

// encoded holds the JSON columns of a character
type encoded struct {
	stats, skills, inventory, equipped string
}

func encode(c *entities.Character) (*encoded, error) {
	skills := c.Skills
	if skills == nil {
		skills = []string{}
	}
	inventory := c.Inventory
	if inventory == nil {
		inventory = []entities.Item{}
	}
	equipped := c.Equipped
	if equipped == nil {
		equipped = map[entities.EquipmentSlot]string{}
	}

	var (
		out encoded
		err error
	)
	for _, field := range []struct {
		dst *string
		src any
	}{
		{&out.stats, c.Stats},
		{&out.skills, skills},
		{&out.inventory, inventory},
		{&out.equipped, equipped},
	} {
		var data []byte
		if data, err = json.Marshal(field.src); err != nil {
			return nil, errors.Wrap(err, "failed to marshal character")
		}
		*field.dst = string(data)
	}
	return &out, nil
}

func (r *sqliteRepository) Create(ctx context.Context, input CreateInput) (*CreateOutput, error) {
	c := input.Character
	if c == nil {
		return nil, errors.InvalidArgument("character is required")
	}
	if c.ID == "" || c.PlayerID == "" {
		return nil, errors.InvalidArgument("character id and player id are required")
	}

	enc, err := encode(c)
	if err != nil {
		return nil, err
	}

	_, err = r.db.Querier(ctx).ExecContext(ctx, `INSERT INTO characters (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.PlayerID, c.PlayerEmail, c.Name, c.Level, c.Race, c.Class, enc.stats, enc.skills,
		c.Health, c.MaxHealth, c.ActionPoints, c.MaxActionPoints, c.Speed, enc.inventory, enc.equipped,
		sqlite.ToMillis(c.CreatedAt), sqlite.ToMillis(c.UpdatedAt))
	if err != nil {
		if sqlite.IsUniqueViolation(err) {
			return nil, errors.AlreadyExistsf("character %s already exists", c.ID)
		}
		return nil, sqlite.Classify(err, "failed to insert character")
	}

	slog.DebugContext(ctx, "Created character", "character_id", c.ID, "player_id", c.PlayerID)
	return &CreateOutput{Character: c}, nil
}

func (r *sqliteRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("character id is required")
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+columns+` FROM characters WHERE id = ?`, input.ID)
	c, err := scanCharacter(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("character %s not found", input.ID)
		}
		return nil, sqlite.Classify(err, "failed to load character")
	}
	return &GetOutput{Character: c}, nil
}

func (r *sqliteRepository) GetMany(ctx context.Context, input GetManyInput) (*GetManyOutput, error) {
	out := &GetManyOutput{Characters: make(map[string]*entities.Character, len(input.IDs))}
	if len(input.IDs) == 0 {
		return out, nil
	}

	args := make([]any, len(input.IDs))
	for i, id := range input.IDs {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")

	rows, err := r.db.Querier(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM characters WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to load characters")
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan character")
		}
		out.Characters[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to load characters")
	}
	return out, nil
}

func (r *sqliteRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	c := input.Character
	if c == nil || c.ID == "" {
		return nil, errors.InvalidArgument("character is required")
	}

	enc, err := encode(c)
	if err != nil {
		return nil, err
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx, `UPDATE characters SET
		name = ?, level = ?, race = ?, class = ?, stats_json = ?, skills_json = ?,
		health = ?, max_health = ?, action_points = ?, max_action_points = ?, speed = ?,
		inventory_json = ?, equipped_json = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.Level, c.Race, c.Class, enc.stats, enc.skills,
		c.Health, c.MaxHealth, c.ActionPoints, c.MaxActionPoints, c.Speed,
		enc.inventory, enc.equipped, sqlite.ToMillis(c.UpdatedAt), c.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to update character")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("character %s not found", c.ID)
	}
	return &UpdateOutput{Character: c}, nil
}

func (r *sqliteRepository) Delete(ctx context.Context, input DeleteInput) (*DeleteOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("character id is required")
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM characters WHERE id = ?`, input.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to delete character")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("character %s not found", input.ID)
	}
	return &DeleteOutput{}, nil
}

func (r *sqliteRepository) ListByPlayerID(ctx context.Context, input ListByPlayerIDInput) (*ListByPlayerIDOutput, error) {
	if input.PlayerID == "" {
		return nil, errors.InvalidArgument("player id is required")
	}

	rows, err := r.db.Querier(ctx).QueryContext(ctx,
		`SELECT `+columns+` FROM characters WHERE player_id = ? ORDER BY created_at, id`, input.PlayerID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list characters")
	}
	defer func() { _ = rows.Close() }()

	list := []*entities.Character{}
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan character")
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list characters")
	}
	return &ListByPlayerIDOutput{Characters: list}, nil
}

func scanCharacter(row sqlite.Scanner) (*entities.Character, error) {
	var (
		c                    entities.Character
		enc                  encoded
		createdAt, updatedAt int64
	)
	err := row.Scan(&c.ID, &c.PlayerID, &c.PlayerEmail, &c.Name, &c.Level, &c.Race, &c.Class,
		&enc.stats, &enc.skills, &c.Health, &c.MaxHealth, &c.ActionPoints, &c.MaxActionPoints, &c.Speed,
		&enc.inventory, &enc.equipped, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(enc.stats), &c.Stats); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal stats")
	}
	if err := json.Unmarshal([]byte(enc.skills), &c.Skills); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal skills")
	}
	if err := json.Unmarshal([]byte(enc.inventory), &c.Inventory); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal inventory")
	}
	if err := json.Unmarshal([]byte(enc.equipped), &c.Equipped); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal equipment")
	}
	if c.Equipped == nil {
		c.Equipped = map[entities.EquipmentSlot]string{}
	}
	c.CreatedAt = sqlite.FromMillis(createdAt)
	c.UpdatedAt = sqlite.FromMillis(updatedAt)
	return &c, nil
}
