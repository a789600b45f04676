package npcs

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const (
	definitionColumns = `slug, name, archetype, description, max_health, armor_class, speed, stats_json, attack_json, loot_json, default_disposition`
	instanceColumns   = `id, game_id, map_id, npc_slug, name, current_health, max_health, status_effects_json, disposition, created_at, updated_at`
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

// NewSQLiteRepository creates an NPC repository backed by SQLite
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

func (r *sqliteRepository) GetDefinition(ctx context.Context, input GetDefinitionInput) (*GetDefinitionOutput, error) {
	if input.Slug == "" {
		return nil, errors.InvalidArgument("npc slug is required")
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+definitionColumns+` FROM npcs WHERE slug = ?`, input.Slug)
	def, err := scanDefinition(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("npc %s not found", input.Slug)
		}
		return nil, sqlite.Classify(err, "failed to load npc definition")
	}
	return &GetDefinitionOutput{Definition: def}, nil
}

func (r *sqliteRepository) ListDefinitions(ctx context.Context, _ ListDefinitionsInput) (*ListDefinitionsOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `SELECT `+definitionColumns+` FROM npcs ORDER BY slug`)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list npc definitions")
	}
	defer func() { _ = rows.Close() }()

	defs := []*entities.NPCDefinition{}
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan npc definition")
		}
		defs = append(defs, def)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list npc definitions")
	}
	return &ListDefinitionsOutput{Definitions: defs}, nil
}

func (r *sqliteRepository) CreateInstance(ctx context.Context, input CreateInstanceInput) (*CreateInstanceOutput, error) {
	inst := input.Instance
	if inst == nil || inst.ID == "" || inst.GameID == "" || inst.Slug == "" {
		return nil, errors.InvalidArgument("instance id, game and slug are required")
	}

	effects, err := marshalEffects(inst.StatusEffects)
	if err != nil {
		return nil, err
	}

	_, err = r.db.Querier(ctx).ExecContext(ctx, `INSERT INTO npc_instances (`+instanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.GameID, inst.MapID, inst.Slug, inst.Name, inst.CurrentHealth, inst.MaxHealth,
		effects, string(inst.Disposition), sqlite.ToMillis(inst.CreatedAt), sqlite.ToMillis(inst.UpdatedAt))
	if err != nil {
		switch {
		case sqlite.IsForeignKeyViolation(err):
			return nil, errors.NotFoundf("game %s or npc %s not found", inst.GameID, inst.Slug)
		case sqlite.IsUniqueViolation(err):
			return nil, errors.AlreadyExistsf("npc instance %s already exists", inst.ID)
		}
		return nil, sqlite.Classify(err, "failed to insert npc instance")
	}
	return &CreateInstanceOutput{Instance: inst}, nil
}

func (r *sqliteRepository) GetInstance(ctx context.Context, input GetInstanceInput) (*GetInstanceOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("npc instance id is required")
	}

	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM npc_instances WHERE id = ?`, input.ID)
	inst, err := scanInstance(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("npc instance %s not found", input.ID)
		}
		return nil, sqlite.Classify(err, "failed to load npc instance")
	}
	return &GetInstanceOutput{Instance: inst}, nil
}

func (r *sqliteRepository) UpdateInstance(ctx context.Context, input UpdateInstanceInput) (*UpdateInstanceOutput, error) {
	inst := input.Instance
	if inst == nil || inst.ID == "" {
		return nil, errors.InvalidArgument("npc instance is required")
	}

	effects, err := marshalEffects(inst.StatusEffects)
	if err != nil {
		return nil, err
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx, `UPDATE npc_instances
		SET name = ?, current_health = ?, status_effects_json = ?, disposition = ?, updated_at = ?
		WHERE id = ?`,
		inst.Name, inst.CurrentHealth, effects, string(inst.Disposition), sqlite.ToMillis(inst.UpdatedAt), inst.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to update npc instance")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("npc instance %s not found", inst.ID)
	}
	return &UpdateInstanceOutput{Instance: inst}, nil
}

func (r *sqliteRepository) ListInstancesForGame(ctx context.Context, input ListInstancesForGameInput) (*ListInstancesForGameOutput, error) {
	query := `SELECT ` + instanceColumns + ` FROM npc_instances WHERE game_id = ?`
	args := []any{input.GameID}
	if input.MapID != "" {
		query += ` AND map_id = ?`
		args = append(args, input.MapID)
	}
	query += ` ORDER BY created_at, rowid`

	rows, err := r.db.Querier(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list npc instances")
	}
	defer func() { _ = rows.Close() }()

	list := []*entities.NPCInstance{}
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan npc instance")
		}
		list = append(list, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list npc instances")
	}
	return &ListInstancesForGameOutput{Instances: list}, nil
}

func marshalEffects(effects []string) (string, error) {
	if effects == nil {
		effects = []string{}
	}
	data, err := json.Marshal(effects)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal status effects")
	}
	return string(data), nil
}

func scanDefinition(row sqlite.Scanner) (*entities.NPCDefinition, error) {
	var (
		def                 entities.NPCDefinition
		stats, attack, loot string
		disposition         string
	)
	err := row.Scan(&def.Slug, &def.Name, &def.Archetype, &def.Description, &def.MaxHealth, &def.ArmorClass,
		&def.Speed, &stats, &attack, &loot, &disposition)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(stats), &def.Stats); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal npc stats")
	}
	if err := json.Unmarshal([]byte(attack), &def.Attack); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal npc attack")
	}
	if err := json.Unmarshal([]byte(loot), &def.LootTable); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal npc loot")
	}
	def.DefaultDisposition = entities.Disposition(disposition)
	return &def, nil
}

func scanInstance(row sqlite.Scanner) (*entities.NPCInstance, error) {
	var (
		inst                 entities.NPCInstance
		effects, disposition string
		createdAt, updatedAt int64
	)
	err := row.Scan(&inst.ID, &inst.GameID, &inst.MapID, &inst.Slug, &inst.Name, &inst.CurrentHealth,
		&inst.MaxHealth, &effects, &disposition, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(effects), &inst.StatusEffects); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal status effects")
	}
	inst.Disposition = entities.Disposition(disposition)
	inst.CreatedAt = sqlite.FromMillis(createdAt)
	inst.UpdatedAt = sqlite.FromMillis(updatedAt)
	return &inst, nil
}
