package gamelog

import (
	"context"
	"encoding/json"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
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

// NewSQLiteRepository creates an activity log backed by SQLite
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

func (r *sqliteRepository) Append(ctx context.Context, input AppendInput) (*AppendOutput, error) {
	err := r.db.InTx(ctx, func(ctx context.Context) error {
		q := r.db.Querier(ctx)
		for _, entry := range input.Entries {
			if entry.GameID == "" || entry.Type == "" {
				return errors.InvalidArgument("log entries need a game id and type")
			}
			data := []byte("{}")
			if len(entry.Data) > 0 {
				var err error
				if data, err = json.Marshal(entry.Data); err != nil {
					return errors.Wrap(err, "failed to marshal log data")
				}
			}

			res, err := q.ExecContext(ctx, `INSERT INTO game_log
				(game_id, actor_id, actor_name, type, description, data_json, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				entry.GameID, entry.ActorID, entry.ActorName, string(entry.Type), entry.Description,
				string(data), sqlite.ToMillis(entry.CreatedAt))
			if err != nil {
				if sqlite.IsForeignKeyViolation(err) {
					return errors.NotFoundf("game %s not found", entry.GameID)
				}
				return sqlite.Classify(err, "failed to append log entry")
			}
			if entry.ID, err = res.LastInsertId(); err != nil {
				return errors.Wrap(err, "failed to read log entry id")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &AppendOutput{Entries: input.Entries}, nil
}

func (r *sqliteRepository) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	if input.GameID == "" {
		return nil, errors.InvalidArgument("game id is required")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.Querier(ctx).QueryContext(ctx, `SELECT id, game_id, actor_id, actor_name, type, description, data_json, created_at
		FROM (SELECT * FROM game_log WHERE game_id = ? ORDER BY id DESC LIMIT ?)
		ORDER BY id`, input.GameID, limit)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list log")
	}
	defer func() { _ = rows.Close() }()

	entries := []*entities.ActivityLogEntry{}
	for rows.Next() {
		var (
			entry     entities.ActivityLogEntry
			logType   string
			dataJSON  string
			createdAt int64
		)
		if err := rows.Scan(&entry.ID, &entry.GameID, &entry.ActorID, &entry.ActorName, &logType,
			&entry.Description, &dataJSON, &createdAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan log entry")
		}
		if err := json.Unmarshal([]byte(dataJSON), &entry.Data); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal log data")
		}
		if len(entry.Data) == 0 {
			entry.Data = nil
		}
		entry.Type = entities.LogType(logType)
		entry.CreatedAt = sqlite.FromMillis(createdAt)
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list log")
	}
	return &ListOutput{Entries: entries}, nil
}

func (r *sqliteRepository) Clear(ctx context.Context, input ClearInput) (*ClearOutput, error) {
	if input.GameID == "" {
		return nil, errors.InvalidArgument("game id is required")
	}
	res, err := r.db.Querier(ctx).ExecContext(ctx, `DELETE FROM game_log WHERE game_id = ?`, input.GameID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to clear log")
	}
	n, _ := res.RowsAffected()
	return &ClearOutput{Deleted: n}, nil
}
