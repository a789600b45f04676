package games

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/errors"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

const sessionColumns = `g.id, g.invite_code, g.host_id, g.host_email, g.quest_json, g.world, g.starting_area,
	g.status, g.current_map_id, s.version, g.created_at, g.updated_at`

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

// NewSQLiteRepository creates a session repository backed by SQLite
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
	session := input.Session
	if session == nil {
		return nil, errors.InvalidArgument("session is required")
	}
	if session.ID == "" || session.InviteCode == "" || session.HostID == "" {
		return nil, errors.InvalidArgument("session id, invite code and host are required")
	}

	quest, err := json.Marshal(session.Quest)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal quest")
	}
	turn, err := json.Marshal(entities.TurnState{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal turn state")
	}

	err = r.db.InTx(ctx, func(ctx context.Context) error {
		q := r.db.Querier(ctx)
		_, err := q.ExecContext(ctx, `INSERT INTO games
			(id, invite_code, host_id, host_email, quest_json, world, starting_area, status, current_map_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			session.ID, session.InviteCode, session.HostID, session.HostEmail, string(quest),
			session.World, session.StartingArea, string(session.Status), sqlite.NullString(session.CurrentMapID),
			sqlite.ToMillis(session.CreatedAt), sqlite.ToMillis(session.UpdatedAt))
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return errors.AlreadyExistsf("session with invite code %s already exists", session.InviteCode)
			}
			return sqlite.Classify(err, "failed to insert session")
		}

		_, err = q.ExecContext(ctx, `INSERT INTO game_states (game_id, version, turn_json, updated_at) VALUES (?, 0, ?, ?)`,
			session.ID, string(turn), sqlite.ToMillis(session.CreatedAt))
		if err != nil {
			return sqlite.Classify(err, "failed to insert session state")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.StateVersion = 0
	slog.DebugContext(ctx, "Created session", "game_id", session.ID, "invite_code", session.InviteCode)
	return &CreateOutput{Session: session}, nil
}

func (r *sqliteRepository) Get(ctx context.Context, input GetInput) (*GetOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("session id is required")
	}
	session, err := r.getOne(ctx, "g.id = ?", input.ID)
	if err != nil {
		return nil, err
	}
	return &GetOutput{Session: session}, nil
}

func (r *sqliteRepository) GetByInviteCode(ctx context.Context, input GetByInviteCodeInput) (*GetByInviteCodeOutput, error) {
	if input.InviteCode == "" {
		return nil, errors.InvalidArgument("invite code is required")
	}
	session, err := r.getOne(ctx, "g.invite_code = ?", input.InviteCode)
	if err != nil {
		return nil, err
	}
	return &GetByInviteCodeOutput{Session: session}, nil
}

func (r *sqliteRepository) getOne(ctx context.Context, where string, arg any) (*entities.GameSession, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM games g JOIN game_states s ON s.game_id = g.id WHERE `+where, arg)
	session, err := scanSession(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("game %s not found", arg)
		}
		return nil, sqlite.Classify(err, "failed to load session")
	}
	return session, nil
}

func (r *sqliteRepository) InviteCodeExists(ctx context.Context, code string) (bool, error) {
	var n int
	err := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM games WHERE invite_code = ?`, code).Scan(&n)
	if err != nil {
		return false, sqlite.Classify(err, "failed to check invite code")
	}
	return n > 0, nil
}

func (r *sqliteRepository) ListForUser(ctx context.Context, input ListForUserInput) (*ListForUserOutput, error) {
	if input.UserID == "" {
		return nil, errors.InvalidArgument("user id is required")
	}

	rows, err := r.db.Querier(ctx).QueryContext(ctx, `SELECT `+sessionColumns+`
		FROM games g JOIN game_states s ON s.game_id = g.id
		WHERE g.host_id = ? OR g.id IN (SELECT game_id FROM game_players WHERE player_id = ?)
		ORDER BY g.created_at DESC, g.id`, input.UserID, input.UserID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list sessions")
	}
	defer func() { _ = rows.Close() }()

	sessions := []*entities.GameSession{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan session")
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list sessions")
	}
	return &ListForUserOutput{Sessions: sessions}, nil
}

func (r *sqliteRepository) Update(ctx context.Context, input UpdateInput) (*UpdateOutput, error) {
	session := input.Session
	if session == nil || session.ID == "" {
		return nil, errors.InvalidArgument("session is required")
	}

	res, err := r.db.Querier(ctx).ExecContext(ctx,
		`UPDATE games SET status = ?, current_map_id = ?, updated_at = ? WHERE id = ?`,
		string(session.Status), sqlite.NullString(session.CurrentMapID), sqlite.ToMillis(session.UpdatedAt), session.ID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to update session")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errors.NotFoundf("game %s not found", session.ID)
	}
	return &UpdateOutput{}, nil
}

func (r *sqliteRepository) GetState(ctx context.Context, input GetStateInput) (*GetStateOutput, error) {
	if input.GameID == "" {
		return nil, errors.InvalidArgument("game id is required")
	}

	var (
		state     entities.GameState
		turnJSON  string
		updatedAt int64
	)
	err := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT game_id, version, turn_json, updated_at FROM game_states WHERE game_id = ?`, input.GameID).
		Scan(&state.GameID, &state.Version, &turnJSON, &updatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("game %s not found", input.GameID)
		}
		return nil, sqlite.Classify(err, "failed to load state")
	}
	if err := json.Unmarshal([]byte(turnJSON), &state.Turn); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal turn state")
	}
	state.UpdatedAt = sqlite.FromMillis(updatedAt)

	return &GetStateOutput{State: &state}, nil
}

func (r *sqliteRepository) CommitState(ctx context.Context, input CommitStateInput) (*CommitStateOutput, error) {
	if input.GameID == "" {
		return nil, errors.InvalidArgument("game id is required")
	}

	var turnJSON sql.NullString
	if input.Turn != nil {
		data, err := json.Marshal(input.Turn)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal turn state")
		}
		turnJSON = sql.NullString{String: string(data), Valid: true}
	}

	next := input.ExpectedVersion + 1
	err := r.db.InTx(ctx, func(ctx context.Context) error {
		q := r.db.Querier(ctx)
		res, err := q.ExecContext(ctx, `UPDATE game_states
			SET version = version + 1, turn_json = COALESCE(?, turn_json), updated_at = ?
			WHERE game_id = ? AND version = ?`,
			turnJSON, sqlite.ToMillis(input.UpdatedAt), input.GameID, input.ExpectedVersion)
		if err != nil {
			return sqlite.Classify(err, "failed to commit state")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return r.commitConflict(ctx, input)
		}

		_, err = q.ExecContext(ctx, `UPDATE games SET updated_at = ? WHERE id = ?`,
			sqlite.ToMillis(input.UpdatedAt), input.GameID)
		return sqlite.Classify(err, "failed to touch session")
	})
	if err != nil {
		return nil, err
	}

	return &CommitStateOutput{Version: next}, nil
}

func (r *sqliteRepository) commitConflict(ctx context.Context, input CommitStateInput) error {
	var current int64
	err := r.db.Querier(ctx).QueryRowContext(ctx,
		`SELECT version FROM game_states WHERE game_id = ?`, input.GameID).Scan(&current)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return errors.NotFoundf("game %s not found", input.GameID)
		}
		return sqlite.Classify(err, "failed to read state version")
	}

	slog.WarnContext(ctx, "State version conflict",
		"game_id", input.GameID,
		"expected_version", input.ExpectedVersion,
		"current_version", current)
	return errors.Abortedf("state version %d is stale", input.ExpectedVersion).
		WithMeta("expected_version", input.ExpectedVersion).
		WithMeta("current_version", current)
}

func (r *sqliteRepository) UpsertPlayer(ctx context.Context, input UpsertPlayerInput) (*UpsertPlayerOutput, error) {
	entry := input.Entry
	if entry == nil || entry.GameID == "" || entry.PlayerID == "" || entry.CharacterID == "" {
		return nil, errors.InvalidArgument("game, player and character are required")
	}

	_, err := r.db.Querier(ctx).ExecContext(ctx, `INSERT INTO game_players
		(game_id, player_id, player_email, character_id, joined_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (game_id, player_id) DO UPDATE SET
			character_id = excluded.character_id,
			player_email = excluded.player_email`,
		entry.GameID, entry.PlayerID, entry.PlayerEmail, entry.CharacterID, sqlite.ToMillis(entry.JoinedAt))
	if err != nil {
		if sqlite.IsForeignKeyViolation(err) {
			return nil, errors.NotFoundf("game %s not found", entry.GameID)
		}
		return nil, sqlite.Classify(err, "failed to upsert roster entry")
	}

	out, err := r.GetPlayer(ctx, GetPlayerInput{GameID: entry.GameID, PlayerID: entry.PlayerID})
	if err != nil {
		return nil, err
	}
	return &UpsertPlayerOutput{Entry: out.Entry}, nil
}

func (r *sqliteRepository) GetPlayer(ctx context.Context, input GetPlayerInput) (*GetPlayerOutput, error) {
	row := r.db.Querier(ctx).QueryRowContext(ctx, `SELECT game_id, player_id, player_email, character_id, joined_at
		FROM game_players WHERE game_id = ? AND player_id = ?`, input.GameID, input.PlayerID)
	entry, err := scanRosterEntry(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFoundf("player %s has not joined game %s", input.PlayerID, input.GameID)
		}
		return nil, sqlite.Classify(err, "failed to load roster entry")
	}
	return &GetPlayerOutput{Entry: entry}, nil
}

func (r *sqliteRepository) ListPlayers(ctx context.Context, input ListPlayersInput) (*ListPlayersOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `SELECT game_id, player_id, player_email, character_id, joined_at
		FROM game_players WHERE game_id = ? ORDER BY joined_at, rowid`, input.GameID)
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list roster")
	}
	defer func() { _ = rows.Close() }()

	entries := []*entities.RosterEntry{}
	for rows.Next() {
		entry, err := scanRosterEntry(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan roster entry")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list roster")
	}
	return &ListPlayersOutput{Entries: entries}, nil
}

func (r *sqliteRepository) ListActiveForCharacter(ctx context.Context, input ListActiveForCharacterInput) (*ListActiveForCharacterOutput, error) {
	rows, err := r.db.Querier(ctx).QueryContext(ctx, `SELECT g.id FROM games g
		JOIN game_players p ON p.game_id = g.id
		WHERE p.character_id = ? AND g.status = ?
		ORDER BY g.id`, input.CharacterID, string(entities.GameStatusActive))
	if err != nil {
		return nil, sqlite.Classify(err, "failed to list sessions for character")
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "failed to scan game id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, sqlite.Classify(err, "failed to list sessions for character")
	}
	return &ListActiveForCharacterOutput{GameIDs: ids}, nil
}

func scanSession(row sqlite.Scanner) (*entities.GameSession, error) {
	var (
		session              entities.GameSession
		questJSON, status    string
		currentMapID         sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&session.ID, &session.InviteCode, &session.HostID, &session.HostEmail, &questJSON,
		&session.World, &session.StartingArea, &status, &currentMapID, &session.StateVersion,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questJSON), &session.Quest); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal quest")
	}
	session.Status = entities.GameStatus(status)
	session.CurrentMapID = currentMapID.String
	session.CreatedAt = sqlite.FromMillis(createdAt)
	session.UpdatedAt = sqlite.FromMillis(updatedAt)
	return &session, nil
}

func scanRosterEntry(row sqlite.Scanner) (*entities.RosterEntry, error) {
	var (
		entry    entities.RosterEntry
		joinedAt int64
	)
	if err := row.Scan(&entry.GameID, &entry.PlayerID, &entry.PlayerEmail, &entry.CharacterID, &joinedAt); err != nil {
		return nil, err
	}
	entry.JoinedAt = sqlite.FromMillis(joinedAt)
	return &entry, nil
}
