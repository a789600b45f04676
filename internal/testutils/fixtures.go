package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/KirkDiggler/tabletop-api/internal/entities"
	"github.com/KirkDiggler/tabletop-api/internal/pkg/clock"
	"github.com/KirkDiggler/tabletop-api/internal/redis"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/characters"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/gamelog"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/games"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/maps"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/npcs"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/rollsession"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/snapshot"
	"github.com/KirkDiggler/tabletop-api/internal/repositories/tokens"
	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlite"
)

// FixtureTime is the creation time stamped on seeded rows
var FixtureTime = time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)

// Stores bundles every repository over one temp database and one miniredis
type Stores struct {
	DB        *sqlite.DB
	Redis     redis.Client
	Miniredis *miniredis.Miniredis

	Games        games.Repository
	Log          gamelog.Repository
	Characters   characters.Repository
	Maps         maps.Repository
	Tokens       tokens.Repository
	NPCs         npcs.Repository
	RollSessions rollsession.Repository
	Snapshots    snapshot.Repository
}

// NewStores wires all repositories for an orchestrator test
func NewStores(t *testing.T, clk clock.Clock) *Stores {
	t.Helper()

	db := CreateTestDB(t)
	client, mr := CreateTestRedisClient(t)
	st := &Stores{DB: db, Redis: client, Miniredis: mr}

	var err error
	st.Games, err = games.NewSQLiteRepository(&games.Config{DB: db})
	require.NoError(t, err)
	st.Log, err = gamelog.NewSQLiteRepository(&gamelog.Config{DB: db})
	require.NoError(t, err)
	st.Characters, err = characters.NewSQLiteRepository(&characters.Config{DB: db})
	require.NoError(t, err)
	st.Maps, err = maps.NewSQLiteRepository(&maps.Config{DB: db})
	require.NoError(t, err)
	st.Tokens, err = tokens.NewSQLiteRepository(&tokens.Config{DB: db})
	require.NoError(t, err)
	st.NPCs, err = npcs.NewSQLiteRepository(&npcs.Config{DB: db})
	require.NoError(t, err)
	st.RollSessions, err = rollsession.NewRedisRepository(&rollsession.Config{Client: client, Clock: clk})
	require.NoError(t, err)
	st.Snapshots, err = snapshot.NewRedisRepository(&snapshot.Config{Client: client})
	require.NoError(t, err)

	return st
}

// SeedSession creates an active session hosted by hostID
func (st *Stores) SeedSession(t *testing.T, id, code, hostID string) *entities.GameSession {
	t.Helper()

	out, err := st.Games.Create(context.Background(), games.CreateInput{Session: &entities.GameSession{
		ID:         id,
		InviteCode: code,
		HostID:     hostID,
		HostEmail:  hostID + "@example.com",
		Quest:      entities.Quest{Title: "The Sunken Keep", Objectives: []string{"Find the bell"}},
		World:      "Greywater",
		Status:     entities.GameStatusActive,
		CreatedAt:  FixtureTime,
		UpdatedAt:  FixtureTime,
	}})
	require.NoError(t, err)
	return out.Session
}

// SeedCharacter stores c as-is
func (st *Stores) SeedCharacter(t *testing.T, c *entities.Character) *entities.Character {
	t.Helper()

	out, err := st.Characters.Create(context.Background(), characters.CreateInput{Character: c})
	require.NoError(t, err)
	return out.Character
}

// Join puts a player and character on the roster
func (st *Stores) Join(t *testing.T, gameID, playerID, characterID string) {
	t.Helper()

	_, err := st.Games.UpsertPlayer(context.Background(), games.UpsertPlayerInput{Entry: &entities.RosterEntry{
		GameID:      gameID,
		PlayerID:    playerID,
		PlayerEmail: playerID + "@example.com",
		CharacterID: characterID,
		JoinedAt:    FixtureTime,
	}})
	require.NoError(t, err)
}

// SeedMap creates a fully tiled grass map, walls at blocked, and makes it
// the session's current map
func (st *Stores) SeedMap(t *testing.T, session *entities.GameSession, mapID string, width, height int, blocked ...entities.Point) *entities.Map {
	t.Helper()
	ctx := context.Background()

	m := &entities.Map{
		ID:             mapID,
		GameID:         session.ID,
		Name:           "Test field",
		Width:          width,
		Height:         height,
		DefaultTerrain: entities.TerrainGrass,
		CreatedAt:      FixtureTime,
	}
	_, err := st.Maps.CreateMap(ctx, maps.CreateMapInput{Map: m})
	require.NoError(t, err)

	walls := make(map[entities.Point]bool, len(blocked))
	for _, p := range blocked {
		walls[p] = true
	}
	tiles := make([]*entities.MapTile, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tile := &entities.MapTile{X: x, Y: y, TerrainType: entities.TerrainGrass}
			if walls[entities.Point{X: x, Y: y}] {
				tile.TerrainType = entities.TerrainWall
				tile.IsBlocked = true
			}
			tiles = append(tiles, tile)
		}
	}
	_, err = st.Maps.BulkCreateTiles(ctx, maps.BulkCreateTilesInput{MapID: mapID, Tiles: tiles})
	require.NoError(t, err)

	session.CurrentMapID = mapID
	_, err = st.Games.Update(ctx, games.UpdateInput{Session: session})
	require.NoError(t, err)
	return m
}

// SeedToken places a token without walkability checks
func (st *Stores) SeedToken(t *testing.T, token *entities.MapToken) *entities.MapToken {
	t.Helper()

	if token.Facing == "" {
		token.Facing = entities.FacingSouth
	}
	if token.Status == "" {
		token.Status = entities.TokenStatusActive
	}
	token.IsVisible = true
	token.CreatedAt = FixtureTime
	token.UpdatedAt = FixtureTime
	out, err := st.Tokens.Create(context.Background(), tokens.CreateInput{Token: token})
	require.NoError(t, err)
	return out.Token
}

// StateVersion reads the stored version of a session
func (st *Stores) StateVersion(t *testing.T, gameID string) int64 {
	t.Helper()

	out, err := st.Games.GetState(context.Background(), games.GetStateInput{GameID: gameID})
	require.NoError(t, err)
	return out.State.Version
}

// Turn reads the stored turn state of a session
func (st *Stores) Turn(t *testing.T, gameID string) entities.TurnState {
	t.Helper()

	out, err := st.Games.GetState(context.Background(), games.GetStateInput{GameID: gameID})
	require.NoError(t, err)
	return out.State.Turn
}

// SetTurn commits turn as the session's turn state, bumping the version
func (st *Stores) SetTurn(t *testing.T, gameID string, turn entities.TurnState) int64 {
	t.Helper()

	out, err := st.Games.CommitState(context.Background(), games.CommitStateInput{
		GameID:          gameID,
		ExpectedVersion: st.StateVersion(t, gameID),
		Turn:            &turn,
		UpdatedAt:       FixtureTime,
	})
	require.NoError(t, err)
	return out.Version
}
