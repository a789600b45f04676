package sqlitemigrate_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/suite"
	_ "modernc.org/sqlite"

	"github.com/KirkDiggler/tabletop-api/internal/storage/sqlitemigrate"
)

type MigrateTestSuite struct {
	suite.Suite
	db  *sql.DB
	ctx context.Context
}

func TestMigrateSuite(t *testing.T) {
	suite.Run(t, new(MigrateTestSuite))
}

func (s *MigrateTestSuite) SetupTest() {
	var err error
	s.db, err = sql.Open("sqlite", filepath.Join(s.T().TempDir(), "migrate.db"))
	s.Require().NoError(err)
	s.ctx = context.Background()
}

func (s *MigrateTestSuite) TearDownTest() {
	_ = s.db.Close()
}

func (s *MigrateTestSuite) count(query string) int {
	var n int
	s.Require().NoError(s.db.QueryRow(query).Scan(&n))
	return n
}

func (s *MigrateTestSuite) TestAppliesOnce() {
	migrations := fstest.MapFS{
		"001_create.sql": &fstest.MapFile{Data: []byte("-- +migrate Up\nCREATE TABLE items(id TEXT PRIMARY KEY);\n-- +migrate Down\nDROP TABLE items;")},
		"002_seed.sql":   &fstest.MapFile{Data: []byte("INSERT INTO items(id) VALUES ('a');")},
	}

	s.Require().NoError(sqlitemigrate.Apply(s.ctx, s.db, migrations, ""))
	s.Require().NoError(sqlitemigrate.Apply(s.ctx, s.db, migrations, ""))

	s.Assert().Equal(2, s.count("SELECT COUNT(*) FROM schema_migrations"))
	s.Assert().Equal(1, s.count("SELECT COUNT(*) FROM items"))
}

func (s *MigrateTestSuite) TestFailedMigrationIsNotRecorded() {
	bad := fstest.MapFS{
		"001_bad.sql": &fstest.MapFile{Data: []byte("CREAT TABLE things(id INT);")},
	}

	s.Require().Error(sqlitemigrate.Apply(s.ctx, s.db, bad, ""))
	s.Assert().Equal(0, s.count("SELECT COUNT(*) FROM schema_migrations"))
}

func (s *MigrateTestSuite) TestExtractUp() {
	s.Assert().Equal("\nCREATE TABLE a(id INT);\n", sqlitemigrate.ExtractUp("-- +migrate Up\nCREATE TABLE a(id INT);\n-- +migrate Down\nDROP TABLE a;"))
	s.Assert().Equal("SELECT 1;", sqlitemigrate.ExtractUp("SELECT 1;"))
}
