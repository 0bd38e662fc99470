package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SQLiteStoreSuite struct {
	contractSuite
	db *sql.DB
}

func TestSQLiteStoreSuite(t *testing.T) {
	s := new(SQLiteStoreSuite)
	s.newStore = func() contractStore {
		db, err := OpenSQLite(context.Background(), ":memory:")
		require.NoError(t, err)
		s.db = db
		return NewSQLite(db)
	}
	suite.Run(t, s)
}

func (s *SQLiteStoreSuite) TearDownTest() {
	if s.db != nil {
		s.NoError(s.db.Close())
	}
}

func (s *SQLiteStoreSuite) TestSpecialtiesStoredAsDelimitedText() {
	p := s.record("flat@example.com")
	s.Require().NoError(s.store.Create(s.ctx, p))

	var raw string
	err := s.db.QueryRowContext(s.ctx, `SELECT specialties FROM psychologists WHERE id = ?`, p.ID.String()).Scan(&raw)
	s.Require().NoError(err)
	s.Equal("Psicologia Clínica,Terapia de casal", raw)
}

func TestOpenSQLiteFileIsReusable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "directory.db")

	db, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reapplying the schema on an existing file must succeed.
	db, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}
