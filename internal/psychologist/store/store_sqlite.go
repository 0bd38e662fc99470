package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/validation"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
	pstrings "github.com/MindFlow-Startup/MindFlow/pkg/platform/strings"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteStore persists records in a single SQLite file. Specialties are kept
// as one comma-delimited column; timestamps as RFC 3339 text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
// Use ":memory:" for a throwaway database.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes
	// writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return db, nil
}

func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

const sqliteColumns = `id, crp, email, full_name, birth_date, specialties, created_at, updated_at`

func (s *SQLiteStore) Create(ctx context.Context, p *models.Psychologist) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO psychologists (`+sqliteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.CRP, p.Email, p.FullName,
		p.BirthDate.Format(models.DateLayout),
		pstrings.JoinList(p.Specialties, validation.SpecialtySeparator),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create psychologist: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create psychologist: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*models.Psychologist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM psychologists
		ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list psychologists: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Psychologist, 0)
	for rows.Next() {
		p, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("scan psychologist: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate psychologists: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) FindByID(ctx context.Context, recordID id.PsychologistID) (*models.Psychologist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+sqliteColumns+`
		FROM psychologists
		WHERE id = ?`, recordID.String())
	p, err := scanSQLite(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find psychologist by id: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) Update(ctx context.Context, p *models.Psychologist) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE psychologists
		SET crp = ?, email = ?, full_name = ?, birth_date = ?,
		    specialties = ?, updated_at = ?
		WHERE id = ?`,
		p.CRP, p.Email, p.FullName, p.BirthDate.Format(models.DateLayout),
		pstrings.JoinList(p.Specialties, validation.SpecialtySeparator),
		formatTime(p.UpdatedAt), p.ID.String(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update psychologist: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update psychologist: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, recordID id.PsychologistID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM psychologists WHERE id = ?`, recordID.String())
	if err != nil {
		return fmt.Errorf("delete psychologist: %w", err)
	}
	return requireAffected(res)
}

func scanSQLite(row rowScanner) (*models.Psychologist, error) {
	var (
		p                    models.Psychologist
		rawID                string
		birthDate            string
		specialties          string
		createdAt, updatedAt string
	)
	if err := row.Scan(&rawID, &p.CRP, &p.Email, &p.FullName, &birthDate,
		&specialties, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	recordID, err := id.ParsePsychologistID(rawID)
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	p.ID = recordID
	if p.BirthDate, err = time.Parse(models.DateLayout, birthDate); err != nil {
		return nil, fmt.Errorf("parse birth date: %w", err)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	p.Specialties = pstrings.SplitList(specialties, validation.SpecialtySeparator)
	return &p, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
