package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
)

// PostgresStore persists records in PostgreSQL. It works with either the pgx
// stdlib driver or lib/pq; specialties are a text[] column.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store. The schema is owned by
// the migrations in internal/platform/postgres.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const pgColumns = `id, crp, email, full_name, birth_date, specialties, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, p *models.Psychologist) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO psychologists (`+pgColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(p.ID), p.CRP, p.Email, p.FullName, p.BirthDate,
		pq.Array(p.Specialties), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create psychologist: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create psychologist: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Psychologist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pgColumns+`
		FROM psychologists
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list psychologists: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Psychologist, 0)
	for rows.Next() {
		p, err := scanPostgres(rows)
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

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.PsychologistID) (*models.Psychologist, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+pgColumns+`
		FROM psychologists
		WHERE id = $1`, uuid.UUID(recordID))
	p, err := scanPostgres(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find psychologist by id: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) Update(ctx context.Context, p *models.Psychologist) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE psychologists
		SET crp = $2, email = $3, full_name = $4, birth_date = $5,
		    specialties = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(p.ID), p.CRP, p.Email, p.FullName, p.BirthDate,
		pq.Array(p.Specialties), p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update psychologist: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("update psychologist: %w", err)
	}
	return requireAffected(res)
}

func (s *PostgresStore) Delete(ctx context.Context, recordID id.PsychologistID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM psychologists WHERE id = $1`, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete psychologist: %w", err)
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostgres(row rowScanner) (*models.Psychologist, error) {
	var (
		p           models.Psychologist
		rawID       uuid.UUID
		specialties []string
	)
	if err := row.Scan(&rawID, &p.CRP, &p.Email, &p.FullName, &p.BirthDate,
		pq.Array(&specialties), &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.ID = id.PsychologistID(rawID)
	p.BirthDate = p.BirthDate.UTC()
	p.Specialties = specialties
	return &p, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
