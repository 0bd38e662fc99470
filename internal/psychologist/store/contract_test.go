package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
)

type contractStore interface {
	Create(ctx context.Context, p *models.Psychologist) error
	List(ctx context.Context) ([]*models.Psychologist, error)
	FindByID(ctx context.Context, id id.PsychologistID) (*models.Psychologist, error)
	Update(ctx context.Context, p *models.Psychologist) error
	Delete(ctx context.Context, id id.PsychologistID) error
}

// contractSuite holds the behavior every store adapter must share. Adapter
// suites embed it and set newStore.
type contractSuite struct {
	suite.Suite
	newStore func() contractStore
	store    contractStore
	ctx      context.Context
	clock    time.Time
}

func (s *contractSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	s.store = s.newStore()
}

func (s *contractSuite) record(email string) *models.Psychologist {
	s.clock = s.clock.Add(time.Second)
	return &models.Psychologist{
		ID:          id.NewPsychologistID(),
		CRP:         "06/12345-DF",
		Email:       email,
		FullName:    "Ana Souza",
		BirthDate:   time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		Specialties: []string{"Psicologia Clínica", "Terapia de casal"},
		CreatedAt:   s.clock,
		UpdatedAt:   s.clock,
	}
}

func sameRecord(want, got *models.Psychologist) string {
	return cmp.Diff(want, got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }))
}

func (s *contractSuite) TestCreateAndFind() {
	p := s.record("ana@example.com")
	s.Require().NoError(s.store.Create(s.ctx, p))

	got, err := s.store.FindByID(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(sameRecord(p, got))
}

func (s *contractSuite) TestFindUnknownIsNotFound() {
	_, err := s.store.FindByID(s.ctx, id.NewPsychologistID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *contractSuite) TestDuplicateEmailIsConflict() {
	s.Require().NoError(s.store.Create(s.ctx, s.record("ana@example.com")))

	err := s.store.Create(s.ctx, s.record("ana@example.com"))
	s.ErrorIs(err, sentinel.ErrConflict)

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *contractSuite) TestListKeepsCreationOrder() {
	first := s.record("a@example.com")
	second := s.record("b@example.com")
	third := s.record("c@example.com")
	for _, p := range []*models.Psychologist{first, second, third} {
		s.Require().NoError(s.store.Create(s.ctx, p))
	}

	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(first.ID, all[0].ID)
	s.Equal(second.ID, all[1].ID)
	s.Equal(third.ID, all[2].ID)
}

func (s *contractSuite) TestListEmpty() {
	all, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.NotNil(all)
	s.Empty(all)
}

func (s *contractSuite) TestUpdate() {
	s.Run("replaces stored fields", func() {
		p := s.record("update@example.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		changed := p.Clone()
		changed.FullName = "Ana Maria Souza"
		changed.Email = "ana.maria@example.com"
		changed.Specialties = []string{"Neuropsicologia"}
		changed.UpdatedAt = p.UpdatedAt.Add(time.Hour)
		s.Require().NoError(s.store.Update(s.ctx, changed))

		got, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Empty(sameRecord(changed, got))
	})

	s.Run("keeping its own email is not a conflict", func() {
		p := s.record("self@example.com")
		s.Require().NoError(s.store.Create(s.ctx, p))

		changed := p.Clone()
		changed.FullName = "Someone Else"
		s.NoError(s.store.Update(s.ctx, changed))
	})

	s.Run("taking another record's email is a conflict", func() {
		owner := s.record("owner@example.com")
		other := s.record("other@example.com")
		s.Require().NoError(s.store.Create(s.ctx, owner))
		s.Require().NoError(s.store.Create(s.ctx, other))

		changed := other.Clone()
		changed.Email = owner.Email
		s.ErrorIs(s.store.Update(s.ctx, changed), sentinel.ErrConflict)

		got, err := s.store.FindByID(s.ctx, other.ID)
		s.Require().NoError(err)
		s.Equal("other@example.com", got.Email)
	})

	s.Run("unknown id is not found", func() {
		s.ErrorIs(s.store.Update(s.ctx, s.record("ghost@example.com")), sentinel.ErrNotFound)
	})
}

func (s *contractSuite) TestDelete() {
	p := s.record("gone@example.com")
	s.Require().NoError(s.store.Create(s.ctx, p))

	s.Require().NoError(s.store.Delete(s.ctx, p.ID))
	_, err := s.store.FindByID(s.ctx, p.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(s.ctx, p.ID), sentinel.ErrNotFound)

	// The email is free again.
	s.NoError(s.store.Create(s.ctx, s.record("gone@example.com")))
}

func (s *contractSuite) TestConcurrentDuplicateEmail() {
	const goroutines = 20
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	records := make([]*models.Psychologist, goroutines)
	for i := range records {
		records[i] = s.record("race@example.com")
	}

	for i := range goroutines {
		wg.Add(1)
		go func(p *models.Psychologist) {
			defer wg.Done()
			err := s.store.Create(s.ctx, p)
			switch {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			default:
				panic(fmt.Sprintf("unexpected error: %v", err))
			}
		}(records[i])
	}
	wg.Wait()

	s.Equal(int32(1), created.Load())
	s.Equal(int32(goroutines-1), conflicts.Load())
}
