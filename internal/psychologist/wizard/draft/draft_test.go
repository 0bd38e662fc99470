package draft

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/wizard"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
)

type draftStore interface {
	Save(ctx context.Context, state wizard.State) error
	Load(ctx context.Context, draftID id.DraftID) (wizard.State, error)
	Delete(ctx context.Context, draftID id.DraftID) error
	Lock(ctx context.Context, draftID id.DraftID) (Unlock, error)
}

// storeContract is shared by the in-memory and Redis suites.
type storeContract struct {
	suite.Suite
	store draftStore
	ctx   context.Context
}

func sampleState() wizard.State {
	return wizard.State{
		DraftID:   id.NewDraftID(),
		Step:      wizard.StepProfessional,
		Direction: wizard.DirectionForward,
		Submission: models.Submission{
			FullName:    "Ana Souza",
			Email:       "ana@example.com",
			Specialties: []string{"TCC"},
		},
		Failures:  map[string]string{"crp": "crp is required"},
		UpdatedAt: time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC),
	}
}

func (s *storeContract) TestSaveAndLoad() {
	state := sampleState()
	s.Require().NoError(s.store.Save(s.ctx, state))

	got, err := s.store.Load(s.ctx, state.DraftID)
	s.Require().NoError(err)
	s.Equal(state.DraftID, got.DraftID)
	s.Equal(state.Step, got.Step)
	s.Equal(state.Submission, got.Submission)
	s.Equal(state.Failures, got.Failures)
	s.True(state.UpdatedAt.Equal(got.UpdatedAt))
}

func (s *storeContract) TestLoadUnknown() {
	_, err := s.store.Load(s.ctx, id.NewDraftID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *storeContract) TestDelete() {
	state := sampleState()
	s.Require().NoError(s.store.Save(s.ctx, state))
	s.Require().NoError(s.store.Delete(s.ctx, state.DraftID))

	_, err := s.store.Load(s.ctx, state.DraftID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, state.DraftID), sentinel.ErrNotFound)
}

func (s *storeContract) TestLockIsExclusive() {
	draftID := id.NewDraftID()

	unlock, err := s.store.Lock(s.ctx, draftID)
	s.Require().NoError(err)

	_, err = s.store.Lock(s.ctx, draftID)
	s.ErrorIs(err, sentinel.ErrConflict, "second holder must be refused")

	other, err := s.store.Lock(s.ctx, id.NewDraftID())
	s.Require().NoError(err, "locks are per draft")
	other()

	unlock()
	unlock()

	again, err := s.store.Lock(s.ctx, draftID)
	s.Require().NoError(err, "released lock can be taken again")
	again()
}

func (s *storeContract) TestLockOnlyOneOfManyWins() {
	draftID := id.NewDraftID()
	const callers = 16

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Lock(s.ctx, draftID); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, winners)
}

type InMemoryStoreSuite struct {
	storeContract
}

func TestInMemoryStoreSuite(t *testing.T) {
	s := new(InMemoryStoreSuite)
	s.ctx = context.Background()
	s.store = NewInMemory(time.Minute)
	suite.Run(t, s)
}

func TestInMemoryDraftsExpire(t *testing.T) {
	store := NewInMemory(20 * time.Millisecond)
	state := sampleState()
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatal(err)
	}
	time.Sleep(40 * time.Millisecond)
	if _, err := store.Load(context.Background(), state.DraftID); err != sentinel.ErrNotFound {
		t.Fatalf("expected expired draft, got %v", err)
	}
}
