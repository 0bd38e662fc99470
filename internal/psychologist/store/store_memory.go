// Package store holds the persistence adapters for directory records. Every
// adapter returns sentinel.ErrNotFound for unknown ids and
// sentinel.ErrConflict when a write would duplicate another record's email.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/MindFlow-Startup/MindFlow/internal/psychologist/models"
	id "github.com/MindFlow-Startup/MindFlow/pkg/domain"
	"github.com/MindFlow-Startup/MindFlow/pkg/platform/sentinel"
)

// InMemoryStore keeps records in process memory. Listing follows insertion
// order.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.PsychologistID]*models.Psychologist
	byEmail map[string]id.PsychologistID
	order   []id.PsychologistID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[id.PsychologistID]*models.Psychologist),
		byEmail: make(map[string]id.PsychologistID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *models.Psychologist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[p.ID]; ok {
		return fmt.Errorf("psychologist %s: %w", p.ID, sentinel.ErrConflict)
	}
	if _, taken := s.byEmail[p.Email]; taken {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	s.records[p.ID] = p.Clone()
	s.byEmail[p.Email] = p.ID
	s.order = append(s.order, p.ID)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.Psychologist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Psychologist, 0, len(s.order))
	for _, recordID := range s.order {
		out = append(out, s.records[recordID].Clone())
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recordID id.PsychologistID) (*models.Psychologist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) Update(_ context.Context, p *models.Psychologist) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if owner, taken := s.byEmail[p.Email]; taken && owner != p.ID {
		return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
	}
	delete(s.byEmail, current.Email)
	s.byEmail[p.Email] = p.ID
	s.records[p.ID] = p.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, recordID id.PsychologistID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, recordID)
	delete(s.byEmail, current.Email)
	for i, existing := range s.order {
		if existing == recordID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}
