package audit

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryStore keeps events in process; used in tests and single-node runs.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListAll returns a copy of every recorded event in append order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events...), nil
}

// ListByPsychologist returns the events recorded for one record.
func (s *InMemoryStore) ListByPsychologist(_ context.Context, psychologistID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.events {
		if e.PsychologistID == psychologistID {
			out = append(out, e)
		}
	}
	return out, nil
}

// LogStore writes events to a structured logger. Used when no broker is
// configured.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"psychologist_id", event.PsychologistID,
		"crp", event.CRP,
		"fields", event.Fields,
		"request_id", event.RequestID,
		"timestamp", event.Timestamp,
	)
	return nil
}
