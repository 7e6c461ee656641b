package appointments

import (
	"context"
	"fmt"
	"sync"

	"github.com/wolfman30/doctorhome/internal/clock"
	"github.com/wolfman30/doctorhome/internal/directory"
)

// InMemoryStore keeps appointments in a map guarded by a single lock, so
// inserts and updates are atomic with respect to each other.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Appointment
	clock   clock.Clock
}

// NewInMemoryStore creates an empty store. A nil clock uses the system clock.
func NewInMemoryStore(c clock.Clock) *InMemoryStore {
	if c == nil {
		c = clock.System()
	}
	return &InMemoryStore{
		records: make(map[string]*Appointment),
		clock:   c,
	}
}

// Insert validates and stores a new record.
func (s *InMemoryStore) Insert(ctx context.Context, record *Appointment) (*Appointment, error) {
	a, err := prepareInsert(record, s.clock.Now())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[a.ID]; exists {
		return nil, fmt.Errorf("%w: duplicate id %s", ErrValidation, a.ID)
	}
	s.records[a.ID] = a
	return a.Clone(), nil
}

// Get returns a copy of the record.
func (s *InMemoryStore) Get(ctx context.Context, id string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

// Update applies mutate under the write lock.
func (s *InMemoryStore) Update(ctx context.Context, id string, mutate Mutator) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	next, err := applyMutation(current, mutate, s.clock.Now())
	if err != nil {
		return nil, err
	}
	s.records[id] = next
	return next.Clone(), nil
}

// ListByUser returns a snapshot of the user's appointments by scheduled time.
func (s *InMemoryStore) ListByUser(ctx context.Context, userID string, role directory.Role) ([]*Appointment, error) {
	if err := validateListArgs(userID, role); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]*Appointment, 0)
	for _, a := range s.records {
		if a.involves(userID, role) {
			out = append(out, a.Clone())
		}
	}
	s.mu.RUnlock()

	sortBySchedule(out)
	return out, nil
}
