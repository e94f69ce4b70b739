package repository

import (
	"fmt"
	"sort"
	"sync"

	"betbot/models"
)

// DepositStore owns deposit requests. Resolved requests are kept for audit.
type DepositStore struct {
	mu       sync.Mutex
	nextID   int64
	deposits map[int64]*models.Deposit
}

// NewDepositStore creates an empty deposit store
func NewDepositStore() *DepositStore {
	return &DepositStore{
		nextID:   1,
		deposits: make(map[int64]*models.Deposit),
	}
}

// Create assigns the next id and stores the deposit
func (s *DepositStore) Create(d models.Deposit) models.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()

	d.ID = s.nextID
	s.nextID++
	stored := d
	s.deposits[d.ID] = &stored
	return d
}

func (s *DepositStore) Get(id int64) (models.Deposit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deposits[id]
	if !ok {
		return models.Deposit{}, false
	}
	return *d, true
}

// Update runs fn on a working copy under the store lock and saves it when
// fn returns nil
func (s *DepositStore) Update(id int64, fn func(d *models.Deposit) error) (models.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.deposits[id]
	if !ok {
		return models.Deposit{}, fmt.Errorf("%w: transaction %d", models.ErrNotFound, id)
	}

	working := *current
	if err := fn(&working); err != nil {
		return working, err
	}
	s.deposits[id] = &working
	return working, nil
}

// ListByStatus returns deposits with the given status ordered by id
func (s *DepositStore) ListByStatus(status models.DepositStatus) []models.Deposit {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Deposit
	for _, d := range s.deposits {
		if d.Status == status {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CountByStatus counts deposits with the given status
func (s *DepositStore) CountByStatus(status models.DepositStatus) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, d := range s.deposits {
		if d.Status == status {
			n++
		}
	}
	return n
}
