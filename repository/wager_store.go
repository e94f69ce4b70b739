package repository

import (
	"fmt"
	"sort"
	"sync"

	"betbot/models"
)

const defaultHistoryLimit = 500

// WagerStore owns live wagers and a bounded archive of finished ones.
// Update holds the store lock for the whole callback, so transitions on
// the same wager never interleave.
type WagerStore struct {
	mu           sync.Mutex
	nextID       int64
	wagers       map[int64]*models.Wager
	history      []models.Wager
	historyLimit int
}

// NewWagerStore creates an empty wager store
func NewWagerStore() *WagerStore {
	return &WagerStore{
		nextID:       1,
		wagers:       make(map[int64]*models.Wager),
		historyLimit: defaultHistoryLimit,
	}
}

// Create assigns the next id and stores the wager
func (s *WagerStore) Create(w models.Wager) models.Wager {
	s.mu.Lock()
	defer s.mu.Unlock()

	w.ID = s.nextID
	s.nextID++
	stored := w
	s.wagers[w.ID] = &stored
	return w
}

// Get returns a copy of a live wager
func (s *WagerStore) Get(id int64) (models.Wager, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wagers[id]
	if !ok {
		return models.Wager{}, false
	}
	return *w, true
}

// Update runs fn on a working copy of the wager under the store lock. The
// copy replaces the stored wager only when fn returns nil, so an error
// rolls back every field fn touched. A wager left in a terminal state is
// removed from the live set and archived.
func (s *WagerStore) Update(id int64, fn func(w *models.Wager) error) (models.Wager, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.wagers[id]
	if !ok {
		return models.Wager{}, fmt.Errorf("%w: wager %d", models.ErrNotFound, id)
	}

	working := *current
	if err := fn(&working); err != nil {
		return working, err
	}

	if working.State.IsTerminal() {
		delete(s.wagers, id)
		s.archive(working)
	} else {
		s.wagers[id] = &working
	}
	return working, nil
}

func (s *WagerStore) archive(w models.Wager) {
	s.history = append(s.history, w)
	if over := len(s.history) - s.historyLimit; over > 0 {
		s.history = append([]models.Wager(nil), s.history[over:]...)
	}
}

// Live returns the wagers that have not reached a terminal state
func (s *WagerStore) Live() []models.Wager {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Wager, 0, len(s.wagers))
	for _, w := range s.wagers {
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// History returns up to limit archived wagers, most recent first
func (s *WagerStore) History(limit int) []models.Wager {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.history) {
		limit = len(s.history)
	}
	out := make([]models.Wager, 0, limit)
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.history[i])
	}
	return out
}
