package repository

import (
	"sync"

	"betbot/models"
)

// ChannelStore keeps the required channels in insertion order
type ChannelStore struct {
	mu       sync.RWMutex
	order    []string
	channels map[string]models.Channel
}

func NewChannelStore() *ChannelStore {
	return &ChannelStore{channels: make(map[string]models.Channel)}
}

// Put adds a channel or replaces the link of an existing handle.
// Returns true when the handle is new.
func (s *ChannelStore) Put(channel models.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, exists := s.channels[channel.Handle]
	if !exists {
		s.order = append(s.order, channel.Handle)
	}
	s.channels[channel.Handle] = channel
	return !exists
}

// Remove deletes a channel, reporting whether it was present
func (s *ChannelStore) Remove(handle string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[handle]; !ok {
		return false
	}
	delete(s.channels, handle)
	for i, h := range s.order {
		if h == handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// List returns the channels in the order they were added
func (s *ChannelStore) List() []models.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Channel, 0, len(s.order))
	for _, h := range s.order {
		out = append(out, s.channels[h])
	}
	return out
}
