package service

import (
	"context"
	"sync"
	"time"

	"betbot/models"

	"github.com/stretchr/testify/mock"
)

// MockScheduler is a mock implementation of Scheduler. Scheduled callbacks
// are kept so tests can fire them by tag.
type MockScheduler struct {
	mock.Mock

	mu   sync.Mutex
	jobs map[string]func()
}

func (m *MockScheduler) ScheduleOnce(tag string, after time.Duration, fn func()) error {
	args := m.Called(tag, after, fn)
	if args.Error(0) == nil {
		m.mu.Lock()
		if m.jobs == nil {
			m.jobs = make(map[string]func())
		}
		m.jobs[tag] = fn
		m.mu.Unlock()
	}
	return args.Error(0)
}

func (m *MockScheduler) Cancel(tag string) {
	m.Called(tag)
	m.mu.Lock()
	delete(m.jobs, tag)
	m.mu.Unlock()
}

// Job returns the callback registered under tag, even if it was cancelled
// after being captured by the caller
func (m *MockScheduler) Job(tag string) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn, ok := m.jobs[tag]
	return fn, ok
}

// MockMessenger is a mock implementation of Messenger
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, msg models.OutboundMessage) (models.MessageRef, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(models.MessageRef), args.Error(1)
}

func (m *MockMessenger) Edit(ctx context.Context, ref models.MessageRef, text string, buttons [][]models.Button) error {
	args := m.Called(ctx, ref, text, buttons)
	return args.Error(0)
}

func (m *MockMessenger) Delete(ctx context.Context, ref models.MessageRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockMessenger) AnswerCallback(ctx context.Context, answer models.CallbackAnswer) error {
	args := m.Called(ctx, answer)
	return args.Error(0)
}

// MockMembershipProvider is a mock implementation of MembershipProvider
type MockMembershipProvider struct {
	mock.Mock
}

func (m *MockMembershipProvider) IsMember(ctx context.Context, channel models.Channel, userID int64) (bool, error) {
	args := m.Called(ctx, channel, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipProvider) Verify(ctx context.Context, channel models.Channel) error {
	args := m.Called(ctx, channel)
	return args.Error(0)
}

// MockRandomSource is a mock implementation of RandomSource
type MockRandomSource struct {
	mock.Mock
}

func (m *MockRandomSource) Intn(n int) (int, error) {
	args := m.Called(n)
	return args.Int(0), args.Error(1)
}
