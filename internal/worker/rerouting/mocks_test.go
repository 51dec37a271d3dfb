package rerouting_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rerouting-service/internal/domain"
)

// MockDueSelector is a mock of DueSelector
type MockDueSelector struct {
	mock.Mock
}

func (m *MockDueSelector) DueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx, instant)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

func (m *MockDueSelector) Overdue(ctx context.Context, instant time.Time, window time.Duration) ([]domain.ScheduleEntry, error) {
	args := m.Called(ctx, instant, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScheduleEntry), args.Error(1)
}

// MockExecutor is a mock of Executor
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ReroutingResult, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReroutingResult), args.Error(1)
}

// MockScheduleComputer is a mock of ScheduleComputer
type MockScheduleComputer struct {
	mock.Mock
}

func (m *MockScheduleComputer) ComputeAndSave(ctx context.Context, serviceID int64, policy *domain.RoutePolicy) (*domain.Service, *domain.ScheduleEntry, error) {
	args := m.Called(ctx, serviceID, policy)
	var (
		service *domain.Service
		entry   *domain.ScheduleEntry
	)
	if v := args.Get(0); v != nil {
		service = v.(*domain.Service)
	}
	if v := args.Get(1); v != nil {
		entry = v.(*domain.ScheduleEntry)
	}
	return service, entry, args.Error(2)
}

// MockStreamRepository is a mock of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, maxCount int) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	args := m.Called(ctx, stream, group, messageID)
	return args.Error(0)
}

func (m *MockStreamRepository) AckMessages(ctx context.Context, stream, group string, messageIDs []string) error {
	args := m.Called(ctx, stream, group, messageIDs)
	return args.Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	args := m.Called(ctx, stream, group)
	return args.Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}
