package rerouting_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/worker/rerouting"
)

const group = "test-group"

func eventMessage(t *testing.T, id string, event domain.ServiceChangedEvent) domain.StreamMessage {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return domain.StreamMessage{ID: id, Data: string(data)}
}

func newEventWorker(stream *MockStreamRepository, computer *MockScheduleComputer, retries int) *rerouting.ServiceEventWorker {
	return rerouting.NewServiceEventWorker(stream, computer, group, 10, retries, zap.NewNop())
}

func TestServiceEventWorker_Name(t *testing.T) {
	w := newEventWorker(new(MockStreamRepository), new(MockScheduleComputer), 1)
	assert.Equal(t, "service-events", w.Name())
	assert.Equal(t, group, w.ConsumerGroup())
}

func TestServiceEventWorker_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	stream := new(MockStreamRepository)
	computer := new(MockScheduleComputer)

	messages := []domain.StreamMessage{
		eventMessage(t, "1-0", domain.ServiceChangedEvent{ServiceID: 10, Change: domain.ServiceCreated}),
		{ID: "2-0", Data: "{not json"},
		eventMessage(t, "3-0", domain.ServiceChangedEvent{ServiceID: 11, Change: domain.ServiceDeleted}),
		eventMessage(t, "4-0", domain.ServiceChangedEvent{ServiceID: 12, Change: domain.ServiceUpdated}),
	}
	stream.On("ConsumeBatch", ctx, domain.StreamServiceChanged, group, mock.Anything, 10).Return(messages, nil)

	computer.On("ComputeAndSave", ctx, int64(10), (*domain.RoutePolicy)(nil)).
		Return(&domain.Service{ID: 10}, &domain.ScheduleEntry{ServiceID: 10}, nil)
	computer.On("ComputeAndSave", ctx, int64(12), (*domain.RoutePolicy)(nil)).
		Return(nil, nil, fmt.Errorf("route 5: %w", domain.ErrInvalidPolicy))

	stream.On("AckMessages", ctx, domain.StreamServiceChanged, group, []string{"1-0", "2-0", "3-0", "4-0"}).Return(nil)

	w := newEventWorker(stream, computer, 3)
	n, err := w.ProcessBatch(ctx)

	require.NoError(t, err)
	assert.Equal(t, 4, n)
	stream.AssertExpectations(t)
	computer.AssertNumberOfCalls(t, "ComputeAndSave", 2)
}

func TestServiceEventWorker_PassesEventPolicy(t *testing.T) {
	ctx := context.Background()
	stream := new(MockStreamRepository)
	computer := new(MockScheduleComputer)

	qty := 45
	policy := &domain.RoutePolicy{RouteID: 5, Activated: true, Kind: domain.PolicyKindTimeBeforeService,
		Offset: &domain.PolicyOffset{Quantity: &qty, Unit: domain.OffsetUnitMinutes}}
	stream.On("ConsumeBatch", ctx, domain.StreamServiceChanged, group, mock.Anything, 10).Return([]domain.StreamMessage{
		eventMessage(t, "1-0", domain.ServiceChangedEvent{ServiceID: 10, Change: domain.ServiceUpdated, Policy: policy}),
	}, nil)
	computer.On("ComputeAndSave", ctx, int64(10), mock.MatchedBy(func(p *domain.RoutePolicy) bool {
		return p != nil && p.RouteID == 5 && *p.Offset.Quantity == 45
	})).Return(nil, nil, nil)
	stream.On("AckMessages", ctx, domain.StreamServiceChanged, group, []string{"1-0"}).Return(nil)

	_, err := newEventWorker(stream, computer, 1).ProcessBatch(ctx)
	require.NoError(t, err)
	computer.AssertExpectations(t)
}

func TestServiceEventWorker_RetriesTransientErrors(t *testing.T) {
	ctx := context.Background()
	stream := new(MockStreamRepository)
	computer := new(MockScheduleComputer)

	stream.On("ConsumeBatch", ctx, domain.StreamServiceChanged, group, mock.Anything, 10).Return([]domain.StreamMessage{
		eventMessage(t, "1-0", domain.ServiceChangedEvent{ServiceID: 10, Change: domain.ServiceCreated}),
	}, nil)
	computer.On("ComputeAndSave", ctx, int64(10), (*domain.RoutePolicy)(nil)).Return(nil, nil, errors.New("db timeout")).Once()
	computer.On("ComputeAndSave", ctx, int64(10), (*domain.RoutePolicy)(nil)).Return(nil, nil, nil).Once()
	stream.On("AckMessages", ctx, domain.StreamServiceChanged, group, []string{"1-0"}).Return(nil)

	_, err := newEventWorker(stream, computer, 3).ProcessBatch(ctx)
	require.NoError(t, err)
	computer.AssertNumberOfCalls(t, "ComputeAndSave", 2)
}

func TestServiceEventWorker_EmptyQueue(t *testing.T) {
	ctx := context.Background()
	stream := new(MockStreamRepository)
	stream.On("ConsumeBatch", ctx, domain.StreamServiceChanged, group, mock.Anything, 10).Return([]domain.StreamMessage{}, nil)

	n, err := newEventWorker(stream, new(MockScheduleComputer), 1).ProcessBatch(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	stream.AssertNotCalled(t, "AckMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestServiceEventWorker_ConsumeError(t *testing.T) {
	ctx := context.Background()
	stream := new(MockStreamRepository)
	stream.On("ConsumeBatch", ctx, domain.StreamServiceChanged, group, mock.Anything, 10).Return(nil, errors.New("redis down"))

	_, err := newEventWorker(stream, new(MockScheduleComputer), 1).ProcessBatch(ctx)
	assert.Error(t, err)
}

func TestServiceEventWorker_StartStopsOnCancel(t *testing.T) {
	stream := new(MockStreamRepository)
	stream.On("CreateConsumerGroup", mock.Anything, domain.StreamServiceChanged, group).Return(nil)
	stream.On("ConsumeBatch", mock.Anything, domain.StreamServiceChanged, group, mock.Anything, 10).Return([]domain.StreamMessage{}, nil)

	w := newEventWorker(stream, new(MockScheduleComputer), 1)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- w.Start(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestServiceEventWorker_StartFailsWithoutGroup(t *testing.T) {
	stream := new(MockStreamRepository)
	stream.On("CreateConsumerGroup", mock.Anything, domain.StreamServiceChanged, group).Return(errors.New("NOPERM"))

	err := newEventWorker(stream, new(MockScheduleComputer), 1).Start(context.Background())
	assert.Error(t, err)
}
