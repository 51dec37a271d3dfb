package usecase_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/usecase"
)

var (
	tickNow = time.Date(2024, 6, 1, 7, 30, 0, 0, time.UTC)
	idemKey = uuid.MustParse("0d9f6b1a-3c4e-4f7a-8b2d-5e6f7a8b9c0d")
	lockTTL = 5 * time.Minute
)

type reroutingFixture struct {
	services    *MockServiceRepository
	schedules   *MockScheduleRepository
	routing     *MockRoutingRepository
	expeditions *MockExpeditionRepository
	locks       *MockLockRepository
	streams     *MockStreamRepository
	metrics     *recorder
	uc          *usecase.ReroutingUseCase
}

func newReroutingFixture() *reroutingFixture {
	f := &reroutingFixture{
		services:    new(MockServiceRepository),
		schedules:   new(MockScheduleRepository),
		routing:     new(MockRoutingRepository),
		expeditions: new(MockExpeditionRepository),
		locks:       new(MockLockRepository),
		streams:     new(MockStreamRepository),
		metrics:     &recorder{},
	}
	f.uc = usecase.NewReroutingUseCase(
		f.services, f.schedules, f.routing, f.expeditions, f.locks, f.streams,
		f.metrics, lockTTL, zap.NewNop(),
	).WithClock(fixedClock(tickNow))
	return f
}

func pendingEntry() *domain.ScheduleEntry {
	return &domain.ScheduleEntry{
		ServiceID:      10,
		RouteID:        100,
		ExpectedAt:     tickNow,
		Status:         domain.ScheduleStatusPending,
		IdempotencyKey: idemKey,
	}
}

// origin, два waypoint с пассажирами, один пустой и destination без высадки
func returnTripConfig() *domain.ReroutingConfig {
	return &domain.ReroutingConfig{
		ServiceID:    10,
		IsReturnTrip: true,
		Occupancy:    domain.Occupancy{Capacity: 20, Passengers: 5},
		Stops: []domain.Stop{
			{ID: 1, Type: domain.StopTypeOrigin, Lat: 41.0, Lon: 2.0, ArrivalTime: "07:55", DepartureTime: "08:00", DepartureOffsetMinutes: intPtr(15)},
			{ID: 2, Type: domain.StopTypeWaypoint, Lat: 41.1, Lon: 2.1, ArrivalTime: "08:10", DepartureTime: "08:11", OccupationOrigin: 3},
			{ID: 3, Type: domain.StopTypeWaypoint, Lat: 41.15, Lon: 2.15, ArrivalTime: "08:20", DepartureTime: "08:21"},
			{ID: 4, Type: domain.StopTypeWaypoint, Lat: 41.2, Lon: 2.2, ArrivalTime: "08:30", DepartureTime: "08:31", OccupationDestination: 2},
			{ID: 5, Type: domain.StopTypeDestination, Lat: 41.3, Lon: 2.3, ArrivalTime: "08:40", DepartureTime: "08:40"},
		},
	}
}

func (f *reroutingFixture) expectLock(ctx context.Context) {
	f.locks.On("Acquire", ctx, "10", lockTTL).Return(true, nil)
	f.locks.On("Release", mock.Anything, "10").Return(nil)
	f.schedules.On("FindByServiceID", ctx, int64(10)).Return(pendingEntry(), nil).Once()
}

func decodeReason(t *testing.T, raw json.RawMessage) domain.NotReroutedReason {
	t.Helper()
	var reason domain.NotReroutedReason
	require.NoError(t, json.Unmarshal(raw, &reason))
	return reason
}

func TestExecute_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	raw := json.RawMessage(`{"status":"OK","routes":[{"legs":[{"duration":{"value":125}},{"duration":{"value":400}},{"duration":{"value":0}}]}]}`)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(true, nil)
	f.routing.On("GetRoute", ctx, mock.MatchedBy(func(req domain.DirectionsRequest) bool {
		return req.Mode == domain.TravelModeDriving &&
			!req.OptimizeWaypoints &&
			req.Origin == domain.Point{Lat: 41.0, Lon: 2.0} &&
			len(req.Waypoints) == 2 &&
			req.Waypoints[0] == domain.Point{Lat: 41.1, Lon: 2.1} &&
			req.Waypoints[1] == domain.Point{Lat: 41.2, Lon: 2.2} &&
			req.Destination == domain.Point{Lat: 41.2, Lon: 2.2} &&
			req.DepartureTime.Equal(tickNow.Add(15*time.Minute)) &&
			req.IdempotencyKey == idemKey.String()
	})).Return(&domain.DirectionsResult{
		Status:           domain.DirectionsStatusOK,
		// последний leg - от promoted waypoint к нему же
		Legs:             []domain.RouteLeg{{DurationSeconds: 125}, {DurationSeconds: 400}, {DurationSeconds: 0}},
		OverviewPolyline: "_p~iF~ps|U_ulLnnqC",
		Raw:              raw,
	}, nil)

	var sent *domain.ProcessedResult
	f.expeditions.On("Create", ctx, mock.Anything, idemKey.String()).
		Run(func(args mock.Arguments) { sent = args.Get(1).(*domain.ProcessedResult) }).
		Return(&domain.Expedition{ID: "exp-42", ServiceID: 10}, nil)

	var persisted domain.ExecutionOutcome
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).(domain.ExecutionOutcome) }).
		Return(nil)

	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.MatchedBy(func(ev domain.ReroutingDoneEvent) bool {
		return ev.ServiceID == 10 && ev.Outcome == domain.OutcomeSuccess && ev.ExpeditionID == "exp-42"
	})).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, result.Outcome)
	require.NotNil(t, result.Expedition)
	assert.Equal(t, "exp-42", result.Expedition.ID)

	require.NotNil(t, sent)
	require.Len(t, sent.Stops, 3)
	assert.Equal(t, []int64{1, 2, 4}, []int64{sent.Stops[0].ID, sent.Stops[1].ID, sent.Stops[2].ID})
	assert.Equal(t, domain.ClockTime("08:00"), sent.Stops[0].DepartureTime)
	assert.Equal(t, domain.ClockTime("08:03"), sent.Stops[1].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:08"), sent.Stops[1].DepartureTime)
	assert.Equal(t, domain.ClockTime("08:15"), sent.Stops[2].ArrivalTime)
	assert.Equal(t, domain.ClockTime("08:20"), sent.Stops[2].DepartureTime)
	assert.Equal(t, "_p~iF~ps|U_ulLnnqC", sent.Polyline)
	assert.Equal(t, 5, sent.Occupancy.Passengers)

	assert.JSONEq(t, string(raw), string(persisted.RawResponse))
	assert.Empty(t, persisted.Reason)
	var processed domain.ProcessedResult
	require.NoError(t, json.Unmarshal(persisted.ProcessedResponse, &processed))
	assert.Equal(t, sent.Stops, processed.Stops)

	assert.Equal(t, []string{"success"}, f.metrics.outcomes)
	f.locks.AssertExpectations(t)
	f.streams.AssertExpectations(t)
}

func TestExecute_AlreadyExecutedIsPureRead(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()

	entry := pendingEntry()
	entry.Status = domain.ScheduleStatusExecuted

	result, err := f.uc.Execute(ctx, entry)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyExecuted, result.Outcome)

	f.locks.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
	f.routing.AssertNotCalled(t, "GetRoute", mock.Anything, mock.Anything)
	f.schedules.AssertNotCalled(t, "MarkExecuted", mock.Anything, mock.Anything, mock.Anything)
	f.streams.AssertNotCalled(t, "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_StaleEntryExecutedMeanwhile(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()

	executed := pendingEntry()
	executed.Status = domain.ScheduleStatusExecuted
	f.locks.On("Acquire", ctx, "10", lockTTL).Return(true, nil)
	f.locks.On("Release", mock.Anything, "10").Return(nil)
	f.schedules.On("FindByServiceID", ctx, int64(10)).Return(executed, nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyExecuted, result.Outcome)
	f.services.AssertNotCalled(t, "GetReroutingConfig", mock.Anything, mock.Anything)
	f.locks.AssertExpectations(t)
}

func TestExecute_InFlight(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.locks.On("Acquire", ctx, "10", lockTTL).Return(false, nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeInFlight, result.Outcome)
	f.locks.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
	f.schedules.AssertNotCalled(t, "FindByServiceID", mock.Anything, mock.Anything)
}

func TestExecute_NotEligibleLeavesEntryPending(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	cfg := returnTripConfig()
	cfg.IsReturnTrip = false
	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(cfg, nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotEligible, result.Outcome)
	assert.Equal(t, "NOT_ELIGIBLE", decodeReason(t, result.Reason).Code)

	f.schedules.AssertNotCalled(t, "MarkExecuted", mock.Anything, mock.Anything, mock.Anything)
	f.services.AssertNotCalled(t, "CanBeRerouted", mock.Anything, mock.Anything)
}

func TestExecute_StatusBlockedFinalizes(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.MatchedBy(func(o domain.ExecutionOutcome) bool {
		return len(o.Reason) > 0 && o.RawResponse == nil && o.ProcessedResponse == nil
	})).Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStatusBlocked, result.Outcome)

	reason := decodeReason(t, result.Reason)
	assert.Equal(t, "STATUS_BLOCKED", reason.Code)
	assert.Equal(t, int64(10), reason.ServiceID)

	f.routing.AssertNotCalled(t, "GetRoute", mock.Anything, mock.Anything)
	f.schedules.AssertExpectations(t)
}

func TestExecute_UpstreamNonOKFinalizesWithRawError(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	raw := json.RawMessage(`{"status":"ZERO_RESULTS","routes":[]}`)
	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(true, nil)
	f.routing.On("GetRoute", ctx, mock.Anything).Return(&domain.DirectionsResult{
		Status: domain.DirectionsStatusZeroResults,
		Raw:    raw,
	}, nil)

	var persisted domain.ExecutionOutcome
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).(domain.ExecutionOutcome) }).
		Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.MatchedBy(func(ev domain.ReroutingDoneEvent) bool {
		return ev.Outcome == domain.OutcomeUpstreamError && ev.Error == "ZERO_RESULTS"
	})).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpstreamError, result.Outcome)

	reason := decodeReason(t, persisted.Reason)
	assert.Equal(t, "UPSTREAM_ERROR", reason.Code)
	assert.JSONEq(t, string(raw), string(reason.Upstream))
	assert.JSONEq(t, string(raw), string(persisted.RawResponse))
	assert.Nil(t, persisted.ProcessedResponse)

	f.expeditions.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	f.streams.AssertExpectations(t)
}

func TestExecute_UpstreamTransportError(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(true, nil)
	f.routing.On("GetRoute", ctx, mock.Anything).Return(nil, errors.New("dial tcp: connection refused"))
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpstreamError, result.Outcome)
	assert.Contains(t, decodeReason(t, result.Reason).Message, "connection refused")
}

func TestExecute_ExpeditionSinkFailure(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	raw := json.RawMessage(`{"status":"OK"}`)
	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(true, nil)
	f.routing.On("GetRoute", ctx, mock.Anything).Return(&domain.DirectionsResult{
		Status: domain.DirectionsStatusOK,
		Legs:   []domain.RouteLeg{{DurationSeconds: 60}, {DurationSeconds: 60}},
		Raw:    raw,
	}, nil)
	f.expeditions.On("Create", ctx, mock.Anything, idemKey.String()).Return(nil, errors.New("status 422"))
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.MatchedBy(func(o domain.ExecutionOutcome) bool {
		return len(o.Reason) > 0 && string(o.RawResponse) == string(raw) && o.ProcessedResponse == nil
	})).Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeUpstreamError, result.Outcome)
	assert.Nil(t, result.Expedition)
	f.schedules.AssertExpectations(t)
}

func TestExecute_LostCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(domain.ErrScheduleAlreadyExecuted)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyExecuted, result.Outcome)
	f.streams.AssertNotCalled(t, "PublishToStream", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecute_PersistenceFailure(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(errors.New("connection reset"))

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrPersistenceFailure)
	assert.Equal(t, []string{"error"}, f.metrics.outcomes)
	f.locks.AssertCalled(t, "Release", mock.Anything, "10")
}

func TestExecute_PublishFailureDoesNotFailExecution(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(errors.New("redis down"))

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeStatusBlocked, result.Outcome)
}

func TestExecuteByServiceID_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.schedules.On("FindByServiceID", ctx, int64(77)).Return(nil, nil)

	_, err := f.uc.ExecuteByServiceID(ctx, 77)
	assert.ErrorIs(t, err, domain.ErrScheduleNotFound)
}

func TestExecute_StopsWithoutRouteAreFinalized(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	f.expectLock(ctx)

	cfg := returnTripConfig()
	cfg.Stops = cfg.Stops[1:] // без origin

	var persisted domain.ExecutionOutcome
	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(cfg, nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(true, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).
		Run(func(args mock.Arguments) { persisted = args.Get(2).(domain.ExecutionOutcome) }).
		Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.MatchedBy(func(ev domain.ReroutingDoneEvent) bool {
		return ev.ServiceID == 10 && ev.Outcome == domain.OutcomeNotEligible
	})).Return(nil)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotEligible, result.Outcome)

	reason := decodeReason(t, persisted.Reason)
	assert.Equal(t, "INVALID_REQUEST", reason.Code)
	assert.Contains(t, reason.Message, "no origin stop")
	assert.Nil(t, persisted.RawResponse)
	assert.Nil(t, persisted.ProcessedResponse)

	f.routing.AssertNotCalled(t, "GetRoute", mock.Anything, mock.Anything)
	f.schedules.AssertExpectations(t)
	f.streams.AssertExpectations(t)
}

func TestExecute_FinalizeInvalidatesStats(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	stats := new(MockCacheRepository)
	f.uc.WithStatsCache(stats)
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(nil)
	f.streams.On("PublishToStream", ctx, domain.StreamReroutingDone, mock.Anything).Return(nil)
	stats.On("InvalidateStats", ctx).Return(errors.New("redis: connection refused"))

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err, "cache failures are not fatal")
	assert.Equal(t, domain.OutcomeStatusBlocked, result.Outcome)
	stats.AssertExpectations(t)
}

func TestExecute_LostCompareAndSwapKeepsStats(t *testing.T) {
	ctx := context.Background()
	f := newReroutingFixture()
	stats := new(MockCacheRepository)
	f.uc.WithStatsCache(stats)
	f.expectLock(ctx)

	f.services.On("GetReroutingConfig", ctx, int64(10)).Return(returnTripConfig(), nil)
	f.services.On("CanBeRerouted", ctx, int64(10)).Return(false, nil)
	f.schedules.On("MarkExecuted", ctx, int64(10), mock.Anything).Return(domain.ErrScheduleAlreadyExecuted)

	result, err := f.uc.Execute(ctx, pendingEntry())
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyExecuted, result.Outcome)
	stats.AssertNotCalled(t, "InvalidateStats", mock.Anything)
}
