package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/pkg/metrics"
	"github.com/rerouting-service/internal/pkg/validator"
)

const (
	scheduledResult = "scheduled"
	skippedResult   = "skipped"
	invalidResult   = "invalid"
)

// ScheduleUseCase вычисляет момент перемаршрутизации и ведет расписание
type ScheduleUseCase struct {
	serviceRepo  repository.ServiceRepository
	policyRepo   repository.RoutePolicyRepository
	scheduleRepo repository.ScheduleRepository
	metrics      metrics.Recorder
	now          func() time.Time
	logger       *zap.Logger
}

// NewScheduleUseCase создает новый экземпляр ScheduleUseCase
func NewScheduleUseCase(
	serviceRepo repository.ServiceRepository,
	policyRepo repository.RoutePolicyRepository,
	scheduleRepo repository.ScheduleRepository,
	recorder metrics.Recorder,
	logger *zap.Logger,
) *ScheduleUseCase {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ScheduleUseCase{
		serviceRepo:  serviceRepo,
		policyRepo:   policyRepo,
		scheduleRepo: scheduleRepo,
		metrics:      recorder,
		now:          time.Now,
		logger:       logger,
	}
}

// WithClock подменяет источник текущего времени (для тестов)
func (uc *ScheduleUseCase) WithClock(now func() time.Time) *ScheduleUseCase {
	uc.now = now
	return uc
}

// ComputeAndSave вычисляет trigger time сервиса по политике маршрута и сохраняет
// запись расписания, если момент еще в будущем.
//
// policy может быть nil, тогда политика берется по route_id сервиса.
// Возвращает (service, nil, nil), если сервис не найден, политика не применяется,
// момент уже прошел или запись уже исполнена.
func (uc *ScheduleUseCase) ComputeAndSave(
	ctx context.Context,
	serviceID int64,
	policy *domain.RoutePolicy,
) (*domain.Service, *domain.ScheduleEntry, error) {
	service, err := uc.serviceRepo.GetDepartureInfo(ctx, serviceID)
	if err != nil {
		return nil, nil, fmt.Errorf("get departure info for service %d: %w", serviceID, err)
	}
	if service == nil {
		uc.logger.Debug("Service not found, nothing to schedule", zap.Int64("service_id", serviceID))
		uc.metrics.RecordScheduled(skippedResult)
		return nil, nil, nil
	}

	if policy == nil {
		policy, err = uc.policyRepo.GetPolicy(ctx, service.RouteID)
		if err != nil {
			return service, nil, fmt.Errorf("get policy for route %d: %w", service.RouteID, err)
		}
		if policy == nil {
			uc.logger.Debug("Route has no policy",
				zap.Int64("service_id", serviceID),
				zap.Int64("route_id", service.RouteID))
			uc.metrics.RecordScheduled(skippedResult)
			return service, nil, nil
		}
	}

	if !policy.AppliesTimeBeforeService() {
		uc.logger.Debug("Policy does not apply",
			zap.Int64("service_id", serviceID),
			zap.Int64("route_id", policy.RouteID),
			zap.Bool("activated", policy.Activated),
			zap.String("kind", string(policy.Kind)))
		uc.metrics.RecordScheduled(skippedResult)
		return service, nil, nil
	}

	trigger, err := uc.triggerTime(service, policy)
	if err != nil {
		uc.metrics.RecordScheduled(invalidResult)
		return service, nil, err
	}

	now := uc.now().UTC()
	if !trigger.After(now) {
		uc.logger.Info("Trigger time already passed, skipping",
			zap.Int64("service_id", serviceID),
			zap.Time("trigger", trigger),
			zap.Time("now", now))
		uc.metrics.RecordScheduled(skippedResult)
		return service, nil, nil
	}

	entry := &domain.ScheduleEntry{
		ServiceID:  service.ID,
		RouteID:    policy.RouteID,
		ExpectedAt: trigger,
		Status:     domain.ScheduleStatusPending,
	}

	if err := uc.scheduleRepo.Upsert(ctx, entry); err != nil {
		if errors.Is(err, domain.ErrScheduleAlreadyExecuted) {
			uc.logger.Info("Schedule already executed, not re-armed", zap.Int64("service_id", serviceID))
			uc.metrics.RecordScheduled(skippedResult)
			return service, nil, nil
		}
		return service, nil, fmt.Errorf("save schedule for service %d: %w", serviceID, err)
	}

	uc.metrics.RecordScheduled(scheduledResult)
	uc.logger.Info("Rerouting scheduled",
		zap.Int64("service_id", serviceID),
		zap.Int64("route_id", policy.RouteID),
		zap.Time("expected_at", entry.ExpectedAt))

	return service, entry, nil
}

// triggerTime = departure(timezone) - offset, в UTC с точностью до минуты
func (uc *ScheduleUseCase) triggerTime(service *domain.Service, policy *domain.RoutePolicy) (time.Time, error) {
	if err := validator.Validate(policy); err != nil {
		return time.Time{}, fmt.Errorf("%w: route %d: %v", domain.ErrInvalidPolicy, policy.RouteID, validator.Fields(err))
	}

	minutes, err := policy.MinutesBefore()
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidPolicy, err)
	}

	departure, err := service.DepartureIn()
	if err != nil {
		return time.Time{}, fmt.Errorf("service %d departure: %w", service.ID, err)
	}

	return departure.Add(-time.Duration(minutes) * time.Minute).UTC().Truncate(time.Minute), nil
}

// DueAt возвращает pending записи, чей expected_at совпадает с instant до минуты
func (uc *ScheduleUseCase) DueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error) {
	entries, err := uc.scheduleRepo.FindDueAt(ctx, instant)
	if err != nil {
		return nil, fmt.Errorf("find due entries at %s: %w", instant.UTC().Format(time.RFC3339), err)
	}

	due := entries[:0]
	for i := range entries {
		if entries[i].IsPending() && entries[i].DueAt(instant) {
			due = append(due, entries[i])
		}
	}
	return due, nil
}

// Overdue возвращает pending записи из окна [instant-window, instant) по минутам.
// Нулевое окно означает строгую семантику "ровно эта минута".
func (uc *ScheduleUseCase) Overdue(ctx context.Context, instant time.Time, window time.Duration) ([]domain.ScheduleEntry, error) {
	if window <= 0 {
		return nil, nil
	}

	before := instant.UTC().Truncate(time.Minute)
	since := before.Add(-window)

	entries, err := uc.scheduleRepo.FindOverdue(ctx, since, before)
	if err != nil {
		return nil, fmt.Errorf("find overdue entries: %w", err)
	}

	overdue := entries[:0]
	for i := range entries {
		if entries[i].IsPending() {
			overdue = append(overdue, entries[i])
		}
	}
	return overdue, nil
}

// GetSchedule возвращает запись расписания сервиса
func (uc *ScheduleUseCase) GetSchedule(ctx context.Context, serviceID int64) (*domain.ScheduleEntry, error) {
	entry, err := uc.scheduleRepo.FindByServiceID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule for service %d: %w", serviceID, err)
	}
	if entry == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return entry, nil
}
