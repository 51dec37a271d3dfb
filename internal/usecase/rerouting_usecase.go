package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	apperrors "github.com/rerouting-service/internal/pkg/errors"
	"github.com/rerouting-service/internal/pkg/metrics"
)

// ReroutingUseCase исполняет одну запись расписания: запрос маршрута,
// пересчет времен, создание экспедиции и финализация записи.
type ReroutingUseCase struct {
	serviceRepo    repository.ServiceRepository
	scheduleRepo   repository.ScheduleRepository
	routingRepo    repository.RoutingRepository
	expeditionRepo repository.ExpeditionRepository
	lockRepo       repository.LockRepository
	streamRepo     repository.StreamRepository
	statsCache     statsInvalidator
	metrics        metrics.Recorder
	lockTTL        time.Duration
	now            func() time.Time
	logger         *zap.Logger
}

// NewReroutingUseCase создает новый экземпляр ReroutingUseCase.
// streamRepo может быть nil, тогда события о завершении не публикуются.
func NewReroutingUseCase(
	serviceRepo repository.ServiceRepository,
	scheduleRepo repository.ScheduleRepository,
	routingRepo repository.RoutingRepository,
	expeditionRepo repository.ExpeditionRepository,
	lockRepo repository.LockRepository,
	streamRepo repository.StreamRepository,
	recorder metrics.Recorder,
	lockTTL time.Duration,
	logger *zap.Logger,
) *ReroutingUseCase {
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &ReroutingUseCase{
		serviceRepo:    serviceRepo,
		scheduleRepo:   scheduleRepo,
		routingRepo:    routingRepo,
		expeditionRepo: expeditionRepo,
		lockRepo:       lockRepo,
		streamRepo:     streamRepo,
		metrics:        recorder,
		lockTTL:        lockTTL,
		now:            time.Now,
		logger:         logger,
	}
}

// statsInvalidator сбрасывает кешированную сводку по расписанию
type statsInvalidator interface {
	InvalidateStats(ctx context.Context) error
}

// WithStatsCache включает сброс сводки после каждой финализации записи
func (uc *ReroutingUseCase) WithStatsCache(cache statsInvalidator) *ReroutingUseCase {
	uc.statsCache = cache
	return uc
}

// WithClock подменяет источник текущего времени (для тестов)
func (uc *ReroutingUseCase) WithClock(now func() time.Time) *ReroutingUseCase {
	uc.now = now
	return uc
}

// ExecuteByServiceID исполняет запись расписания сервиса вне тика
func (uc *ReroutingUseCase) ExecuteByServiceID(ctx context.Context, serviceID int64) (*domain.ReroutingResult, error) {
	entry, err := uc.scheduleRepo.FindByServiceID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get schedule for service %d: %w", serviceID, err)
	}
	if entry == nil {
		return nil, domain.ErrScheduleNotFound
	}
	return uc.Execute(ctx, entry)
}

// Execute исполняет запись расписания. Ошибка возвращается только для сбоев
// инфраструктуры (чтение данных сервиса, запись итога); бизнес-исходы
// отражаются в ReroutingResult.Outcome.
func (uc *ReroutingUseCase) Execute(ctx context.Context, entry *domain.ScheduleEntry) (result *domain.ReroutingResult, err error) {
	start := time.Now()
	log := uc.logger.With(zap.Int64("service_id", entry.ServiceID))

	defer func() {
		outcome := "error"
		if result != nil {
			outcome = string(result.Outcome)
		}
		uc.metrics.RecordOutcome(outcome, time.Since(start))
	}()

	if !entry.IsPending() {
		return &domain.ReroutingResult{ServiceID: entry.ServiceID, Outcome: domain.OutcomeAlreadyExecuted}, nil
	}

	lockKey := strconv.FormatInt(entry.ServiceID, 10)
	acquired, err := uc.lockRepo.Acquire(ctx, lockKey, uc.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire lock for service %d: %w", entry.ServiceID, err)
	}
	if !acquired {
		log.Info("Schedule entry is being executed elsewhere")
		return &domain.ReroutingResult{ServiceID: entry.ServiceID, Outcome: domain.OutcomeInFlight}, nil
	}
	defer func() {
		// Освобождаем независимо от отмены контекста тика
		if relErr := uc.lockRepo.Release(context.WithoutCancel(ctx), lockKey); relErr != nil {
			log.Warn("Failed to release schedule lock", zap.Error(relErr))
		}
	}()

	// Запись могла быть исполнена, пока тик выбирал ее
	fresh, err := uc.scheduleRepo.FindByServiceID(ctx, entry.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("reload schedule for service %d: %w", entry.ServiceID, err)
	}
	if fresh == nil {
		return nil, fmt.Errorf("service %d: %w", entry.ServiceID, domain.ErrScheduleNotFound)
	}
	if !fresh.IsPending() {
		return &domain.ReroutingResult{ServiceID: entry.ServiceID, Outcome: domain.OutcomeAlreadyExecuted}, nil
	}

	result, err = uc.execute(ctx, fresh, log)
	if err != nil {
		return nil, err
	}

	uc.publishDone(ctx, result, log)
	return result, nil
}

func (uc *ReroutingUseCase) execute(ctx context.Context, entry *domain.ScheduleEntry, log *zap.Logger) (*domain.ReroutingResult, error) {
	serviceID := entry.ServiceID

	cfg, err := uc.serviceRepo.GetReroutingConfig(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("get rerouting config for service %d: %w", serviceID, err)
	}
	if cfg == nil {
		log.Warn("Service not found, entry left pending")
		return uc.notEligible(serviceID, apperrors.ErrServiceNotFound.Code, "service not found"), nil
	}
	if !cfg.IsReturnTrip {
		log.Info("Service is not a return trip, entry left pending")
		return uc.notEligible(serviceID, apperrors.ErrNotEligible.Code, "service is not a return trip"), nil
	}

	reroutable, err := uc.serviceRepo.CanBeRerouted(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("check status of service %d: %w", serviceID, err)
	}
	if !reroutable {
		log.Info("Service status blocks rerouting")
		reason := uc.reason(serviceID, apperrors.ErrStatusBlocked.Code, "service status does not allow rerouting", nil)
		return uc.finalize(ctx, entry, domain.OutcomeStatusBlocked, domain.ExecutionOutcome{Reason: reason}, nil)
	}

	plan, err := BuildRoutePlan(cfg.Stops, uc.now())
	if err != nil {
		// раскладка остановок не изменится сама, запись закрывается с диагностикой
		log.Warn("Service stops do not form a route", zap.Error(err))
		reason := uc.reason(serviceID, apperrors.ErrInvalidRequest.Code, err.Error(), nil)
		return uc.finalize(ctx, entry, domain.OutcomeNotEligible, domain.ExecutionOutcome{Reason: reason}, nil)
	}
	plan.Request.IdempotencyKey = entry.IdempotencyKey.String()

	route, err := uc.routingRepo.GetRoute(ctx, plan.Request)
	if err != nil {
		log.Warn("Routing engine call failed", zap.Error(err))
		reason := uc.reason(serviceID, apperrors.ErrUpstreamError.Code, err.Error(), nil)
		return uc.finalize(ctx, entry, domain.OutcomeUpstreamError, domain.ExecutionOutcome{Reason: reason}, nil)
	}
	if !route.OK() {
		log.Warn("Routing engine returned non-OK status",
			zap.String("status", route.Status),
			zap.String("error_message", route.ErrorMessage))
		msg := route.Status
		if route.ErrorMessage != "" {
			msg = route.Status + ": " + route.ErrorMessage
		}
		reason := uc.reason(serviceID, apperrors.ErrUpstreamError.Code, msg, route.Raw)
		return uc.finalize(ctx, entry, domain.OutcomeUpstreamError,
			domain.ExecutionOutcome{Reason: reason, RawResponse: route.Raw}, nil)
	}

	dwell, err := DwellTime(plan.Stops[0])
	if err != nil {
		return nil, fmt.Errorf("service %d: %w", serviceID, err)
	}
	stops, err := PropagateTimes(plan.Stops, route.Legs, dwell)
	if err != nil {
		return nil, fmt.Errorf("service %d: %w", serviceID, err)
	}

	processed := &domain.ProcessedResult{
		ServiceID: serviceID,
		Occupancy: cfg.Occupancy,
		Stops:     stops,
		Polyline:  route.OverviewPolyline,
	}

	expedition, err := uc.expeditionRepo.Create(ctx, processed, entry.IdempotencyKey.String())
	if err != nil {
		log.Warn("Expedition sink call failed", zap.Error(err))
		reason := uc.reason(serviceID, apperrors.ErrUpstreamError.Code, "expedition sink: "+err.Error(), nil)
		return uc.finalize(ctx, entry, domain.OutcomeUpstreamError,
			domain.ExecutionOutcome{Reason: reason, RawResponse: route.Raw}, nil)
	}

	processedJSON, err := json.Marshal(processed)
	if err != nil {
		return nil, fmt.Errorf("marshal processed result: %w", err)
	}

	log.Info("Service rerouted",
		zap.String("expedition_id", expedition.ID),
		zap.Int("stops", len(stops)),
		zap.Int("legs", len(route.Legs)))

	return uc.finalize(ctx, entry, domain.OutcomeSuccess, domain.ExecutionOutcome{
		RawResponse:       route.Raw,
		ProcessedResponse: processedJSON,
	}, expedition)
}

// finalize переводит запись в executed. Проигранный CAS означает, что запись
// уже исполнил кто-то другой.
func (uc *ReroutingUseCase) finalize(
	ctx context.Context,
	entry *domain.ScheduleEntry,
	outcome domain.ReroutingOutcome,
	exec domain.ExecutionOutcome,
	expedition *domain.Expedition,
) (*domain.ReroutingResult, error) {
	if err := uc.scheduleRepo.MarkExecuted(ctx, entry.ServiceID, exec); err != nil {
		if errors.Is(err, domain.ErrScheduleAlreadyExecuted) {
			return &domain.ReroutingResult{ServiceID: entry.ServiceID, Outcome: domain.OutcomeAlreadyExecuted}, nil
		}
		uc.logger.Error("Failed to persist rerouting outcome",
			zap.Int64("service_id", entry.ServiceID),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: service %d: %w", domain.ErrPersistenceFailure, entry.ServiceID, err)
	}

	if uc.statsCache != nil {
		if err := uc.statsCache.InvalidateStats(ctx); err != nil {
			uc.logger.Warn("Failed to invalidate stats cache", zap.Error(err))
		}
	}

	return &domain.ReroutingResult{
		ServiceID:  entry.ServiceID,
		Outcome:    outcome,
		Reason:     exec.Reason,
		Expedition: expedition,
	}, nil
}

func (uc *ReroutingUseCase) notEligible(serviceID int64, code, message string) *domain.ReroutingResult {
	return &domain.ReroutingResult{
		ServiceID: serviceID,
		Outcome:   domain.OutcomeNotEligible,
		Reason:    uc.reason(serviceID, code, message, nil),
	}
}

func (uc *ReroutingUseCase) reason(serviceID int64, code, message string, upstream json.RawMessage) json.RawMessage {
	data, err := json.Marshal(domain.NotReroutedReason{
		Code:      code,
		Message:   message,
		ServiceID: serviceID,
		Upstream:  upstream,
	})
	if err != nil {
		// upstream не является валидным JSON
		data, _ = json.Marshal(domain.NotReroutedReason{Code: code, Message: message, ServiceID: serviceID})
	}
	return data
}

func (uc *ReroutingUseCase) publishDone(ctx context.Context, result *domain.ReroutingResult, log *zap.Logger) {
	if uc.streamRepo == nil || result.Outcome == domain.OutcomeInFlight || result.Outcome == domain.OutcomeAlreadyExecuted {
		return
	}

	event := domain.ReroutingDoneEvent{
		ServiceID:  result.ServiceID,
		Outcome:    result.Outcome,
		ExecutedAt: uc.now().UTC(),
	}
	if result.Expedition != nil {
		event.ExpeditionID = result.Expedition.ID
	}
	if len(result.Reason) > 0 {
		var reason domain.NotReroutedReason
		if err := json.Unmarshal(result.Reason, &reason); err == nil {
			event.Error = reason.Message
		}
	}

	if err := uc.streamRepo.PublishToStream(ctx, domain.StreamReroutingDone, event); err != nil {
		log.Warn("Failed to publish rerouting done event", zap.Error(err))
	}
}
