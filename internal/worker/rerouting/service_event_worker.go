package rerouting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/domain/repository"
	"github.com/rerouting-service/internal/worker"
)

const (
	emptyQueueSleep = 100 * time.Millisecond // пауза если очередь пуста
	errorSleep      = time.Second
	retryBaseWait   = 200 * time.Millisecond
)

// ScheduleComputer пересчитывает расписание сервиса
type ScheduleComputer interface {
	ComputeAndSave(ctx context.Context, serviceID int64, policy *domain.RoutePolicy) (*domain.Service, *domain.ScheduleEntry, error)
}

// ServiceEventWorker читает stream:service:changed и пересчитывает расписание
// для созданных и измененных сервисов.
type ServiceEventWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	computer     ScheduleComputer
	consumerName string
	batchSize    int
	maxRetries   int
	idleSleep    time.Duration
}

// NewServiceEventWorker создает новый ServiceEventWorker
func NewServiceEventWorker(
	streamRepo repository.StreamRepository,
	computer ScheduleComputer,
	consumerGroup string,
	batchSize int,
	maxRetries int,
	logger *zap.Logger,
) *ServiceEventWorker {
	hostname, _ := os.Hostname()
	if batchSize <= 0 {
		batchSize = 1
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}

	return &ServiceEventWorker{
		BaseWorker:   worker.NewBaseWorker("service-events", consumerGroup, logger),
		streamRepo:   streamRepo,
		computer:     computer,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		batchSize:    batchSize,
		maxRetries:   maxRetries,
		idleSleep:    emptyQueueSleep,
	}
}

// WithIdleSleep задает паузу между опросами пустого стрима
func (w *ServiceEventWorker) WithIdleSleep(d time.Duration) *ServiceEventWorker {
	if d > 0 {
		w.idleSleep = d
	}
	return w
}

// Start запускает воркер
func (w *ServiceEventWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting service event worker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Int("batch_size", w.batchSize))

	if err := w.streamRepo.CreateConsumerGroup(ctx, domain.StreamServiceChanged, w.ConsumerGroup()); err != nil {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	for {
		if w.IsStopped() {
			logger.Info("Worker stopped")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		processed, err := w.ProcessBatch(ctx)
		if err != nil {
			logger.Error("Failed to process batch", zap.Error(err))
			w.Sleep(ctx, errorSleep)
			continue
		}

		if processed == 0 {
			w.Sleep(ctx, w.idleSleep)
		}
	}
}

// ProcessBatch читает и обрабатывает пачку событий.
// Возвращает количество прочитанных сообщений.
func (w *ServiceEventWorker) ProcessBatch(ctx context.Context) (int, error) {
	logger := w.Logger()

	messages, err := w.streamRepo.ConsumeBatch(ctx, domain.StreamServiceChanged, w.ConsumerGroup(), w.consumerName, w.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	ackIDs := make([]string, 0, len(messages))
	for _, msg := range messages {
		event, err := parseServiceChanged(msg)
		if err != nil {
			// ACK битое сообщение чтобы не застревало
			logger.Warn("Failed to parse message, skipping",
				zap.String("message_id", msg.ID),
				zap.Error(err))
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		if !event.RequiresSchedule() {
			logger.Debug("Event does not change schedule",
				zap.Int64("service_id", event.ServiceID),
				zap.String("change", string(event.Change)))
			ackIDs = append(ackIDs, msg.ID)
			continue
		}

		if w.handle(ctx, event) {
			ackIDs = append(ackIDs, msg.ID)
		}
	}

	if err := w.streamRepo.AckMessages(ctx, domain.StreamServiceChanged, w.ConsumerGroup(), ackIDs); err != nil {
		// Не критично: ComputeAndSave идемпотентен, сообщения будут переобработаны
		logger.Error("Failed to ack messages", zap.Error(err))
	}

	logger.Info("Batch processed",
		zap.Int("messages", len(messages)),
		zap.Int("acked", len(ackIDs)))

	return len(messages), nil
}

// handle пересчитывает расписание с повторами. false означает, что сообщение
// надо оставить неподтвержденным (воркер останавливается).
func (w *ServiceEventWorker) handle(ctx context.Context, event *domain.ServiceChangedEvent) bool {
	logger := w.Logger().With(zap.Int64("service_id", event.ServiceID))

	for attempt := 1; attempt <= w.maxRetries; attempt++ {
		_, entry, err := w.computer.ComputeAndSave(ctx, event.ServiceID, event.Policy)
		if err == nil {
			if entry != nil {
				logger.Debug("Schedule updated from event", zap.Time("expected_at", entry.ExpectedAt))
			}
			return true
		}

		if errors.Is(err, domain.ErrInvalidPolicy) {
			logger.Error("Invalid policy in event, dropping", zap.Error(err))
			return true
		}

		logger.Warn("ComputeAndSave failed",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", w.maxRetries),
			zap.Error(err))

		if attempt < w.maxRetries && !w.Sleep(ctx, retryBaseWait*time.Duration(1<<(attempt-1))) {
			return false
		}
	}

	logger.Error("Giving up on service event", zap.Int("attempts", w.maxRetries))
	return true
}

func parseServiceChanged(msg domain.StreamMessage) (*domain.ServiceChangedEvent, error) {
	if msg.Data == "" {
		return nil, fmt.Errorf("missing or invalid 'data' field")
	}

	var event domain.ServiceChangedEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}
