package rerouting

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rerouting-service/internal/domain"
	"github.com/rerouting-service/internal/pkg/metrics"
	"github.com/rerouting-service/internal/worker"
)

// DueSelector выбирает записи к исполнению
type DueSelector interface {
	DueAt(ctx context.Context, instant time.Time) ([]domain.ScheduleEntry, error)
	Overdue(ctx context.Context, instant time.Time, window time.Duration) ([]domain.ScheduleEntry, error)
}

// Executor исполняет одну запись расписания
type Executor interface {
	Execute(ctx context.Context, entry *domain.ScheduleEntry) (*domain.ReroutingResult, error)
}

// TickReport - итог одного тика
type TickReport struct {
	Instant  time.Time
	Due      int
	Outcomes map[domain.ReroutingOutcome]int
	Failed   int
}

// TickWorker раз в минуту выбирает записи, чей момент наступил, и исполняет их
// параллельно, не больше poolSize одновременно.
type TickWorker struct {
	*worker.BaseWorker
	selector DueSelector
	executor Executor
	metrics  metrics.Recorder
	cronSpec string
	poolSize int
	catchup  time.Duration
	now      func() time.Time
}

// NewTickWorker создает новый TickWorker
func NewTickWorker(
	selector DueSelector,
	executor Executor,
	recorder metrics.Recorder,
	cronSpec string,
	poolSize int,
	catchup time.Duration,
	logger *zap.Logger,
) *TickWorker {
	if poolSize <= 0 {
		poolSize = 1
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &TickWorker{
		BaseWorker: worker.NewBaseWorker("rerouting-tick", "", logger),
		selector:   selector,
		executor:   executor,
		metrics:    recorder,
		cronSpec:   cronSpec,
		poolSize:   poolSize,
		catchup:    catchup,
		now:        time.Now,
	}
}

// Start регистрирует тик в cron и блокируется до Stop или отмены ctx.
// Пропускает тик, если предыдущий еще не завершился.
func (w *TickWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	cl := cronLogger{logger.Sugar()}

	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(w.cronSpec, func() {
		if _, err := w.Tick(ctx, w.now()); err != nil {
			logger.Error("Tick failed", zap.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("invalid tick schedule %q: %w", w.cronSpec, err)
	}

	logger.Info("Starting tick worker",
		zap.String("schedule", w.cronSpec),
		zap.Int("pool_size", w.poolSize),
		zap.Duration("catchup_window", w.catchup))

	c.Start()

	var err error
	select {
	case <-w.StopChan():
	case <-ctx.Done():
		err = ctx.Err()
	}

	// Дожидаемся текущего тика
	<-c.Stop().Done()
	logger.Info("Tick worker stopped")
	return err
}

// Tick исполняет все записи, due в минуту instant (плюс просроченные в окне catch-up).
// Сбой одной записи не влияет на остальные.
func (w *TickWorker) Tick(ctx context.Context, instant time.Time) (*TickReport, error) {
	logger := w.Logger()

	entries, err := w.selector.DueAt(ctx, instant)
	if err != nil {
		return nil, fmt.Errorf("select due entries: %w", err)
	}

	if w.catchup > 0 {
		overdue, err := w.selector.Overdue(ctx, instant, w.catchup)
		if err != nil {
			// Основной набор все равно исполняем
			logger.Warn("Failed to select overdue entries", zap.Error(err))
		}
		entries = mergeEntries(entries, overdue)
	}

	w.metrics.RecordTick(len(entries))

	report := &TickReport{
		Instant:  instant.UTC().Truncate(time.Minute),
		Due:      len(entries),
		Outcomes: make(map[domain.ReroutingOutcome]int),
	}
	if len(entries) == 0 {
		return report, nil
	}

	logger.Info("Executing due entries",
		zap.Time("instant", report.Instant),
		zap.Int("count", len(entries)))

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(w.poolSize)

	for i := range entries {
		entry := &entries[i]
		g.Go(func() error {
			result, err := w.executor.Execute(ctx, entry)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				report.Failed++
				logger.Error("Rerouting execution failed",
					zap.Int64("service_id", entry.ServiceID),
					zap.Error(err))
				return nil
			}
			report.Outcomes[result.Outcome]++
			return nil
		})
	}
	_ = g.Wait()

	logger.Info("Tick completed",
		zap.Time("instant", report.Instant),
		zap.Int("due", report.Due),
		zap.Int("failed", report.Failed),
		zap.Int("success", report.Outcomes[domain.OutcomeSuccess]))

	return report, nil
}

// mergeEntries объединяет списки без повторов по service_id
func mergeEntries(due, overdue []domain.ScheduleEntry) []domain.ScheduleEntry {
	if len(overdue) == 0 {
		return due
	}
	seen := make(map[int64]struct{}, len(due)+len(overdue))
	merged := make([]domain.ScheduleEntry, 0, len(due)+len(overdue))
	for _, list := range [][]domain.ScheduleEntry{due, overdue} {
		for _, e := range list {
			if _, ok := seen[e.ServiceID]; ok {
				continue
			}
			seen[e.ServiceID] = struct{}{}
			merged = append(merged, e)
		}
	}
	return merged
}

// cronLogger пишет события cron в zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
