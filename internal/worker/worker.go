package worker

import "context"

// Worker - фоновый процесс под управлением WorkerManager.
// Start блокируется до Stop или отмены ctx.
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}
