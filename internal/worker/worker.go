package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"shop-service/internal/broker"
	"shop-service/internal/models"
	"shop-service/internal/service"
	"shop-service/internal/util"
)

// drainTimeout bounds how long each already-queued job may run after the
// consumer context is cancelled.
const drainTimeout = 10 * time.Second

// job is one allocation unit of work pulled off the topic. Exactly one of
// the pointers is set.
type job struct {
	created *models.WorkOrderCreatedEvent
	rebuilt *models.WorkOrderRebuiltEvent
}

// AllocationWorker consumes allocation jobs from Kafka into a bounded queue
// drained by a pool of workers. A full queue blocks the consumer, which
// backpressures the topic instead of dropping work.
type AllocationWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	orchestrator *service.WorkOrderService
	queue        chan job
	workers      int
	wg           sync.WaitGroup
}

// NewAllocationWorker creates a new allocation worker
func NewAllocationWorker(
	consumer *broker.Consumer,
	orchestrator *service.WorkOrderService,
	workers, queueSize int,
) *AllocationWorker {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	w := &AllocationWorker{
		consumer:     consumer,
		orchestrator: orchestrator,
		queue:        make(chan job, queueSize),
		workers:      workers,
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnWorkOrderCreated(func(ctx context.Context, e *models.WorkOrderCreatedEvent) error {
		return w.enqueue(ctx, job{created: e})
	})
	eventHandler.OnWorkOrderRebuilt(func(ctx context.Context, e *models.WorkOrderRebuiltEvent) error {
		return w.enqueue(ctx, job{rebuilt: e})
	})
	w.eventHandler = eventHandler

	return w
}

// Start runs the worker pool and then blocks consuming the topic until the
// context is cancelled.
func (w *AllocationWorker) Start(ctx context.Context) error {
	log.Printf("Starting allocation worker: %d workers, queue %d", w.workers, cap(w.queue))

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx)
	}

	err := w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
	close(w.queue)
	w.wg.Wait()
	return err
}

// Stop stops the worker
func (w *AllocationWorker) Stop() error {
	log.Println("Stopping allocation worker...")
	return w.consumer.Close()
}

func (w *AllocationWorker) enqueue(ctx context.Context, j job) error {
	select {
	case w.queue <- j:
		util.AllocationQueueDepth.Set(float64(len(w.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AllocationWorker) run(ctx context.Context) {
	defer w.wg.Done()

	for j := range w.queue {
		util.AllocationQueueDepth.Set(float64(len(w.queue)))

		jobCtx, cancel := w.jobContext(ctx)
		var err error
		switch {
		case j.created != nil:
			err = w.orchestrator.HandleWorkOrderCreated(jobCtx, j.created)
		case j.rebuilt != nil:
			err = w.orchestrator.HandleWorkOrderRebuilt(jobCtx, j.rebuilt)
		}
		cancel()
		if err != nil {
			log.Printf("Allocation job failed: %v", err)
		}
	}
}

// jobContext derives the per-job context. While the consumer is live jobs
// run under its context; once it is cancelled, queued jobs drain under a
// fresh bounded context so their store writes can still land.
func (w *AllocationWorker) jobContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx.Err() != nil {
		return context.WithTimeout(context.Background(), drainTimeout)
	}
	return context.WithCancel(ctx)
}
