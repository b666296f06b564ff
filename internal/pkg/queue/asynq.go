package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/hris-payments-go/internal/domain/payment"
	"github.com/hibiken/asynq"
)

// RedisOpt builds Asynq connection options from the shared Redis settings.
func RedisOpt(addr, password string, db int) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: addr, Password: password, DB: db}
}

// Worker wraps the Asynq server.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
}

func NewWorker(redisOpt asynq.RedisClientOpt, sender PaymentsCalculatedSender) *Worker {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskTypePaymentsCalculated, NewPaymentsCalculatedHandler(sender))

	return &Worker{server: srv, mux: mux}
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errCh:
		return err
	}
}

// Notifier enqueues calculation notices for the worker to deliver.
type Notifier struct {
	client *asynq.Client
}

var _ payment.Notifier = (*Notifier)(nil)

func NewNotifier(redisOpt asynq.RedisClientOpt) *Notifier {
	return &Notifier{client: asynq.NewClient(redisOpt)}
}

func (n *Notifier) PaymentsCalculated(ctx context.Context, event payment.PaymentsCalculatedEvent) error {
	task, err := NewPaymentsCalculatedTask(event)
	if err != nil {
		return err
	}
	if _, err := n.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue payment notification: %w", err)
	}
	return nil
}

// Close releases client resources.
func (n *Notifier) Close() error {
	return n.client.Close()
}
