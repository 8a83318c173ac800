package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"storechat/internal/model"
	"storechat/internal/platform/rabbitmq"
)

type JobHandler interface {
	Handle(ctx context.Context, job model.NotificationJob) error
}

// NotificationWorker consumes notification jobs and hands them to a
// JobHandler. Jobs that cannot be decoded or handled are dropped.
type NotificationWorker struct {
	conn      *amqp.Connection
	handler   JobHandler
	queueName string
	prefetch  int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewNotificationWorker(conn *amqp.Connection, handler JobHandler, queueName string) *NotificationWorker {
	return &NotificationWorker{
		conn:      conn,
		handler:   handler,
		queueName: queueName,
		prefetch:  16,
	}
}

func (w *NotificationWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(w.prefetch, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.process(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *NotificationWorker) process(ctx context.Context, d amqp.Delivery) {
	var job model.NotificationJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		log.Printf("worker decode notification job failed: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if err := w.handler.Handle(ctx, job); err != nil {
		log.Printf("worker handle %s job for session %d failed: %v", job.Kind, job.SessionID, err)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

func (w *NotificationWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

// Inline publishes by handling the job on the caller's goroutine. It is used
// when no broker is configured.
type Inline struct {
	Handler JobHandler
}

func (i Inline) Publish(ctx context.Context, job model.NotificationJob) error {
	return i.Handler.Handle(ctx, job)
}
