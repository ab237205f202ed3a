package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docqa/internal/model"
	"docqa/internal/platform/rabbitmq"
)

type ConversationStore interface {
	Create(ctx context.Context, conv *model.Conversation) error
}

// ConversationPersistWorker drains the conversation queue into the database.
type ConversationPersistWorker struct {
	conn      *amqp.Connection
	store     ConversationStore
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewConversationPersistWorker(conn *amqp.Connection, store ConversationStore, queueName string, logger *slog.Logger) *ConversationPersistWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConversationPersistWorker{
		conn:      conn,
		store:     store,
		queueName: queueName,
		logger:    logger,
	}
}

func (w *ConversationPersistWorker) Start(ctx context.Context) error {
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

	if _, err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
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
				if err := w.Handle(workerCtx, d.Body); err != nil {
					w.logger.Error("persist conversation failed", "queue", w.queueName, "err", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// Handle decodes one delivery body and stores it.
func (w *ConversationPersistWorker) Handle(ctx context.Context, body []byte) error {
	var conv model.Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return fmt.Errorf("decode conversation failed: %w", err)
	}
	conv.ID = 0
	return w.store.Create(ctx, &conv)
}

func (w *ConversationPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
