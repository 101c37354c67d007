package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"shipstream/internal/config"
)

// Handler processes one received message. Returning an error schedules
// a retry or, once the receive budget is spent, a move to the DLQ.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error {
	return f(ctx, msg)
}

// Consumer polls one topic and dispatches messages to a pool of workers.
type Consumer struct {
	client  Client
	handler Handler
	topic   string
	log     *zap.Logger

	pollingInterval   time.Duration
	concurrency       int
	visibilityTimeout time.Duration
	retryInterval     time.Duration
	maximumReceives   int

	stop     chan struct{}
	stopOnce sync.Once
	msgChan  chan *Message
	activeWG sync.WaitGroup
}

// NewConsumer builds a Consumer for the given topic using the queue
// settings from the configuration.
func NewConsumer(client Client, topic string, handler Handler, c config.QueueConfig, log *zap.Logger) *Consumer {
	return &Consumer{
		client:            client,
		handler:           handler,
		topic:             topic,
		log:               log.With(zap.String("topic", topic)),
		pollingInterval:   c.PollingInterval,
		concurrency:       c.Concurrency,
		visibilityTimeout: time.Duration(c.VisibilityTimeoutSec) * time.Second,
		retryInterval:     time.Duration(c.RetryIntervalSec) * time.Second,
		maximumReceives:   c.MaximumReceives,
		stop:              make(chan struct{}),
	}
}

// Start polls the topic until Shutdown is called. It blocks, so callers
// usually run it in a goroutine.
func (c *Consumer) Start(ctx context.Context) {
	c.msgChan = make(chan *Message, c.concurrency)
	var workerWG sync.WaitGroup
	for i := 0; i < c.concurrency; i++ {
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			for msg := range c.msgChan {
				c.process(ctx, msg)
				c.activeWG.Done()
			}
		}()
	}

	ticker := time.NewTicker(c.pollingInterval)
	defer ticker.Stop()

	c.log.Info("consumer started", zap.Int("concurrency", c.concurrency))

	for {
		c.drain(ctx)

		select {
		case <-c.stop:
			close(c.msgChan)
			workerWG.Wait()
			return
		case <-ctx.Done():
			close(c.msgChan)
			workerWG.Wait()
			return
		case <-ticker.C:
		}
	}
}

// drain receives until the topic is empty or the worker pool is full.
func (c *Consumer) drain(ctx context.Context) {
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		msg, err := c.client.Receive(ctx, c.topic, c.visibilityTimeout)
		if errors.Is(err, ErrNoMessage) {
			return
		}
		if err != nil {
			c.log.Error("failed to receive message", zap.Error(err))
			return
		}

		c.activeWG.Add(1)
		select {
		case c.msgChan <- msg:
		case <-c.stop:
			c.activeWG.Done()
			if nackErr := c.client.ChangeVisibility(ctx, msg.ID, 0); nackErr != nil {
				c.log.Error("failed to release message", zap.String("message_id", msg.ID), zap.Error(nackErr))
			}
			return
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg *Message) {
	log := c.log.With(zap.String("message_id", msg.ID), zap.Int("receive_count", msg.ReceiveCount))

	if err := c.handler.Handle(ctx, msg); err != nil {
		if c.maximumReceives > 0 && msg.ReceiveCount >= c.maximumReceives {
			log.Error("message exhausted receives, moving to dlq", zap.Error(err))
			if dlqErr := c.client.MoveToDLQ(ctx, msg); dlqErr != nil {
				log.Error("failed to move message to dlq", zap.Error(dlqErr))
			}
			return
		}

		log.Warn("message handling failed, scheduling retry", zap.Error(err))
		if visErr := c.client.ChangeVisibility(ctx, msg.ID, c.retryInterval); visErr != nil {
			log.Error("failed to schedule retry", zap.Error(visErr))
		}
		return
	}

	if err := c.client.Delete(ctx, msg.ID); err != nil {
		log.Error("failed to delete handled message", zap.Error(err))
	}
}

// Shutdown stops polling and waits for in-flight messages up to the
// context deadline.
func (c *Consumer) Shutdown(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })

	done := make(chan struct{})
	go func() {
		c.activeWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.log.Info("consumer stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
