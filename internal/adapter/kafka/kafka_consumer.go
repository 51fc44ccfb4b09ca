package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/aq2208/gorder-shop/internal/logging"
	"github.com/aq2208/gorder-shop/internal/usecase"
)

// HandlerFunc processes a decoded event.
type HandlerFunc func(ctx context.Context, ev usecase.FulfilmentStatusMsg) error

// ErrPermanent marks an event that will fail the same way on every retry.
var ErrPermanent = errors.New("permanent failure")

// Consumer consumes a topic with a single handler.
type Consumer struct {
	Group  sarama.ConsumerGroup
	Topics []string
	Handle HandlerFunc
	Logger *slog.Logger
}

func NewConsumer(group sarama.ConsumerGroup, topics []string, h HandlerFunc) *Consumer {
	return &Consumer{
		Group:  group,
		Topics: topics,
		Handle: h,
		Logger: logging.New("kafka"),
	}
}

// Start blocks until ctx is cancelled or the group fails.
func (c *Consumer) Start(ctx context.Context) error {
	go func() {
		for err := range c.Group.Errors() {
			c.Logger.Error("consumer group error", "err", err)
		}
	}()

	handler := &cgHandler{handle: c.Handle, logger: c.Logger}
	for {
		if err := c.Group.Consume(ctx, c.Topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			return err
		}
		// When Consume returns, it’s because ctx was cancelled or a rebalance happened.
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error { return c.Group.Close() }

type cgHandler struct {
	handle HandlerFunc
	logger *slog.Logger
}

func (h *cgHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *cgHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *cgHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if h.process(sess.Context(), msg) {
			sess.MarkMessage(msg, "")
		}
	}
	return nil
}

// process reports whether the message is done with (handled, or never going to be).
func (h *cgHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	l := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", string(msg.Key))

	var ev usecase.FulfilmentStatusMsg
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		// mark to avoid reprocessing poison
		l.Warn("kafka decode error", "err", err)
		return true
	}
	if err := h.handle(logging.WithCtx(ctx, l), ev); err != nil {
		if errors.Is(err, ErrPermanent) {
			l.Warn("kafka event rejected", "order_id", ev.OrderID, "err", err)
			return true
		}
		// Do not mark message; let it retry on next poll.
		l.Error("kafka handler error", "order_id", ev.OrderID, "err", err)
		return false
	}
	return true
}
