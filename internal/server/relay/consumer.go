package relay

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/abroadportal/internal/common"
	"github.com/dmitrijs2005/abroadportal/internal/logging"
	"github.com/dmitrijs2005/abroadportal/internal/server/models"
	"github.com/segmentio/kafka-go"
)

// InboundHandler processes one media reply forwarded by the relay.
type InboundHandler interface {
	HandleInbound(ctx context.Context, m models.InboundMedia) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler InboundHandler
	logger  logging.Logger
}

func NewConsumer(cfg KafkaConfig, topic, groupID string, h InboundHandler, l logging.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		Dialer:   cfg.dialer(),
	})
	return &Consumer{reader: reader, handler: h, logger: l.With("module", "relay_consumer")}
}

// Run consumes until ctx is cancelled. Every fetched message is committed,
// including ones that fail to decode or to apply; the relay does not retry.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info(ctx, "Starting relay consumer")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		c.handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error(ctx, "commit failed", "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var m models.InboundMedia
	if err := json.Unmarshal(msg.Value, &m); err != nil {
		c.logger.Warn(ctx, "malformed inbound message", "offset", msg.Offset, "error", err)
		return
	}

	err := c.handler.HandleInbound(ctx, m)
	switch {
	case err == nil:
		c.logger.Info(ctx, "inbound media applied", "offset", msg.Offset)
	case common.IsInformational(err), errors.Is(err, common.ErrorNotFound):
		c.logger.Info(ctx, "inbound media ignored", "offset", msg.Offset, "reason", err.Error())
	default:
		c.logger.Error(ctx, "inbound media failed", "offset", msg.Offset, "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
