// internal/service/order/interfaces/dlt_handler.go
package interfaces

import (
	"context"
	"sync"
	"sync/atomic"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/pkg/mq"

	"github.com/segmentio/kafka-go"
)

// DltConsumerAdapter 监听死信队列并记录日志
type DltConsumerAdapter struct {
	reader  mq.MessageReader
	topic   string
	wg      sync.WaitGroup
	stopped atomic.Bool
}

func NewDltConsumerAdapter(reader mq.MessageReader, topic string) *DltConsumerAdapter {
	return &DltConsumerAdapter{reader: reader, topic: topic}
}

func (a *DltConsumerAdapter) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ DLT Consumer Adapter started.")
		for {
			if a.stopped.Load() {
				return
			}
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || a.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("🛑 DLT Consumer Adapter shutting down.")
					return
				}
				continue
			}

			logDeadLetter(ctx, msg)

			// 死信只需记录，记录后即提交
			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit dead letter")
			}
		}
	}()
	return nil
}

func (a *DltConsumerAdapter) Stop(ctx context.Context) {
	a.stopped.Store(true)
	_ = a.reader.Close()
	a.wg.Wait()
	logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ DLT Consumer Adapter stopped.")
}

func logDeadLetter(ctx context.Context, msg kafka.Message) {
	headers := make(map[string]string)
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}

	logger.Ctx(ctx).Error().
		Str("reason", "dead_letter_message_received").
		Str("original_topic", headers[mq.HeaderOriginalTopic]).
		Str("original_partition", headers[mq.HeaderOriginalPartition]).
		Str("original_offset", headers[mq.HeaderOriginalOffset]).
		Str("exception_fqcn", headers[mq.HeaderExceptionFqcn]).
		Str("exception_message", headers[mq.HeaderExceptionMessage]).
		Str("key", string(msg.Key)).
		Str("value", string(msg.Value)).
		Msg("🚨 CRITICAL: Dead letter message received")
}
