// internal/service/order/interfaces/payment_result_consumer.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/pkg/mq"
	"partsmarket/internal/service/order/domain"
	"partsmarket/internal/service/order/domain/port"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const paymentResultConsumer = "payment-result-consumer"

// TransactionService 是消费者驱动的交易用例
type TransactionService interface {
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	Process(ctx context.Context, id string) (*domain.Transaction, error)
	Confirm(ctx context.Context, id string) (*domain.Transaction, error)
	Refuse(ctx context.Context, id, reason string) (*domain.Transaction, error)
}

// PaymentResultConsumer 监听支付网关结果主题，把结果应用到交易上
type PaymentResultConsumer struct {
	reader         mq.MessageReader
	topic          string
	svc            TransactionService
	dedup          port.EventDeduplicator
	failureHandler *mq.FailureHandler
	wg             sync.WaitGroup
	stopped        atomic.Bool
}

func NewPaymentResultConsumer(reader mq.MessageReader, topic string, svc TransactionService,
	dedup port.EventDeduplicator, failureHandler *mq.FailureHandler) *PaymentResultConsumer {
	return &PaymentResultConsumer{
		reader:         reader,
		topic:          topic,
		svc:            svc,
		dedup:          dedup,
		failureHandler: failureHandler,
	}
}

// Start 开始监听。处理失败的消息转投 DLT 后照常提交 offset
func (a *PaymentResultConsumer) Start(ctx context.Context) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ Payment result consumer started.")
		for {
			if a.stopped.Load() {
				return
			}
			msg, err := a.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || a.stopped.Load() {
					logger.Ctx(ctx).Info().Msg("🛑 Payment result consumer shutting down.")
					return
				}
				logger.Ctx(ctx).Error().Err(err).Msg("could not fetch message, retrying")
				time.Sleep(time.Second)
				continue
			}

			headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
			msgCtx := otel.GetTextMapPropagator().Extract(ctx, &headerCarrier)

			if err := a.processMessage(msgCtx, msg); err != nil {
				a.failureHandler.Handle(msgCtx, msg, err)
			}

			if err := a.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("failed to commit message")
			}
		}
	}()
	return nil
}

func (a *PaymentResultConsumer) Stop(ctx context.Context) {
	a.stopped.Store(true)
	if err := a.reader.Close(); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("failed to close payment result reader")
	}
	a.wg.Wait()
	logger.Ctx(ctx).Info().Str("topic", a.topic).Msg("✅ Payment result consumer stopped.")
}

// processMessage 解析并去重，重复投递的事件直接跳过
func (a *PaymentResultConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.PaymentResultReceived
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return errors.Wrap(err, "decode payment result")
	}
	if event.EventID == "" || event.TransactionID == "" {
		return errors.Wrap(domain.ErrInvalidArgument, "payment result requires eventId and transactionId")
	}

	if a.dedup != nil {
		first, err := a.dedup.MarkProcessed(ctx, paymentResultConsumer, event.EventID)
		if err != nil {
			return errors.Wrap(err, "mark payment result processed")
		}
		if !first {
			logger.Ctx(ctx).Info().Str("event_id", event.EventID).Msg("duplicate payment result skipped")
			return nil
		}
	}

	if err := a.apply(ctx, &event); err != nil {
		if a.dedup != nil {
			if ferr := a.dedup.Forget(ctx, paymentResultConsumer, event.EventID); ferr != nil {
				logger.Ctx(ctx).Warn().Err(ferr).Str("event_id", event.EventID).Msg("failed to release dedup marker")
			}
		}
		return err
	}
	return nil
}

func (a *PaymentResultConsumer) apply(ctx context.Context, event *domain.PaymentResultReceived) error {
	t, err := a.svc.GetTransaction(ctx, event.TransactionID)
	if err != nil {
		return err
	}

	switch event.Outcome {
	case domain.OutcomeApproved:
		if t.Status == domain.TxConfirmed {
			return nil
		}
		if t.Status == domain.TxPending {
			if _, err := a.svc.Process(ctx, t.ID); err != nil {
				return err
			}
		}
		_, err = a.svc.Confirm(ctx, t.ID)
	case domain.OutcomeDeclined:
		if t.Status == domain.TxRefused {
			return nil
		}
		_, err = a.svc.Refuse(ctx, t.ID, event.Reason)
	default:
		return errors.Wrapf(domain.ErrInvalidArgument, "unknown payment outcome %q", event.Outcome)
	}
	if err != nil {
		return err
	}
	logger.Ctx(ctx).Info().Str("tx.id", t.ID).Str("outcome", string(event.Outcome)).Msg("payment result applied")
	return nil
}
