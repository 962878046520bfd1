// internal/pkg/mq/failure_handler.go
package mq

import (
	"context"
	"fmt"
	"strconv"

	"partsmarket/internal/pkg/logger"

	"github.com/segmentio/kafka-go"
)

const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionFqcn     = "x-exception-fqcn"
	HeaderExceptionMessage  = "x-exception-message"
)

// FailureHandler 把处理失败的消息转投到死信队列 (DLT)
type FailureHandler struct {
	dltWriter MessageWriter
}

func NewFailureHandler(dltWriter MessageWriter) *FailureHandler {
	return &FailureHandler{dltWriter: dltWriter}
}

// Handle 保留原始消息体，并在消息头中记录来源与失败原因
func (h *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	if h == nil || h.dltWriter == nil {
		logger.Ctx(ctx).Error().Err(cause).Str("topic", msg.Topic).Msg("message failed and no DLT is configured")
		return
	}

	headers := make([]kafka.Header, 0, len(msg.Headers)+5)
	headers = append(headers, msg.Headers...)
	headers = append(headers,
		kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
		kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
		kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
		kafka.Header{Key: HeaderExceptionFqcn, Value: []byte(fmt.Sprintf("%T", cause))},
		kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
	)

	err := h.dltWriter.WriteMessages(ctx, kafka.Message{Key: msg.Key, Value: msg.Value, Headers: headers})
	if err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("original_topic", msg.Topic).Msg("CRITICAL: failed to forward message to DLT")
		return
	}
	logger.Ctx(ctx).Warn().Err(cause).Str("original_topic", msg.Topic).Int64("offset", msg.Offset).Msg("message forwarded to DLT")
}
