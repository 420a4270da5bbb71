package notifier

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

type sendMessage func(ctx context.Context, text string) error

type Consumer struct {
	sendHandler sendMessage
	log         *zap.Logger
	ready       chan bool
}

func NewConsumer(send sendMessage, log *zap.Logger) *Consumer {
	return &Consumer{
		sendHandler: send,
		log:         log.Named("consumer"),
		ready:       make(chan bool),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	// Mark the consumer as ready
	close(consumer.ready)
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited.
func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var msg Message
			if err := json.Unmarshal(message.Value, &msg); err != nil {
				consumer.log.Error("", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			// Best-effort: a failed send is logged and the message is
			// marked anyway, never redelivered.
			if err := consumer.sendHandler(context.Background(), msg.Text); err != nil {
				consumer.log.Error("consumer.sendHandler", zap.Error(err))
			}

			consumer.log.Debug("Message claimed:", zap.String("value", string(message.Value)), zap.Time("timestamp", message.Timestamp), zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
