package notifier

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mtiunov/library-service-project/pkg/kafka"
)

type Message struct {
	Text string `json:"text"`
}

// Notifier publishes notification messages to the notification topic.
// Delivery to the end channel happens in the consumer; the producer side
// gives no guarantees beyond broker acknowledgement.
type Notifier struct {
	producer sarama.SyncProducer
	log      *zap.Logger
}

func New(producer sarama.SyncProducer, log *zap.Logger) *Notifier {
	return &Notifier{
		producer: producer,
		log:      log.Named("notifier"),
	}
}

func (n *Notifier) Notify(_ context.Context, text string) error {
	data, err := json.Marshal(Message{Text: text})
	if err != nil {
		return errors.Wrap(err, "marshal message")
	}
	msg := &sarama.ProducerMessage{Topic: kafka.NotificationTopic, Value: sarama.StringEncoder(data)}
	if _, _, err = n.producer.SendMessage(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}
