package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hnlive/hnlive/internal/hn"
)

// Kafka forwards announced items to a topic, one JSON message per item
// keyed by story id so compaction keeps the latest version of a story.
type Kafka struct {
	writer *kafka.Writer
}

// NewKafka creates a Kafka sink producing to the given brokers and topic.
func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 100 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (k *Kafka) Announce(ctx context.Context, item *hn.Item) error {
	value := []byte(item.Raw)
	if len(value) == 0 {
		var err error
		value, err = json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode item %d: %w", item.ID, err)
		}
	}

	err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.Itoa(item.ID)),
		Value: value,
		Time:  time.Unix(item.Time, 0),
	})
	if err != nil {
		return fmt.Errorf("kafka write item %d: %w", item.ID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.writer.Close()
}
