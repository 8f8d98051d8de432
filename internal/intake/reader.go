package intake

import (
	"time"

	"github.com/segmentio/kafka-go"

	"shiftcast/internal/config"
)

// NewKafkaReader builds a consumer-group reader for one intake topic from
// the shared Kafka configuration.
func NewKafkaReader(cfg config.KafkaConfig, topic string) *kafka.Reader {
	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1e3
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10e6
	}
	commitInterval := cfg.CommitInterval
	if commitInterval <= 0 {
		commitInterval = time.Second
	}

	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:         cfg.Brokers,
		GroupID:         cfg.GroupID,
		Topic:           topic,
		MinBytes:        minBytes,
		MaxBytes:        maxBytes,
		CommitInterval:  commitInterval,
		RetentionTime:   24 * time.Hour,
		ReadLagInterval: -1,
	})
}

// Topics returns the configured, non-empty intake topics.
func Topics(cfg config.KafkaConfig) []string {
	topics := make([]string, 0, 3)
	for _, topic := range []string{cfg.ForecastTopic, cfg.SnapshotTopic, cfg.ActualsTopic} {
		if topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}
