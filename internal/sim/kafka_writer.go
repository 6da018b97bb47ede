package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"dcmetrics-sim/internal/logging"
	"dcmetrics-sim/internal/telemetry"
)

// messageWriter is the subset of kafka.Writer used by KafkaWriter.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes readings to a Kafka topic, keyed by host id so a
// host's readings stay on one partition.
type KafkaWriter struct {
	producer messageWriter
	topic    string
}

// NewKafkaWriter dials the first reachable broker to fail fast on a bad
// address, then returns an async producer. Delivery failures are logged
// through the logger in ctx and never block the zone loops.
func NewKafkaWriter(ctx context.Context, brokers []string, topic string) (*KafkaWriter, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers")
	}
	if topic == "" {
		return nil, errors.New("kafka: empty topic")
	}
	if err := probeBrokers(ctx, brokers); err != nil {
		return nil, err
	}

	log := logging.FromContext(ctx)
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  true,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Completion: func(msgs []kafka.Message, err error) {
			if err != nil {
				log.Error("kafka delivery failed", "topic", topic, "messages", len(msgs), "err", err)
			}
		},
	}
	log.Info("connected to kafka", "brokers", brokers, "topic", topic)
	return &KafkaWriter{producer: w, topic: topic}, nil
}

func probeBrokers(ctx context.Context, brokers []string) error {
	var errs []error
	for _, b := range brokers {
		dctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		conn, err := kafka.DialContext(dctx, "tcp", b)
		cancel()
		if err == nil {
			return conn.Close()
		}
		errs = append(errs, fmt.Errorf("%s: %w", b, err))
	}
	return fmt.Errorf("kafka: no reachable broker: %w", errors.Join(errs...))
}

func (w *KafkaWriter) message(r telemetry.Reading) (kafka.Message, error) {
	data, err := r.Marshal()
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(r.HostID), Value: data, Time: r.Time()}, nil
}

// Write publishes one reading.
func (w *KafkaWriter) Write(r telemetry.Reading) error {
	return w.WriteBatch([]telemetry.Reading{r})
}

// WriteBatch publishes multiple readings.
func (w *KafkaWriter) WriteBatch(rows []telemetry.Reading) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(rows))
	for _, r := range rows {
		m, err := w.message(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, m)
	}
	return w.producer.WriteMessages(context.Background(), msgs...)
}

// Close flushes pending messages.
func (w *KafkaWriter) Close() error {
	return w.producer.Close()
}
