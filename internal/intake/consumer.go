package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrMalformed marks a payload that can never be processed, no matter how
// often it is redelivered. The processor commits such records instead of
// retrying them.
var ErrMalformed = errors.New("malformed record")

// Reader exposes the minimal kafka.Reader surface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded records from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of one Kafka record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	EventType string
	VenueID   string
	Payload   json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the processor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// Processor pulls records from Kafka, decodes them, and dispatches to a
// Handler. Offsets are committed only after the handler succeeds, except
// for malformed records which are committed immediately.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
}

// NewProcessor constructs a Processor over the reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  slog.Default().With(slog.String("component", "intake")),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run blocks processing records until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.Error("fetch record", slog.String("error", err.Error()))
			continue
		}

		event, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Warn("malformed record committed",
				slog.String("topic", msg.Topic),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.String("error", decodeErr.Error()))
			recordMalformed(msg.Topic)
			// Commit malformed records to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Error("commit after decode failure", slog.String("error", commitErr.Error()))
			}
			continue
		}

		if handleErr := p.handler.Handle(ctx, event); handleErr != nil {
			if errors.Is(handleErr, ErrMalformed) {
				p.logger.Warn("malformed record committed",
					slog.String("topic", event.Topic),
					slog.String("event_type", event.EventType),
					slog.String("error", handleErr.Error()))
				recordMalformed(event.Topic)
				if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
					p.logger.Error("commit after malformed payload", slog.String("error", commitErr.Error()))
				}
				continue
			}
			p.logger.Error("handle record",
				slog.String("topic", event.Topic),
				slog.String("event_type", event.EventType),
				slog.String("error", handleErr.Error()))
			recordHandlerError(event)
			continue
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Error("commit record", slog.String("error", commitErr.Error()))
		} else {
			recordProcessed(event)
		}
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, "event_type")
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	venueID, _ := headerValue(msg, "venue_id")

	payload := msg.Value
	// Some producers publish through a schema registry; strip the Confluent
	// wire frame (magic byte + 4-byte schema id) when present.
	if len(payload) >= 5 && payload[0] == 0x00 {
		payload = payload[5:]
	}
	if !json.Valid(payload) {
		return Message{}, fmt.Errorf("payload is not valid JSON (%d bytes)", len(payload))
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		EventType: string(eventType),
		VenueID:   string(venueID),
		Payload:   json.RawMessage(append([]byte(nil), payload...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
