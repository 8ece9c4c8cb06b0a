package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/SuburbROI-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/SuburbROI-Intelligence/pkg/errors"
)

// TopicPredictions is the default prediction event topic.
const TopicPredictions = "suburb-roi.predictions"

// Event types.
const (
	EventPredictionCompleted = "prediction.completed"
)

const schemaVersion = "v1"

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// PredictionEvent describes one successful prediction.
type PredictionEvent struct {
	SuburbName          string    `json:"suburb_name,omitempty"`
	Mode                string    `json:"mode"`
	FeatureCount        int       `json:"feature_count"`
	PredictedROIPercent float64   `json:"predicted_roi_percent"`
	Percentile          float64   `json:"percentile"`
	Signal              string    `json:"signal"`
	CompletedAt         time.Time `json:"completed_at"`
}

// NewEventEnvelope wraps payload with a fresh event ID.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.  An empty payload is a no-op.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal payload")
	}
	return nil
}

// ToMessage serializes the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	msg := &Message{
		Topic: topic,
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// Publisher is the subset of Producer used by PredictionPublisher.
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// PredictionPublisher emits PredictionEvents on a single topic.
type PredictionPublisher struct {
	producer Publisher
	topic    string
	source   string
	metrics  *prometheus.AppMetrics
}

// NewPredictionPublisher returns a publisher for topic.  An empty topic
// selects TopicPredictions.
func NewPredictionPublisher(producer Publisher, topic, source string) *PredictionPublisher {
	if topic == "" {
		topic = TopicPredictions
	}
	return &PredictionPublisher{producer: producer, topic: topic, source: source}
}

// WithMetrics counts published and failed events.
func (p *PredictionPublisher) WithMetrics(m *prometheus.AppMetrics) *PredictionPublisher {
	p.metrics = m
	return p
}

// Topic returns the destination topic.
func (p *PredictionPublisher) Topic() string { return p.topic }

// PublishPrediction wraps ev in an envelope keyed by suburb name.
func (p *PredictionPublisher) PublishPrediction(ctx context.Context, ev *PredictionEvent) error {
	if ev == nil {
		return errors.New(errors.ErrCodeValidation, "event required")
	}
	env, err := NewEventEnvelope(EventPredictionCompleted, p.source, ev)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(p.topic, ev.SuburbName)
	if err != nil {
		return err
	}
	err = p.producer.Publish(ctx, msg)
	prometheus.RecordEventPublished(p.metrics, p.topic, err)
	return err
}
