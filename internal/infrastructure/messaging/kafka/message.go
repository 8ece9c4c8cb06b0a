// Package kafka publishes prediction events to Kafka through segmentio/kafka-go.
package kafka

import "time"

// Message is one record handed to the Producer.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}
