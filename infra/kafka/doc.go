// Package kafka wraps segmentio/kafka-go for the stream source and the
// subaccount report producer.
package kafka
