// Package broadcaster publishes fill events from the outbox to kafka and,
// optionally, postgres.
package broadcaster
