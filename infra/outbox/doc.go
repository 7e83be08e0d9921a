// Package outbox keeps fill events in pebble until a publisher has
// delivered them.
package outbox
