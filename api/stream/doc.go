// Package stream defines the JSON shape of the full node's orderbook
// stream and converts its records into domain values.
package stream
