// Package ws is the websocket transport for the full node order book stream.
package ws
