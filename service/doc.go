// Package service owns the feed handler and is the only path by which
// stream messages reach it.
//
// Each message is journaled, decoded and handled under one lock. Fills
// go to the outbox and on to the printer, and subaccount changes go to
// the reporter. When the handler fails, the service dumps the books and
// starts a fresh handler, which waits for the next snapshot.
package service
