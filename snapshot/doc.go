// Package snapshot writes post-mortem dumps of the books when the feed
// handler fails, so the state that led to the failure can be inspected
// after the handler has been reset.
package snapshot
