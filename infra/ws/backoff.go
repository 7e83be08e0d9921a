package ws

import "time"

const (
	baseDelay = time.Second
	maxDelay  = 60 * time.Second
)

// Backoff doubles from one second per failed attempt, capped at a minute.
func Backoff(retry int) time.Duration {
	if retry < 0 {
		return baseDelay
	}
	if retry > 30 {
		return maxDelay
	}
	d := baseDelay * time.Duration(1<<retry)
	if d > maxDelay {
		return maxDelay
	}
	return d
}
