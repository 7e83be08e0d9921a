package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// MessageFunc consumes one raw stream message. A non-nil error drops the
// connection; the worker reconnects and the new subscription starts with a
// fresh snapshot.
type MessageFunc func(ctx context.Context, raw []byte) error

// Worker keeps a subscription to the full node websocket open, reconnecting
// with backoff.
type Worker struct {
	url    string
	logger zerolog.Logger

	// OnConnect runs after every successful dial, before the first message
	// of the new subscription is read.
	OnConnect func(ctx context.Context) error

	ReadTimeout  time.Duration
	PingInterval time.Duration

	mu      sync.RWMutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewWorker(url string, logger zerolog.Logger) *Worker {
	return &Worker{
		url:          url,
		logger:       logger.With().Str("component", "ws").Logger(),
		ReadTimeout:  60 * time.Second,
		PingInterval: 30 * time.Second,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, fn MessageFunc) error {
	defer w.close()
	retry := 0

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := w.connect(ctx); err != nil {
			delay := Backoff(retry)
			w.logger.Warn().Err(err).Int("retry", retry).Dur("delay", delay).Msg("connect failed")
			retry++

			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
				continue
			}
		}

		retry = 0
		if err := w.process(ctx, fn); err != nil {
			w.logger.Error().Err(err).Msg("dropping subscription")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(baseDelay):
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, w.url, http.Header{})
	if err != nil {
		return err
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(w.ReadTimeout))
	})

	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()

	if w.OnConnect != nil {
		if err := w.OnConnect(ctx); err != nil {
			w.close()
			return fmt.Errorf("on connect: %w", err)
		}
	}

	if w.PingInterval > 0 {
		go w.pingLoop(ctx, conn)
	}

	w.logger.Info().Str("url", w.url).Msg("connected")
	return nil
}

func (w *Worker) process(ctx context.Context, fn MessageFunc) error {
	defer w.close()

	// Unblock ReadMessage on shutdown.
	stop := context.AfterFunc(ctx, w.close)
	defer stop()

	for {
		w.mu.RLock()
		c := w.conn
		w.mu.RUnlock()
		if c == nil {
			return nil
		}

		_ = c.SetReadDeadline(time.Now().Add(w.ReadTimeout))
		_, msg, err := c.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, websocket.ErrCloseSent) {
				return nil
			}
			w.logger.Warn().Err(err).Msg("read failed")
			return nil
		}

		if err := fn(ctx, msg); err != nil {
			return err
		}
	}
}

func (w *Worker) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(w.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.RLock()
			current := w.conn
			w.mu.RUnlock()
			if current != conn {
				return
			}

			w.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			w.writeMu.Unlock()
			if err != nil {
				w.logger.Warn().Err(err).Msg("ping failed")
				w.close()
				return
			}
		}
	}
}

func (w *Worker) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}
