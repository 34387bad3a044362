// Package countdown streams a purely informational countdown over a
// websocket. It does not touch stored timers.
package countdown

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	FinishedMessage = "TIMER_FINISHED"
	ErrorMessage    = "ERROR"

	writeWait = 10 * time.Second
	// Control frame payloads are limited to 125 bytes, two of which hold the code.
	maxReasonLen = 123
)

type Handler struct {
	registry *Registry
	upgrader websocket.Upgrader
	tick     time.Duration
	logger   *zap.Logger
}

func NewHandler(registry *Registry, tick time.Duration, logger *zap.Logger) *Handler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Handler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The stream reads no cookies, so any origin may connect.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		tick:     tick,
		logger:   logger,
	}
}

// Timer serves GET /ws/timer/{timer_seconds}.
func (h *Handler) Timer(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	raw := chi.URLParam(r, "timer_seconds")
	seconds, err := strconv.Atoi(raw)
	if err != nil {
		h.logger.Info("invalid timer value", zap.String("value", raw), zap.Error(err))
		h.closeWith(conn, websocket.ClosePolicyViolation, fmt.Sprintf("invalid timer format: %v", err))
		return
	}
	if seconds <= 0 {
		h.logger.Info("invalid timer value", zap.Int("value", seconds))
		h.closeWith(conn, websocket.ClosePolicyViolation, "invalid timer duration (must be > 0)")
		return
	}

	h.registry.Add(conn)
	defer h.registry.Remove(conn)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go h.watch(conn, cancel)

	h.countdown(ctx, conn, seconds)
}

// watch reads until the peer goes away, then deregisters and cancels the loop.
func (h *Handler) watch(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.registry.Remove(conn)
			return
		}
	}
}

func (h *Handler) countdown(ctx context.Context, conn *websocket.Conn, seconds int) {
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("countdown failed", zap.Any("panic", rec))
			_ = h.send(conn, ErrorMessage)
		}
	}()

	h.logger.Debug("countdown started", zap.Int("seconds", seconds))
	if err := h.send(conn, strconv.Itoa(seconds)); err != nil {
		h.registry.Remove(conn)
		return
	}

	ticker := time.NewTicker(h.tick)
	defer ticker.Stop()

	for remaining := seconds; remaining > 0; {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		remaining--

		if !h.registry.Contains(conn) {
			return
		}
		if err := h.send(conn, strconv.Itoa(remaining)); err != nil {
			h.registry.Remove(conn)
			return
		}
	}

	if err := h.send(conn, FinishedMessage); err != nil {
		h.registry.Remove(conn)
		return
	}

	// The peer decides when to close.
	<-ctx.Done()
}

func (h *Handler) send(conn *websocket.Conn, msg string) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}

func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	if len(reason) > maxReasonLen {
		reason = reason[:maxReasonLen]
	}
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("close frame not sent", zap.Error(err))
	}
}
