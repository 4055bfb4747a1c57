// Package ws serves rover sessions over websocket, one JSON message per frame.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/schema"
	"github.com/viant/rover/session"
	"go.uber.org/zap"
	"golang.org/x/net/websocket"
)

const (
	DefaultMaxPayloadBytes = 4 << 10
	DefaultWriteTimeout    = 5 * time.Second
)

// Handler upgrades requests to websocket sessions.
type Handler struct {
	manager         *session.Manager
	logger          *zap.Logger
	allowedOrigins  map[string]bool
	maxPayloadBytes int
	writeTimeout    time.Duration
	server          websocket.Server
}

// New creates a websocket handler registering sessions with manager.
func New(manager *session.Manager, options ...Option) *Handler {
	ret := &Handler{
		manager:         manager,
		maxPayloadBytes: DefaultMaxPayloadBytes,
		writeTimeout:    DefaultWriteTimeout,
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = logging.Named(ret.logger, "ws")
	ret.server = websocket.Server{Handshake: ret.handshake, Handler: ret.serve}
	return ret
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.server.ServeHTTP(w, r)
}

// handshake accepts requests without Origin and origins on the allow list;
// an empty allow list or "*" permits any origin.
func (h *Handler) handshake(config *websocket.Config, r *http.Request) error {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return nil
	}
	parsed, err := url.ParseRequestURI(origin)
	if err != nil {
		return fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if len(h.allowedOrigins) > 0 && !h.allowedOrigins["*"] && !h.allowedOrigins[origin] {
		h.logger.Warn("websocket origin rejected", zap.String("origin", origin), zap.String("remote", r.RemoteAddr))
		return fmt.Errorf("origin %q not allowed", origin)
	}
	config.Origin = parsed
	return nil
}

func (h *Handler) serve(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()
	conn.MaxPayloadBytes = h.maxPayloadBytes
	ctx := context.Background()
	if request := conn.Request(); request != nil {
		ctx = request.Context()
	}
	s := session.New(ctx, &sender{conn: conn, timeout: h.writeTimeout})
	h.manager.Register(s)
	defer h.manager.Unregister(s)
	go func() {
		// unblocks Receive when the session is closed elsewhere (shutdown, dead writer)
		<-s.Done()
		_ = conn.Close()
	}()

	for {
		var raw []byte
		err := websocket.Message.Receive(conn, &raw)
		switch {
		case err == nil:
		case errors.Is(err, websocket.ErrFrameTooLarge):
			raw = nil
		default:
			if !errors.Is(err, io.EOF) {
				h.logger.Debug("websocket receive failed", zap.String("session", s.ID), zap.Error(err))
			}
			return
		}
		if err = h.manager.Handle(s, raw); err != nil {
			return
		}
	}
}

// sender writes messages as JSON text frames. Only the session writer calls it.
type sender struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (s *sender) Send(_ context.Context, message *schema.Message) error {
	if s.timeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
			return err
		}
	}
	return websocket.JSON.Send(s.conn, message)
}
