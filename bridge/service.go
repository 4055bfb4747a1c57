package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/viant/afs/storage"
	"github.com/viant/rover/config"
	"github.com/viant/rover/device"
	"github.com/viant/rover/internal/logging"
	"github.com/viant/rover/schema"
	"github.com/viant/rover/server"
	"github.com/viant/rover/session"
	"go.uber.org/zap"
)

// ShutdownTimeout bounds the graceful HTTP shutdown.
const ShutdownTimeout = 5 * time.Second

// Service represents the rover bridge process.
type Service struct {
	config       *config.Config
	link         *device.Link
	manager      *session.Manager
	server       *server.Server
	httpServer   *http.Server
	opener       device.Opener
	assetOptions []storage.Option
	logger       *zap.Logger
	shutdownOnce sync.Once
	readCancel   context.CancelFunc
	readDone     chan struct{}
}

// New creates a bridge service for cfg.
func New(cfg *config.Config, options ...Option) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ret := &Service{config: cfg, opener: device.SerialOpener}
	for _, option := range options {
		option(ret)
	}
	ret.logger = logging.Named(ret.logger, "bridge")

	ret.link = device.New(
		device.WithOpener(ret.opener),
		device.WithOpenTimeout(cfg.Serial.OpenTimeout),
		device.WithDefaults(cfg.Serial.Port, cfg.Serial.BaudRate),
		device.WithLogger(ret.logger.Named("device")),
	)
	ret.manager = session.NewManager(ret.link, session.WithLogger(ret.logger.Named("session")))
	ret.link.Watch(ret.manager.NotifyState)

	var serverOptions = []server.Option{
		server.WithAddr(cfg.HTTP.Addr),
		server.WithCORS(cfg.Cors()),
		server.WithLogger(ret.logger.Named("http")),
	}
	if URL := cfg.AssetsLocation(); URL != "" {
		serverOptions = append(serverOptions, server.WithAssetsURL(URL, ret.assetOptions...))
	}
	var err error
	if ret.server, err = server.New(ret.manager, serverOptions...); err != nil {
		return nil, fmt.Errorf("failed to create http server: %w", err)
	}
	ret.httpServer = ret.server.HTTP(cfg.HTTP.Addr)
	// a stream accepted while shutdown starts still ends with its session
	ret.httpServer.RegisterOnShutdown(ret.manager.Close)
	return ret, nil
}

// Link returns the device link.
func (s *Service) Link() *device.Link {
	return s.link
}

// Manager returns the session manager.
func (s *Service) Manager() *session.Manager {
	return s.manager
}

// Handler returns the HTTP handler tree.
func (s *Service) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start connects to the device, falling back to dev mode, and starts the
// device reader.
func (s *Service) Start(ctx context.Context) schema.LinkState {
	state := s.link.Connect(ctx, s.config.Serial.Port, s.config.Serial.BaudRate)
	readCtx, cancel := context.WithCancel(context.Background())
	s.readCancel = cancel
	s.readDone = make(chan struct{})
	go s.readLoop(readCtx)
	s.logger.Info("rover bridge started",
		zap.String("addr", s.config.HTTP.Addr),
		zap.String("port", s.config.Serial.Port),
		zap.Stringer("link", state))
	return state
}

// readLoop logs device output; the rover firmware only echoes diagnostics.
func (s *Service) readLoop(ctx context.Context) {
	defer close(s.readDone)
	for ctx.Err() == nil {
		if !s.link.Connected() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(device.ReadTimeout):
			}
			continue
		}
		if line, ok := s.link.Read(); ok {
			s.logger.Debug("serial RX", zap.String("line", line))
		}
	}
}

// Serve accepts sessions on the configured address until ctx is done, then
// shuts down.
func (s *Service) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Shutdown(context.Background())
		return fmt.Errorf("failed to listen on %v: %w", s.httpServer.Addr, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve on an existing listener.
func (s *Service) ServeListener(ctx context.Context, listener net.Listener) error {
	s.logger.Info("http listening", zap.String("addr", listener.Addr().String()))
	done := make(chan error, 1)
	go func() {
		done <- s.httpServer.Serve(listener)
	}()
	select {
	case err := <-done:
		s.Shutdown(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		s.Shutdown(shutdownCtx)
		if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// Reconnect reopens the device with the configured port and baud rate.
func (s *Service) Reconnect(ctx context.Context) schema.LinkState {
	state := s.link.Reconnect(ctx)
	s.logger.Info("rover bridge reconnected", zap.Stringer("link", state))
	return state
}

// Shutdown stops accepting sessions, closes active sessions and releases the
// device. It is safe to call more than once.
func (s *Service) Shutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		// sessions first: their websocket connections and notification streams
		// end with them, leaving http.Server only short requests to drain
		s.manager.Close()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Warn("http shutdown incomplete, closing connections", zap.Error(err))
			_ = s.httpServer.Close()
		}
		if s.readCancel != nil {
			s.readCancel()
			<-s.readDone
		}
		s.link.Disconnect()
		s.logger.Info("rover bridge stopped")
	})
}
