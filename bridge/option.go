package bridge

import (
	"github.com/viant/afs/storage"
	"github.com/viant/rover/device"
	"go.uber.org/zap"
)

// Option configures a Service.
type Option func(s *Service)

// WithLogger sets the service logger; components log under named children.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithOpener replaces the serial port opener.
func WithOpener(opener device.Opener) Option {
	return func(s *Service) {
		s.opener = opener
	}
}

// WithAssetOptions passes storage options (for example embed.FS holders) to
// the assets handler.
func WithAssetOptions(options ...storage.Option) Option {
	return func(s *Service) {
		s.assetOptions = append(s.assetOptions, options...)
	}
}
