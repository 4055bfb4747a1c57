package bridge

import "github.com/viant/rover/config"

// Options represents the command line options.
type Options struct {
	Port      string `short:"p" long:"port" description:"serial port path"`
	Baud      int    `short:"b" long:"baud" description:"serial baud rate"`
	Addr      string `short:"a" long:"addr" description:"http listen address"`
	ConfigURL string `short:"c" long:"config" description:"config file URL (yaml)"`
	Assets    string `long:"assets" description:"static assets URL or directory"`
	LogLevel  string `short:"l" long:"log-level" description:"log level" choice:"debug" choice:"info" choice:"warn" choice:"error"`
}

// Apply overrides cfg with the options that were set.
func (o *Options) Apply(cfg *config.Config) {
	if o.Port != "" {
		cfg.Serial.Port = o.Port
	}
	if o.Baud > 0 {
		cfg.Serial.BaudRate = o.Baud
	}
	if o.Addr != "" {
		cfg.HTTP.Addr = o.Addr
	}
	if o.Assets != "" {
		cfg.HTTP.AssetsURL = o.Assets
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
}
