// Package expression drives the attached expression device over a serial link.
// Each command is a single ASCII byte. Writes are fire-and-forget: nothing is
// read back and a missing device turns every send into a no-op.
package expression

import (
	"io"
	log "log/slog"
	"path/filepath"

	"go.bug.st/serial"
)

type Code byte

const (
	Activate  Code = 'u'
	Thinking  Code = 'h'
	Happy     Code = 'p'
	Uppercut  Code = 'U'
	Sad       Code = 's'
	Surprised Code = 'a'
	Idle      Code = 'l'
)

func (c Code) String() string {
	switch c {
	case Activate:
		return "activate"
	case Thinking:
		return "thinking"
	case Happy:
		return "happy"
	case Uppercut:
		return "uppercut"
	case Sad:
		return "sad"
	case Surprised:
		return "surprised"
	case Idle:
		return "idle"
	}
	return "unknown"
}

// DefaultPatterns are tried in order; the first match wins.
var DefaultPatterns = []string{
	"/dev/tty.usbserial*",
	"/dev/tty.usbmodem*",
	"/dev/cu.usbserial*",
	"/dev/cu.usbmodem*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
}

type Config struct {
	Patterns []string
	Fallback string
	Baud     int

	// Opener and Glob default to the serial driver and filepath.Glob.
	Opener func(path string, baud int) (io.WriteCloser, error)
	Glob   func(pattern string) ([]string, error)
}

// Channel is the single owner of the device connection.
type Channel struct {
	port io.WriteCloser
	path string
}

// Open looks for a device once. It never fails: when nothing can be opened
// the returned channel stays in the no-device state for its whole lifetime.
func Open(cfg Config) *Channel {
	if cfg.Baud <= 0 {
		cfg.Baud = 9600
	}
	if cfg.Patterns == nil {
		cfg.Patterns = DefaultPatterns
	}
	if cfg.Opener == nil {
		cfg.Opener = openSerial
	}
	if cfg.Glob == nil {
		cfg.Glob = filepath.Glob
	}

	path := detect(cfg)
	if path == "" {
		log.Warn("No expression device found, running voice-only")
		return &Channel{}
	}

	port, err := cfg.Opener(path, cfg.Baud)
	if err != nil {
		log.Warn("Unable to connect to expression device", "port", path, "err", err)
		return &Channel{}
	}

	log.Info("Expression device connected", "port", path, "baud", cfg.Baud)
	return &Channel{port: port, path: path}
}

// NewChannel wraps an already open writer.
func NewChannel(w io.WriteCloser) *Channel {
	return &Channel{port: w}
}

func detect(cfg Config) string {
	for _, pattern := range cfg.Patterns {
		matches, err := cfg.Glob(pattern)
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			return matches[0]
		}
	}
	return cfg.Fallback
}

func openSerial(path string, baud int) (io.WriteCloser, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (c *Channel) Connected() bool {
	return c != nil && c.port != nil
}

func (c *Channel) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Send writes exactly one byte. Errors are logged and dropped.
func (c *Channel) Send(code Code) {
	if !c.Connected() {
		return
	}
	if _, err := c.port.Write([]byte{byte(code)}); err != nil {
		log.Debug("Expression write failed", "code", code.String(), "err", err)
	}
}

// Close is best-effort; the channel is disconnected afterwards either way.
func (c *Channel) Close() {
	if !c.Connected() {
		return
	}
	if err := c.port.Close(); err != nil {
		log.Debug("Expression close failed", "err", err)
	}
	c.port = nil
}
