// Package activity appends every dispatched command to a flat log file and
// optionally mirrors it to the hub.
package activity

import (
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"jarvis/pkg/protocol"
)

const timeLayout = "2006-01-02 15:04:05.000000"

type Publisher interface {
	Publish(m protocol.Message) error
}

type Log struct {
	mu   sync.Mutex
	path string
	bus  Publisher
	now  func() time.Time
}

// New returns a log writing to path. bus may be nil.
func New(path string, bus Publisher) *Log {
	return &Log{path: path, bus: bus, now: time.Now}
}

// Record appends "timestamp: command". Failures are logged and dropped.
func (l *Log) Record(command string) {
	command = strings.ReplaceAll(command, "\n", " ")

	if err := l.append(command); err != nil {
		log.Warn("Failed to write activity log", "path", l.path, "err", err)
	}

	if l.bus != nil {
		msg := protocol.Message{
			To:   "HUB",
			Verb: "LOG",
			Noun: "CMD",
			Args: []string{protocol.Token(command)},
		}
		if err := l.bus.Publish(msg); err != nil {
			log.Debug("Failed to publish activity", "err", err)
		}
	}
}

func (l *Log) append(command string) error {
	if l.path == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s: %s\n", l.now().Format(timeLayout), command); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
