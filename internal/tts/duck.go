package tts

import (
	"context"
	log "log/slog"
	"time"
)

// Ducker lowers other audio while the assistant talks.
type Ducker interface {
	Duck(ctx context.Context) error
	Unduck(ctx context.Context) error
}

type duckingSpeaker struct {
	next   Speaker
	ducker Ducker
}

// WithDucking wraps s so other audio is lowered around each line. Ducking
// failures never prevent speech.
func WithDucking(s Speaker, d Ducker) Speaker {
	if d == nil {
		return s
	}
	return &duckingSpeaker{next: s, ducker: d}
}

func (d *duckingSpeaker) Speak(text string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := d.ducker.Duck(ctx); err != nil {
		log.Debug("Failed to duck audio", "err", err)
	}
	cancel()

	d.next.Speak(text)

	ctx, cancel = context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.ducker.Unduck(ctx); err != nil {
		log.Debug("Failed to restore audio", "err", err)
	}
}
