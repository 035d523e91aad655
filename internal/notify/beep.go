// Package notify plays the short earcon that acknowledges the wake word.
package notify

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

var ErrUnsupported = errors.New("unsupported earcon format")

// Earcon plays one sound file to completion. The zero path disables it.
type Earcon struct {
	path string

	once    sync.Once
	rate    beep.SampleRate
	initErr error
}

func NewEarcon(path string) *Earcon {
	return &Earcon{path: path}
}

// Play blocks until the sound has finished or the timeout expires.
func (e *Earcon) Play() error {
	if e == nil || e.path == "" {
		return nil
	}

	f, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("open earcon: %w", err)
	}

	streamer, format, err := decode(f, e.path)
	if err != nil {
		f.Close()
		return err
	}
	defer streamer.Close()

	e.once.Do(func() {
		e.rate = format.SampleRate
		e.initErr = speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10))
	})
	if e.initErr != nil {
		return fmt.Errorf("init speaker: %w", e.initErr)
	}

	var s beep.Streamer = streamer
	if format.SampleRate != e.rate {
		s = beep.Resample(4, format.SampleRate, e.rate, streamer)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(s, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		speaker.Clear()
		return errors.New("earcon timed out")
	}
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3.Decode(f)
	case ".wav":
		return wav.Decode(f)
	default:
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Base(path))
	}
}
