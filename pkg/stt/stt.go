// Package stt turns 16 kHz mono PCM into text.
package stt

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
)

const SampleRate = 16000

var (
	// ErrUnintelligible means audio was decoded but produced no words.
	ErrUnintelligible = errors.New("speech not understood")
	// ErrServiceUnavailable means the recognition backend could not be reached.
	ErrServiceUnavailable = errors.New("speech service unavailable")
	ErrNoTranscriber      = errors.New("no transcriber configured")
)

// Transcriber decodes pcm (mono, 16 kHz, float32 in [-1, 1]).
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

type named struct {
	name string
	t    Transcriber
}

// Chain tries transcribers in order. Audio judged unintelligible stops the
// chain; any other failure moves on to the next backend.
type Chain struct {
	links []named
}

func NewChain() *Chain {
	return &Chain{}
}

func (c *Chain) Add(name string, t Transcriber) *Chain {
	if t != nil {
		c.links = append(c.links, named{name: name, t: t})
	}
	return c
}

func (c *Chain) Len() int {
	return len(c.links)
}

func (c *Chain) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(c.links) == 0 {
		return "", ErrNoTranscriber
	}

	var last error
	for _, l := range c.links {
		text, err := l.t.Transcribe(ctx, pcm)
		if err == nil {
			text = Clean(text)
			if text == "" {
				return "", ErrUnintelligible
			}
			return text, nil
		}
		if errors.Is(err, ErrUnintelligible) {
			return "", err
		}
		log.Warn("Transcriber failed", "backend", l.name, "err", err)
		last = fmt.Errorf("%s: %w", l.name, err)
	}
	return "", last
}

// Clean lowercases text and strips the bracketed annotations recognizers emit
// for non-speech, such as "[BLANK_AUDIO]" or "(music)".
func Clean(text string) string {
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch r {
		case '[', '(':
			depth++
			continue
		case ']', ')':
			if depth > 0 {
				depth--
				continue
			}
		}
		if depth == 0 {
			b.WriteRune(r)
		}
	}
	return strings.ToLower(strings.Join(strings.Fields(b.String()), " "))
}
