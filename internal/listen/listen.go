// Package listen captures one utterance per call and classifies it.
package listen

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"math"
	"time"

	"jarvis/internal/config"
	"jarvis/internal/expression"
	"jarvis/internal/wake"
	"jarvis/pkg/stt"
)

const (
	SampleRate = stt.SampleRate
	FrameSize  = 320 // 20ms

	// dynamic threshold constants
	energyRatio     = 1.5
	adjustDamping   = 0.15
	preRoll         = 500 * time.Millisecond
	minPhrase       = 300 * time.Millisecond
	defaultDecodeTO = 30 * time.Second
)

var ErrWaitTimeout = errors.New("no speech before timeout")

type Outcome int

const (
	Command Outcome = iota
	NoWakeWord
	NoSpeechDetected
	TranscriptionUnavailable
)

func (o Outcome) String() string {
	switch o {
	case Command:
		return "command"
	case NoWakeWord:
		return "no-wake-word"
	case NoSpeechDetected:
		return "no-speech"
	case TranscriptionUnavailable:
		return "transcription-unavailable"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type Result struct {
	Kind       Outcome
	Command    wake.Command
	Transcript string
	// ServiceError is set when the recognition backend was unreachable.
	ServiceError bool
	Err          error
}

// Stream delivers fixed-size frames of mono float32 samples.
type Stream interface {
	Read(frame []float32) error
	Close() error
}

type Microphone interface {
	Open(sampleRate, frameSize int) (Stream, error)
}

type Expression interface {
	Send(code expression.Code)
}

// Tunables is the recognizer state that drifts during long runs.
type Tunables struct {
	EnergyThreshold float64
	PauseThreshold  time.Duration
	Dynamic         bool
}

type Config struct {
	Calibration     time.Duration
	WaitTimeout     time.Duration
	PhraseLimit     time.Duration
	DecodeTimeout   time.Duration
	InitialTunables Tunables
}

func ConfigFrom(c config.ListenConfig) Config {
	return Config{
		Calibration:   c.Calibration,
		WaitTimeout:   c.WaitTimeout,
		PhraseLimit:   c.PhraseLimit,
		DecodeTimeout: defaultDecodeTO,
		InitialTunables: Tunables{
			EnergyThreshold: c.EnergyThreshold,
			PauseThreshold:  c.PauseThreshold,
			Dynamic:         true,
		},
	}
}

type Capture struct {
	mic  Microphone
	stt  stt.Transcriber
	gate *wake.Gate
	expr Expression
	cfg  Config
	tun  Tunables
}

func New(mic Microphone, t stt.Transcriber, gate *wake.Gate, expr Expression, cfg Config) *Capture {
	if cfg.DecodeTimeout <= 0 {
		cfg.DecodeTimeout = defaultDecodeTO
	}
	return &Capture{
		mic:  mic,
		stt:  t,
		gate: gate,
		expr: expr,
		cfg:  cfg,
		tun:  cfg.InitialTunables,
	}
}

// Reset discards the adapted threshold state.
func (c *Capture) Reset() {
	c.tun = c.cfg.InitialTunables
}

func (c *Capture) Tunables() Tunables {
	return c.tun
}

// Listen makes one bounded attempt to hear and decode an utterance.
func (c *Capture) Listen(ctx context.Context) Result {
	pcm, err := c.record(ctx)
	if err != nil {
		if !errors.Is(err, ErrWaitTimeout) {
			log.Warn("Capture failed", "err", err)
		}
		return c.finish(Result{Kind: NoSpeechDetected, Err: err})
	}
	return c.decode(ctx, pcm)
}

// Replay classifies pre-recorded audio as if it had just been heard.
func (c *Capture) Replay(ctx context.Context, pcm []float32) Result {
	if len(pcm) == 0 {
		return c.finish(Result{Kind: NoSpeechDetected})
	}
	return c.decode(ctx, pcm)
}

// Transcript classifies text that bypassed audio capture.
func (c *Capture) Transcript(text string) Result {
	return c.classify(stt.Clean(text))
}

func (c *Capture) decode(ctx context.Context, pcm []float32) Result {
	if c.stt == nil {
		return c.finish(Result{Kind: TranscriptionUnavailable, Err: stt.ErrNoTranscriber})
	}

	dctx, cancel := context.WithTimeout(ctx, c.cfg.DecodeTimeout)
	defer cancel()

	text, err := c.stt.Transcribe(dctx, pcm)
	if err != nil {
		res := Result{Kind: TranscriptionUnavailable, Err: err}
		if errors.Is(err, stt.ErrServiceUnavailable) {
			res.ServiceError = true
		}
		return c.finish(res)
	}

	return c.classify(stt.Clean(text))
}

func (c *Capture) classify(text string) Result {
	if text == "" {
		return c.finish(Result{Kind: TranscriptionUnavailable, Err: stt.ErrUnintelligible})
	}

	log.Info("Heard", "text", text)

	cmd, ok := c.gate.Detect(text)
	if !ok {
		return c.finish(Result{Kind: NoWakeWord, Transcript: text})
	}
	return Result{Kind: Command, Command: cmd, Transcript: text}
}

// finish puts the device back to idle for every non-command outcome.
func (c *Capture) finish(r Result) Result {
	if r.Kind != Command && c.expr != nil {
		c.expr.Send(expression.Idle)
	}
	return r
}

func (c *Capture) record(ctx context.Context) ([]float32, error) {
	if c.mic == nil {
		return nil, errors.New("no microphone")
	}

	stream, err := c.mic.Open(SampleRate, FrameSize)
	if err != nil {
		return nil, fmt.Errorf("open microphone: %w", err)
	}
	defer stream.Close()

	frame := make([]float32, FrameSize)
	frameDur := time.Second * FrameSize / SampleRate

	if err := c.calibrate(stream, frame, frameDur); err != nil {
		return nil, err
	}
	log.Debug("Calibrated", "threshold", c.tun.EnergyThreshold)

	var (
		waited   time.Duration
		preFrame = int(preRoll / frameDur)
	)

	for {
		// wait for speech, keeping a short pre-roll of quiet audio
		var buf [][]float32
		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if waited > c.cfg.WaitTimeout {
				return nil, ErrWaitTimeout
			}
			if err := stream.Read(frame); err != nil {
				return nil, fmt.Errorf("read frame: %w", err)
			}
			waited += frameDur

			buf = append(buf, append([]float32(nil), frame...))
			if len(buf) > preFrame {
				buf = buf[1:]
			}

			energy := Energy(frame)
			if energy > c.tun.EnergyThreshold {
				break
			}
			if c.tun.Dynamic {
				c.adjust(energy, frameDur)
			}
		}

		// record until a long enough pause or the phrase limit
		var (
			phrase   = frameDur
			speaking = frameDur
			paused   time.Duration
		)
		for phrase < c.cfg.PhraseLimit {
			if err := stream.Read(frame); err != nil {
				return nil, fmt.Errorf("read frame: %w", err)
			}
			phrase += frameDur
			buf = append(buf, append([]float32(nil), frame...))

			if Energy(frame) > c.tun.EnergyThreshold {
				speaking += frameDur
				paused = 0
			} else {
				paused += frameDur
				if paused >= c.tun.PauseThreshold {
					break
				}
			}
		}
		waited += phrase

		if speaking >= minPhrase {
			return flatten(buf), nil
		}
	}
}

func (c *Capture) calibrate(stream Stream, frame []float32, frameDur time.Duration) error {
	for elapsed := time.Duration(0); elapsed < c.cfg.Calibration; elapsed += frameDur {
		if err := stream.Read(frame); err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		c.adjust(Energy(frame), frameDur)
	}
	return nil
}

func (c *Capture) adjust(energy float64, frameDur time.Duration) {
	damping := math.Pow(adjustDamping, frameDur.Seconds())
	target := energy * energyRatio
	c.tun.EnergyThreshold = c.tun.EnergyThreshold*damping + target*(1-damping)
}

// Energy is the RMS of frame on the 16-bit sample scale.
func Energy(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	var s float64
	for _, x := range frame {
		v := float64(x) * 32768
		s += v * v
	}
	return math.Sqrt(s / float64(len(frame)))
}

func flatten(frames [][]float32) []float32 {
	n := 0
	for _, f := range frames {
		n += len(f)
	}
	out := make([]float32, 0, n)
	for _, f := range frames {
		out = append(out, f...)
	}
	return out
}
