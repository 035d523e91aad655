// Package session runs the listen, detect and dispatch loop and keeps it
// healthy over long runs.
package session

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	"jarvis/internal/expression"
	"jarvis/internal/listen"
	"jarvis/internal/wake"
)

const (
	DefaultResetInterval = 5 * time.Minute
	DefaultCycleSleep    = 100 * time.Millisecond
	DefaultDispatchPause = 500 * time.Millisecond

	serviceApology = "I'm having trouble connecting to the speech recognition service"
	farewell       = "Shutting down. Goodbye."
)

var SelfTest = []string{
	"Hello, I am Jarvis, your personal assistant.",
	"I'm using a female voice similar to Siri.",
	"Voice test complete. Starting normal operation.",
}

var ErrQueueFull = errors.New("input queue is full")

type State int

const (
	Idle State = iota
	Listening
	Dispatching
	ShuttingDown
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Dispatching:
		return "dispatching"
	case ShuttingDown:
		return "shutting-down"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Capture interface {
	Listen(ctx context.Context) listen.Result
	Replay(ctx context.Context, pcm []float32) listen.Result
	Transcript(text string) listen.Result
	Reset()
}

type Dispatcher interface {
	Dispatch(ctx context.Context, cmd wake.Command) string
}

type Speaker interface {
	Speak(text string)
}

// Device is the expression channel as seen by the loop, which owns it.
type Device interface {
	Send(code expression.Code)
	Connected() bool
	Close()
}

type Earcon interface {
	Play() error
}

// Input replaces the microphone for one cycle. PCM takes precedence over
// Text.
type Input struct {
	Text string
	PCM  []float32
}

type Options struct {
	WakeWord      string
	ResetInterval time.Duration
	CycleSleep    time.Duration
	DispatchPause time.Duration
	// SelfTest is spoken at startup; nil means the default phrases.
	SelfTest []string
	// Release frees the speech engine on shutdown.
	Release func()
	Earcon  Earcon
	// QueueSize bounds pending injected inputs.
	QueueSize int
}

type Session struct {
	capture  Capture
	dispatch Dispatcher
	speaker  Speaker
	device   Device
	earcon   Earcon
	release  func()
	opt      Options

	inputs chan Input
	now    func() time.Time
	sleep  func(time.Duration)

	state     State
	lastReset time.Time
	announced bool
	resets    int
}

func New(c Capture, d Dispatcher, sp Speaker, dev Device, opt Options) *Session {
	if opt.WakeWord == "" {
		opt.WakeWord = "jarvis"
	}
	if opt.ResetInterval <= 0 {
		opt.ResetInterval = DefaultResetInterval
	}
	if opt.CycleSleep <= 0 {
		opt.CycleSleep = DefaultCycleSleep
	}
	if opt.DispatchPause <= 0 {
		opt.DispatchPause = DefaultDispatchPause
	}
	if opt.SelfTest == nil {
		opt.SelfTest = SelfTest
	}
	if opt.QueueSize <= 0 {
		opt.QueueSize = 8
	}

	s := &Session{
		capture:  c,
		dispatch: d,
		speaker:  sp,
		device:   dev,
		earcon:   opt.Earcon,
		release:  opt.Release,
		opt:      opt,
		inputs:   make(chan Input, opt.QueueSize),
		now:      time.Now,
		sleep:    time.Sleep,
	}
	s.lastReset = s.now()
	return s
}

func (s *Session) State() State { return s.state }

// Resets reports how many periodic reinitializations have happened.
func (s *Session) Resets() int { return s.resets }

// Inject queues an input for the next cycle. It is safe to call from other
// goroutines.
func (s *Session) Inject(in Input) error {
	select {
	case s.inputs <- in:
		return nil
	default:
		return ErrQueueFull
	}
}

// Startup greets the user and tests the voice.
func (s *Session) Startup() {
	if s.device.Connected() {
		s.device.Send(expression.Surprised)
		s.sleep(time.Second)
	}
	for _, phrase := range s.opt.SelfTest {
		s.speaker.Speak(phrase)
		s.sleep(s.opt.DispatchPause)
	}
	s.lastReset = s.now()
}

// Run cycles until ctx is cancelled, then shuts down. A cycle in progress
// always completes first.
func (s *Session) Run(ctx context.Context) error {
	log.Info("Say commands starting with the wake word", "word", s.opt.WakeWord)
	for ctx.Err() == nil {
		s.Cycle(ctx)
	}
	s.Shutdown()
	return nil
}

// Cycle performs one capture and, on a command, one dispatch.
func (s *Session) Cycle(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	if s.now().Sub(s.lastReset) > s.opt.ResetInterval {
		s.reset()
	}

	if !s.announced {
		log.Info("Listening for wake word", "word", s.opt.WakeWord)
		s.announced = true
	}

	s.state = Listening
	res := s.next(ctx)

	switch {
	case res.Kind == listen.Command:
		s.announced = false
		s.state = Dispatching
		s.acknowledge()
		rule := s.dispatch.Dispatch(ctx, res.Command)
		log.Debug("Dispatched", "rule", rule, "command", res.Command.Text())
		s.sleep(s.opt.DispatchPause)
	case res.Kind == listen.TranscriptionUnavailable && res.ServiceError:
		log.Warn("Speech recognition unavailable", "err", res.Err)
		s.announced = false
		s.speaker.Speak(serviceApology)
	case res.Err != nil && !errors.Is(res.Err, listen.ErrWaitTimeout) && res.Kind == listen.NoSpeechDetected:
		s.announced = false
	}

	s.state = Idle
	s.sleep(s.opt.CycleSleep)
}

func (s *Session) next(ctx context.Context) listen.Result {
	select {
	case in := <-s.inputs:
		if len(in.PCM) > 0 {
			return s.capture.Replay(ctx, in.PCM)
		}
		return s.capture.Transcript(in.Text)
	default:
		return s.capture.Listen(ctx)
	}
}

func (s *Session) acknowledge() {
	s.device.Send(expression.Happy)
	if s.earcon == nil {
		return
	}
	if err := s.earcon.Play(); err != nil {
		log.Debug("Earcon failed", "err", err)
	}
}

func (s *Session) reset() {
	log.Info("Performing periodic reset to maintain responsiveness")
	s.capture.Reset()
	s.announced = false
	s.resets++
	s.lastReset = s.now()
}

// Shutdown says goodbye and releases the engine and the device. Each step
// runs even if an earlier one panics.
func (s *Session) Shutdown() {
	s.state = ShuttingDown
	log.Info("Shutting down")

	guard("farewell", func() { s.speaker.Speak(farewell) })
	if s.release != nil {
		guard("release engine", s.release)
	}
	if s.device.Connected() {
		guard("sad expression", func() { s.device.Send(expression.Sad) })
		guard("pause", func() { s.sleep(time.Second) })
		guard("idle expression", func() { s.device.Send(expression.Idle) })
	}
	guard("close device", s.device.Close)
}

func guard(step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("Shutdown step failed", "step", step, "panic", r)
		}
	}()
	fn()
}
