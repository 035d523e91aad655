package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/expression"
	"jarvis/internal/listen"
	"jarvis/internal/wake"
	"jarvis/pkg/stt"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

type fakeCapture struct {
	clock   *clock
	step    time.Duration
	results []listen.Result
	listens int
	resets  []time.Time
	texts   []string
	replays int
}

func (f *fakeCapture) Listen(context.Context) listen.Result {
	f.listens++
	if f.clock != nil {
		f.clock.t = f.clock.t.Add(f.step)
	}
	if len(f.results) == 0 {
		return listen.Result{Kind: listen.NoSpeechDetected, Err: listen.ErrWaitTimeout}
	}
	r := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return r
}

func (f *fakeCapture) Replay(_ context.Context, pcm []float32) listen.Result {
	f.replays++
	return listen.Result{Kind: listen.NoWakeWord}
}

func (f *fakeCapture) Transcript(text string) listen.Result {
	f.texts = append(f.texts, text)
	return listen.Result{Kind: listen.NoWakeWord, Transcript: text}
}

func (f *fakeCapture) Reset() {
	if f.clock != nil {
		f.resets = append(f.resets, f.clock.t)
		return
	}
	f.resets = append(f.resets, time.Time{})
}

type dispatchSpy struct{ cmds []string }

func (d *dispatchSpy) Dispatch(_ context.Context, cmd wake.Command) string {
	d.cmds = append(d.cmds, cmd.Text())
	return "spy"
}

type speakerSpy struct {
	lines   []string
	panicOn string
}

func (s *speakerSpy) Speak(text string) {
	if text == s.panicOn {
		panic("engine gone")
	}
	s.lines = append(s.lines, text)
}

type deviceSpy struct {
	connected bool
	codes     []expression.Code
	closed    bool
}

func (d *deviceSpy) Send(c expression.Code) {
	if d.connected {
		d.codes = append(d.codes, c)
	}
}
func (d *deviceSpy) Connected() bool { return d.connected }
func (d *deviceSpy) Close()          { d.closed = true }

type earconSpy struct{ plays int }

func (e *earconSpy) Play() error {
	e.plays++
	return errors.New("no audio device")
}

func newTestSession(c Capture, d Dispatcher, sp Speaker, dev Device, opt Options) (*Session, *[]time.Duration) {
	s := New(c, d, sp, dev, opt)
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, &slept
}

func command(words ...string) listen.Result {
	return listen.Result{Kind: listen.Command, Command: wake.Command{Trigger: "jarvis", Body: words}}
}

func TestPeriodicResetOncePerInterval(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := &clock{t: start}
	capture := &fakeCapture{clock: clk, step: 100 * time.Second, results: []listen.Result{command("hello")}}
	disp := &dispatchSpy{}

	s, _ := newTestSession(capture, disp, &speakerSpy{}, &deviceSpy{}, Options{ResetInterval: 300 * time.Second})
	s.now = clk.now
	s.lastReset = clk.now()

	for range 10 {
		s.Cycle(context.Background())
	}

	assert.Equal(t, []time.Time{start.Add(400 * time.Second), start.Add(800 * time.Second)}, capture.resets)
	assert.Equal(t, 2, s.Resets())
	assert.Len(t, disp.cmds, 10)
}

func TestCommandCycle(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{results: []listen.Result{command("what", "time", "is", "it")}}
	disp := &dispatchSpy{}
	dev := &deviceSpy{connected: true}
	ear := &earconSpy{}

	s, slept := newTestSession(capture, disp, &speakerSpy{}, dev, Options{Earcon: ear})
	s.Cycle(context.Background())

	assert.Equal(t, []string{"jarvis what time is it"}, disp.cmds)
	assert.Equal(t, []expression.Code{expression.Happy}, dev.codes)
	assert.Equal(t, 1, ear.plays)
	assert.Equal(t, []time.Duration{DefaultDispatchPause, DefaultCycleSleep}, *slept)
	assert.Equal(t, Idle, s.State())
	assert.False(t, s.announced)
}

func TestServiceErrorApologizesWithoutDispatch(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{results: []listen.Result{{
		Kind:         listen.TranscriptionUnavailable,
		ServiceError: true,
		Err:          stt.ErrServiceUnavailable,
	}}}
	disp := &dispatchSpy{}
	sp := &speakerSpy{}

	s, slept := newTestSession(capture, disp, sp, &deviceSpy{}, Options{})
	s.Cycle(context.Background())

	assert.Empty(t, disp.cmds)
	assert.Equal(t, []string{serviceApology}, sp.lines)
	assert.Equal(t, []time.Duration{DefaultCycleSleep}, *slept)
}

func TestQuietOutcomes(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{results: []listen.Result{
		{Kind: listen.TranscriptionUnavailable, Err: stt.ErrUnintelligible},
		{Kind: listen.NoWakeWord, Transcript: "hello there"},
		{Kind: listen.NoSpeechDetected, Err: listen.ErrWaitTimeout},
	}}
	disp := &dispatchSpy{}
	sp := &speakerSpy{}

	s, _ := newTestSession(capture, disp, sp, &deviceSpy{}, Options{})
	for range 3 {
		s.Cycle(context.Background())
	}

	assert.Empty(t, disp.cmds)
	assert.Empty(t, sp.lines)
	assert.True(t, s.announced)
}

func TestInjectedInputsReplaceListening(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{}
	s, _ := newTestSession(capture, &dispatchSpy{}, &speakerSpy{}, &deviceSpy{}, Options{QueueSize: 2})

	require.NoError(t, s.Inject(Input{Text: "jarvis tell me a joke"}))
	require.NoError(t, s.Inject(Input{PCM: []float32{0.1}}))
	assert.ErrorIs(t, s.Inject(Input{Text: "overflow"}), ErrQueueFull)

	for range 3 {
		s.Cycle(context.Background())
	}
	assert.Equal(t, []string{"jarvis tell me a joke"}, capture.texts)
	assert.Equal(t, 1, capture.replays)
	assert.Equal(t, 1, capture.listens)
}

func TestInjectedTextReachesDispatch(t *testing.T) {
	t.Parallel()

	dev := &deviceSpy{connected: true}
	capture := listen.New(nil, nil, wake.NewGate("jarvis"), dev, listen.Config{})
	disp := &dispatchSpy{}

	s, _ := newTestSession(capture, disp, &speakerSpy{}, dev, Options{})
	require.NoError(t, s.Inject(Input{Text: "Hello Jarvis"}))
	s.Cycle(context.Background())

	assert.Equal(t, []string{"jarvis hello"}, disp.cmds)
	assert.Equal(t, []expression.Code{expression.Happy}, dev.codes)
}

func TestCycleIgnoresCancellation(t *testing.T) {
	t.Parallel()

	capture := &fakeCapture{results: []listen.Result{command("joke")}}
	disp := &dispatchSpy{}
	s, _ := newTestSession(capture, disp, &speakerSpy{}, &deviceSpy{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Cycle(ctx)
	assert.Equal(t, []string{"jarvis joke"}, disp.cmds)
}

func TestStartup(t *testing.T) {
	t.Parallel()

	dev := &deviceSpy{connected: true}
	sp := &speakerSpy{}
	s, slept := newTestSession(&fakeCapture{}, &dispatchSpy{}, sp, dev, Options{})
	s.Startup()

	assert.Equal(t, []expression.Code{expression.Surprised}, dev.codes)
	assert.Equal(t, SelfTest, sp.lines)
	assert.Equal(t, time.Second, (*slept)[0])

	quiet := &deviceSpy{}
	s, _ = newTestSession(&fakeCapture{}, &dispatchSpy{}, &speakerSpy{}, quiet, Options{SelfTest: []string{}})
	s.Startup()
	assert.Empty(t, quiet.codes)
}

func TestRunShutsDownAfterCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	capture := &fakeCapture{}
	dev := &deviceSpy{connected: true}
	sp := &speakerSpy{}
	released := false

	s, slept := newTestSession(capture, &dispatchSpy{}, sp, dev, Options{Release: func() { released = true }})
	s.sleep = func(d time.Duration) {
		*slept = append(*slept, d)
		if capture.listens == 2 {
			cancel()
		}
	}

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, 2, capture.listens)
	assert.Equal(t, ShuttingDown, s.State())
	assert.Equal(t, []string{farewell}, sp.lines)
	assert.True(t, released)
	assert.Equal(t, []expression.Code{expression.Sad, expression.Idle}, dev.codes)
	assert.True(t, dev.closed)
}

func TestShutdownStepsAreIndependent(t *testing.T) {
	t.Parallel()

	dev := &deviceSpy{connected: true}
	s, _ := newTestSession(&fakeCapture{}, &dispatchSpy{}, &speakerSpy{panicOn: farewell}, dev, Options{
		Release: func() { panic("double free") },
	})
	s.Shutdown()

	assert.Equal(t, []expression.Code{expression.Sad, expression.Idle}, dev.codes)
	assert.True(t, dev.closed)

	noDevice := &deviceSpy{}
	s, _ = newTestSession(&fakeCapture{}, &dispatchSpy{}, &speakerSpy{}, noDevice, Options{})
	s.Shutdown()
	assert.Empty(t, noDevice.codes)
	assert.True(t, noDevice.closed)
}
