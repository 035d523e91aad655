package tts

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"jarvis/internal/config"
)

var errEngineUnavailable = errors.New("engine unavailable")

// Tier is one speech mechanism of the cascade.
type Tier struct {
	Name string
	Say  func(text string) error
}

// Cascade tries its tiers in order until one succeeds.
type Cascade struct {
	tiers []Tier

	mu     sync.Mutex
	engine Engine
}

func NewCascade(tiers ...Tier) *Cascade {
	return &Cascade{tiers: tiers}
}

// Speak attempts to say text. Every tier failure falls through to the next
// one; exhausting all tiers is absorbed silently.
func (c *Cascade) Speak(text string) {
	c.speak(text)
}

func (c *Cascade) speak(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	for _, tier := range c.tiers {
		err := attempt(tier, text)
		if err == nil {
			log.Debug("Spoke", "tier", tier.Name, "text", text)
			return tier.Name
		}
		log.Warn("Speech tier failed", "tier", tier.Name, "err", err)
	}

	log.Error("All speech tiers failed", "text", text)
	return ""
}

func attempt(tier Tier, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if tier.Say == nil {
		return errEngineUnavailable
	}
	return tier.Say(text)
}

// Close releases the pre-initialized engine, if any. Errors are swallowed.
func (c *Cascade) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine == nil {
		return
	}
	if err := c.engine.Close(); err != nil {
		log.Warn("Failed to close speech engine", "err", err)
	}
	c.engine = nil
}

type Options struct {
	// Engine is the process-wide engine initialized at startup. May be nil.
	Engine Engine
	// NewEngine builds a fresh engine for the second tier. May be nil.
	NewEngine func() (Engine, error)
	Voice     config.VoicePreference

	SayCommand string
	SayVoice   string
	SayTimeout time.Duration

	// Run and Shell replace process execution in tests.
	Run   func(ctx context.Context, name string, args ...string) error
	Shell func(cmdline string)
}

// NewStandard builds the four-tier cascade: the startup engine, a fresh
// engine, the speech utility with a timeout and a last-resort shell call.
func NewStandard(opt Options) *Cascade {
	if opt.Run == nil {
		opt.Run = runCommand
	}
	if opt.Shell == nil {
		opt.Shell = runShell
	}
	if opt.SayTimeout <= 0 {
		opt.SayTimeout = 10 * time.Second
	}

	c := &Cascade{engine: opt.Engine}
	c.tiers = []Tier{
		{Name: "engine", Say: func(text string) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.engine == nil {
				return errEngineUnavailable
			}
			return c.engine.Say(text)
		}},
		{Name: "fresh-engine", Say: func(text string) error {
			if opt.NewEngine == nil {
				return errEngineUnavailable
			}
			e, err := opt.NewEngine()
			if err != nil {
				return fmt.Errorf("new engine: %w", err)
			}
			defer e.Close()

			if _, err := Configure(e, opt.Voice); err != nil {
				return err
			}
			return e.Say(text)
		}},
		{Name: "command", Say: func(text string) error {
			ctx, cancel := context.WithTimeout(context.Background(), opt.SayTimeout)
			defer cancel()

			args := []string{text}
			if opt.SayVoice != "" {
				args = append([]string{"-v", opt.SayVoice}, args...)
			}
			return opt.Run(ctx, opt.SayCommand, args...)
		}},
		{Name: "shell", Say: func(text string) error {
			opt.Shell(fmt.Sprintf(`%s "%s"`, opt.SayCommand, shellEscape(text)))
			return nil
		}},
	}

	return c
}

func runCommand(ctx context.Context, name string, args ...string) error {
	if name == "" {
		return errors.New("no speech command configured")
	}
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func runShell(cmdline string) {
	_ = exec.Command("sh", "-c", cmdline).Run()
}
