// Package intent routes a wake-word command to the first matching rule of a
// fixed, ordered rule table.
package intent

import (
	"context"
	"fmt"
	log "log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"jarvis/internal/expression"
	"jarvis/internal/wake"
)

type Speaker interface {
	Speak(text string)
}

type Expression interface {
	Send(code expression.Code)
}

// Recorder keeps the activity record. It must not fail visibly.
type Recorder interface {
	Record(command string)
}

// Skills answer informational requests with display-ready text.
type Skills interface {
	Time(ctx context.Context) (string, error)
	Date(ctx context.Context) (string, error)
	Location(ctx context.Context) (string, error)
	Battery(ctx context.Context) (string, error)
	Network(ctx context.Context) (string, error)
	System(ctx context.Context) (string, error)
	Disk(ctx context.Context) (string, error)
	// Weather reports for city, or for the last resolved location when
	// city is empty.
	Weather(ctx context.Context, city string) (string, error)
	Joke(ctx context.Context) (string, error)
	Fact(ctx context.Context) (string, error)
	Help(ctx context.Context) (string, error)
}

// Actions perform web side effects.
type Actions interface {
	Play(ctx context.Context, query string) error
	Search(ctx context.Context, query string) error
	Info(ctx context.Context, topic string) (string, error)
	Open(ctx context.Context, url string) error
}

// Body is the command with the trigger stripped.
type Body struct {
	Trigger string
	Words   []string
	Text    string
}

func (b Body) first() string {
	if len(b.Words) == 0 {
		return ""
	}
	return b.Words[0]
}

func (b Body) rest(from int) string {
	if from >= len(b.Words) {
		return ""
	}
	return strings.Join(b.Words[from:], " ")
}

type Rule struct {
	Name   string
	Match  func(Body) bool
	Handle func(ctx context.Context, d *Dispatcher, b Body)
}

type Deps struct {
	Speaker    Speaker
	Expression Expression
	Recorder   Recorder
	Skills     Skills
	Actions    Actions
	// Timeout bounds each collaborator call. Defaults to 20s.
	Timeout time.Duration
	// Pick returns a value in [0, n). Defaults to math/rand.
	Pick func(n int) int
}

type Dispatcher struct {
	speaker Speaker
	expr    Expression
	rec     Recorder
	skills  Skills
	actions Actions
	timeout time.Duration
	pick    func(n int) int
	rules   []Rule
}

func New(deps Deps) *Dispatcher {
	d := &Dispatcher{
		speaker: deps.Speaker,
		expr:    deps.Expression,
		rec:     deps.Recorder,
		skills:  deps.Skills,
		actions: deps.Actions,
		timeout: deps.Timeout,
		pick:    deps.Pick,
	}
	if d.timeout <= 0 {
		d.timeout = 20 * time.Second
	}
	if d.pick == nil {
		d.pick = rand.IntN
	}
	d.rules = Rules()
	return d
}

// Dispatch records the command, then runs the first matching rule. It
// returns the rule name. Nothing escapes: collaborator failures become
// spoken apologies.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd wake.Command) (rule string) {
	raw := cmd.Text()
	log.Info("Processing command", "command", raw)

	if d.rec != nil {
		d.rec.Record(raw)
	}

	body := Body{Trigger: cmd.Trigger, Words: cmd.Body, Text: strings.Join(cmd.Body, " ")}

	defer func() {
		if r := recover(); r != nil {
			log.Error("Dispatch panicked", "rule", rule, "panic", r)
			d.say("Sorry, something went wrong.")
		}
	}()

	for _, r := range d.rules {
		if r.Match(body) {
			rule = r.Name
			log.Debug("Matched rule", "rule", r.Name)
			r.Handle(ctx, d, body)
			return rule
		}
	}
	return ""
}

func (d *Dispatcher) say(text string) {
	if d.speaker != nil && text != "" {
		d.speaker.Speak(text)
	}
}

func (d *Dispatcher) send(code expression.Code) {
	if d.expr != nil {
		d.expr.Send(code)
	}
}

func (d *Dispatcher) choose(list []string) string {
	return list[d.pick(len(list))]
}

// ask runs a collaborator call under the dispatch timeout. On failure it
// apologizes for the category and reports false.
func (d *Dispatcher) ask(ctx context.Context, category string, call func(context.Context) (string, error)) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	text, err := call(ctx)
	if err != nil {
		log.Warn("Collaborator failed", "category", category, "err", err)
		d.say(fmt.Sprintf("Sorry, I couldn't get the %s right now.", category))
		d.send(expression.Sad)
		return "", false
	}
	return text, true
}

// act runs a web action under the dispatch timeout and speaks apology when
// it fails.
func (d *Dispatcher) act(ctx context.Context, apology string, call func(context.Context) error) bool {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := call(ctx); err != nil {
		log.Warn("Action failed", "err", err)
		d.say(apology)
		d.send(expression.Sad)
		return false
	}
	return true
}
