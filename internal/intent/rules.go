package intent

import (
	"context"
	"regexp"
	"strings"

	"jarvis/internal/expression"
)

var cityRe = regexp.MustCompile(`(?:^|\s)in ([a-z][a-z\s]*)$`)

// Rules returns the rule table in priority order.
func Rules() []Rule {
	return []Rule{
		{Name: "prompt", Match: isEmpty, Handle: handlePrompt},

		{Name: "time", Match: contains(timePhrases), Handle: answer("time", expression.Happy, "", Skills.Time)},
		{Name: "date", Match: contains(datePhrases), Handle: handleDate},
		{Name: "location", Match: contains(locationPhrases), Handle: answer("location", expression.Happy, "Getting your location information", Skills.Location)},
		{Name: "battery", Match: contains(batteryPhrases), Handle: answer("battery status", expression.Happy, "Checking your battery status", Skills.Battery)},
		{Name: "network", Match: contains(networkPhrases), Handle: answer("network information", expression.Happy, "Checking your network information", Skills.Network)},
		{Name: "system", Match: contains(systemPhrases), Handle: answer("system information", expression.Happy, "Here's your system information", Skills.System)},
		{Name: "disk", Match: contains(diskPhrases), Handle: answer("disk space information", expression.Happy, "Checking your disk space", Skills.Disk)},
		{Name: "weather", Match: contains(weatherPhrases), Handle: handleWeather},
		{Name: "joke", Match: contains(jokePhrases), Handle: answer("joke", expression.Happy, "", Skills.Joke)},
		{Name: "fact", Match: contains(factPhrases), Handle: answer("fact", expression.Thinking, "", Skills.Fact)},
		{Name: "help", Match: contains(helpPhrases), Handle: answer("help", expression.Thinking, "", Skills.Help)},
		{Name: "wellbeing", Match: contains(wellPhrases), Handle: reply(wellReplies, expression.Happy)},
		{Name: "suggest", Match: contains(boredPhrases), Handle: reply(activities, expression.Happy)},
		{Name: "identity", Match: contains(identityPhrases), Handle: reply([]string{identityReply}, expression.Happy)},

		{Name: "play", Match: verb(1, "play"), Handle: handlePlay},
		{Name: "search", Match: verb(1, "search", "look", "find"), Handle: handleSearch},
		{Name: "info", Match: getInfo, Handle: handleInfo},
		{Name: "open", Match: verb(1, "open"), Handle: handleOpen},
		{Name: "uppercut", Match: verb(0, "angry", "uppercut"), Handle: gesture(expression.Uppercut)},
		{Name: "smash", Match: verb(0, "sad", "smash"), Handle: gesture(expression.Sad)},
		{Name: "punch", Match: verb(0, "happy", "punch"), Handle: gesture(expression.Happy)},
		{Name: "surprise", Match: verb(0, "surprise", "surprised"), Handle: gesture(expression.Surprised)},

		{Name: "question", Match: isQuestion, Handle: handleQuestion},
		{Name: "small-talk", Match: func(b Body) bool { _, ok := scanSmallTalk(b.Words); return ok }, Handle: handleSmallTalk},

		{Name: "fallback", Match: func(Body) bool { return true }, Handle: handleFallback},
	}
}

// predicates

func isEmpty(b Body) bool {
	return len(b.Words) == 0 || (len(b.Words) == 1 && b.Words[0] == b.Trigger)
}

func contains(phrases []string) func(Body) bool {
	return func(b Body) bool {
		for _, p := range phrases {
			if strings.Contains(b.Text, p) {
				return true
			}
		}
		return false
	}
}

// verb matches on the first token. args is the minimum number of tokens
// that must follow it.
func verb(args int, words ...string) func(Body) bool {
	return func(b Body) bool {
		if len(b.Words) < 1+args {
			return false
		}
		for _, w := range words {
			if b.Words[0] == w {
				return true
			}
		}
		return false
	}
}

func getInfo(b Body) bool {
	return len(b.Words) >= 3 && b.Words[0] == "get" && b.Words[1] == "info"
}

func isQuestion(b Body) bool {
	return len(b.Words) >= 2 && questionStarters[b.first()]
}

type smallTalk int

const (
	greeting smallTalk = iota
	farewell
	presence
)

// scanSmallTalk walks tokens left to right; at each position the greeting,
// farewell and presence sets are tried in that order.
func scanSmallTalk(words []string) (smallTalk, bool) {
	sets := []struct {
		kind    smallTalk
		phrases []string
	}{
		{greeting, HiWords},
		{farewell, ByeWords},
		{presence, ThereWords},
	}

	for i := range words {
		for _, set := range sets {
			for _, p := range set.phrases {
				if runAt(words, i, strings.Fields(p)) {
					return set.kind, true
				}
			}
		}
	}
	return 0, false
}

func runAt(words []string, i int, phrase []string) bool {
	if i+len(phrase) > len(words) {
		return false
	}
	for j, p := range phrase {
		if words[i+j] != p {
			return false
		}
	}
	return true
}

// handlers

func handlePrompt(_ context.Context, d *Dispatcher, _ Body) {
	d.say(promptReply)
	d.send(expression.Thinking)
}

// answer speaks an optional acknowledgement, then the collaborator's text.
func answer(category string, code expression.Code, ack string, call func(Skills, context.Context) (string, error)) func(context.Context, *Dispatcher, Body) {
	return func(ctx context.Context, d *Dispatcher, _ Body) {
		d.say(ack)
		text, ok := d.ask(ctx, category, func(ctx context.Context) (string, error) {
			return call(d.skills, ctx)
		})
		if !ok {
			return
		}
		d.say(text)
		d.send(code)
	}
}

func handleDate(ctx context.Context, d *Dispatcher, _ Body) {
	text, ok := d.ask(ctx, "date", d.skills.Date)
	if !ok {
		return
	}
	d.say("Today is " + text)
	d.send(expression.Happy)
}

// City returns the "in <city>" suffix of a weather request, if any.
func City(text string) string {
	m := cityRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

func handleWeather(ctx context.Context, d *Dispatcher, b Body) {
	d.say("Checking the weather for you")
	city := City(b.Text)
	text, ok := d.ask(ctx, "weather", func(ctx context.Context) (string, error) {
		return d.skills.Weather(ctx, city)
	})
	if !ok {
		return
	}
	d.say(text)
	d.send(expression.Happy)
}

func reply(lines []string, code expression.Code) func(context.Context, *Dispatcher, Body) {
	return func(_ context.Context, d *Dispatcher, _ Body) {
		d.say(d.choose(lines))
		d.send(code)
	}
}

func handlePlay(ctx context.Context, d *Dispatcher, b Body) {
	query := b.rest(1)
	d.say("Okay boss, playing")
	if d.act(ctx, "Sorry, I couldn't play that right now.", func(ctx context.Context) error {
		return d.actions.Play(ctx, query)
	}) {
		d.send(expression.Activate)
	}
}

func handleSearch(ctx context.Context, d *Dispatcher, b Body) {
	query := b.rest(1)
	d.say("Okay boss, searching")
	if d.act(ctx, "Sorry, I couldn't search for that right now.", func(ctx context.Context) error {
		return d.actions.Search(ctx, query)
	}) {
		d.send(expression.Thinking)
	}
}

func handleInfo(ctx context.Context, d *Dispatcher, b Body) {
	words := b.Words[2:]
	if len(words) > 1 && (words[0] == "about" || words[0] == "on") {
		words = words[1:]
	}
	topic := strings.Join(words, " ")

	d.say("Okay, I am right on it")
	text, ok := d.ask(ctx, "information about "+topic, func(ctx context.Context) (string, error) {
		return d.actions.Info(ctx, topic)
	})
	if !ok {
		return
	}
	d.say(text)
	d.send(expression.Activate)
}

// URL builds the address for an open command by joining the spoken tokens.
func URL(words []string) string {
	return "http://" + strings.Join(words, "")
}

func handleOpen(ctx context.Context, d *Dispatcher, b Body) {
	url := URL(b.Words[1:])
	d.say("Opening, sir")
	if d.act(ctx, "Sorry, I couldn't open that.", func(ctx context.Context) error {
		return d.actions.Open(ctx, url)
	}) {
		d.send(expression.Idle)
	}
}

func gesture(code expression.Code) func(context.Context, *Dispatcher, Body) {
	return func(_ context.Context, d *Dispatcher, _ Body) {
		d.send(code)
	}
}

func handleQuestion(ctx context.Context, d *Dispatcher, b Body) {
	d.say(lookupReply)
	if d.act(ctx, "Sorry, I couldn't search for that right now.", func(ctx context.Context) error {
		return d.actions.Search(ctx, b.Text)
	}) {
		d.send(expression.Thinking)
	}
}

func handleSmallTalk(_ context.Context, d *Dispatcher, b Body) {
	kind, _ := scanSmallTalk(b.Words)
	switch kind {
	case greeting:
		d.say(d.choose(HiWords))
		d.send(expression.Thinking)
	case farewell:
		d.say(d.choose(ByeWords))
		d.send(expression.Sad)
	case presence:
		d.say(d.choose(thereReplies))
		d.send(expression.Happy)
	}
}

func handleFallback(_ context.Context, d *Dispatcher, _ Body) {
	d.say(fallbackReply)
	d.send(expression.Thinking)
}
