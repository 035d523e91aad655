package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarvis/internal/expression"
	"jarvis/internal/wake"
)

type speakerSpy struct{ lines []string }

func (s *speakerSpy) Speak(text string) { s.lines = append(s.lines, text) }

type exprSpy struct{ codes []expression.Code }

func (e *exprSpy) Send(c expression.Code) { e.codes = append(e.codes, c) }

type recorderSpy struct{ lines []string }

func (r *recorderSpy) Record(cmd string) { r.lines = append(r.lines, cmd) }

type fakeSkills struct {
	err         error
	panicOn     string
	weatherCity []string
}

func (f *fakeSkills) result(name, text string) (string, error) {
	if f.panicOn == name {
		panic("collaborator blew up")
	}
	if f.err != nil {
		return "", f.err
	}
	return text, nil
}

func (f *fakeSkills) Time(context.Context) (string, error) {
	return f.result("time", "Good morning. It's 09:30 AM.")
}
func (f *fakeSkills) Date(context.Context) (string, error) {
	return f.result("date", "Monday, January 02, 2006")
}
func (f *fakeSkills) Location(context.Context) (string, error) {
	return f.result("location", "You appear to be in Paris")
}
func (f *fakeSkills) Battery(context.Context) (string, error) {
	return f.result("battery", "Battery 80%")
}
func (f *fakeSkills) Network(context.Context) (string, error) { return f.result("network", "Online") }
func (f *fakeSkills) System(context.Context) (string, error)  { return f.result("system", "Linux") }
func (f *fakeSkills) Disk(context.Context) (string, error)    { return f.result("disk", "Free 10 GB") }
func (f *fakeSkills) Joke(context.Context) (string, error)    { return f.result("joke", "A joke") }
func (f *fakeSkills) Fact(context.Context) (string, error)    { return f.result("fact", "A fact") }
func (f *fakeSkills) Help(context.Context) (string, error)    { return f.result("help", "Help text") }

func (f *fakeSkills) Weather(_ context.Context, city string) (string, error) {
	f.weatherCity = append(f.weatherCity, city)
	return f.result("weather", "Sunny")
}

type fakeActions struct {
	err     error
	played  []string
	queries []string
	topics  []string
	opened  []string
}

func (f *fakeActions) Play(_ context.Context, q string) error {
	f.played = append(f.played, q)
	return f.err
}

func (f *fakeActions) Search(_ context.Context, q string) error {
	f.queries = append(f.queries, q)
	return f.err
}

func (f *fakeActions) Info(_ context.Context, topic string) (string, error) {
	f.topics = append(f.topics, topic)
	return "Go is a programming language.", f.err
}

func (f *fakeActions) Open(_ context.Context, url string) error {
	f.opened = append(f.opened, url)
	return f.err
}

type harness struct {
	d       *Dispatcher
	speaker *speakerSpy
	expr    *exprSpy
	rec     *recorderSpy
	skills  *fakeSkills
	actions *fakeActions
}

func newHarness() *harness {
	h := &harness{
		speaker: &speakerSpy{},
		expr:    &exprSpy{},
		rec:     &recorderSpy{},
		skills:  &fakeSkills{},
		actions: &fakeActions{},
	}
	h.d = New(Deps{
		Speaker:    h.speaker,
		Expression: h.expr,
		Recorder:   h.rec,
		Skills:     h.skills,
		Actions:    h.actions,
		Pick:       func(int) int { return 0 },
	})
	return h
}

func (h *harness) run(t *testing.T, transcript string) string {
	t.Helper()
	cmd, ok := wake.NewGate("jarvis").Detect(transcript)
	require.True(t, ok, transcript)
	return h.d.Dispatch(context.Background(), cmd)
}

func TestGreetingAnyWakeWordPosition(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"jarvis hello", "hello jarvis"} {
		h := newHarness()
		assert.Equal(t, "small-talk", h.run(t, in))
		require.Len(t, h.speaker.lines, 1)
		assert.Contains(t, HiWords, h.speaker.lines[0])
		assert.Equal(t, []expression.Code{expression.Thinking}, h.expr.codes)
		assert.Equal(t, []string{"jarvis hello"}, h.rec.lines)
	}
}

func TestWeatherCityOverride(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "weather", h.run(t, "jarvis what's the weather in tokyo"))
	assert.Equal(t, []string{"tokyo"}, h.skills.weatherCity)
	assert.Equal(t, []string{"Checking the weather for you", "Sunny"}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Happy}, h.expr.codes)

	h = newHarness()
	h.run(t, "jarvis how's the weather")
	assert.Equal(t, []string{""}, h.skills.weatherCity)
}

func TestCity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "new york", City("what's the weather in new york"))
	assert.Equal(t, "tokyo", City("weather forecast in tokyo"))
	assert.Empty(t, City("what's the weather"))
	assert.Empty(t, City("weather in 2025"))
	assert.Empty(t, City("what's the weather within"))
}

func TestWakeWordAlonePrompts(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"jarvis", "jarvis jarvis", "Jarvis!"} {
		h := newHarness()
		assert.Equal(t, "prompt", h.run(t, in))
		assert.Equal(t, []string{promptReply}, h.speaker.lines)
		assert.Equal(t, []expression.Code{expression.Thinking}, h.expr.codes)
	}
}

func TestPlay(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "play", h.run(t, "jarvis play imagine dragons believer"))
	assert.Equal(t, []string{"imagine dragons believer"}, h.actions.played)
	assert.Equal(t, []string{"Okay boss, playing"}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Activate}, h.expr.codes)
}

func TestUnrecognizedFallsBack(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "fallback", h.run(t, "jarvis banana pancakes"))
	assert.Equal(t, []string{fallbackReply}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Thinking}, h.expr.codes)
}

func TestSpecificCategoryBeatsQuestionHeuristic(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "time", h.run(t, "jarvis what time is it"))
	assert.Empty(t, h.actions.queries)
	assert.Equal(t, []string{"Good morning. It's 09:30 AM."}, h.speaker.lines)
}

func TestQuestionHeuristicSearchesWholeBody(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "question", h.run(t, "jarvis why is the sky blue"))
	assert.Equal(t, []string{"why is the sky blue"}, h.actions.queries)
	assert.Equal(t, []string{lookupReply}, h.speaker.lines)

	// a lone question word is not enough
	h = newHarness()
	assert.Equal(t, "fallback", h.run(t, "jarvis why"))
}

func TestCollaboratorErrorBecomesApology(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.skills.err = errors.New("offline")

	assert.NotPanics(t, func() { h.run(t, "jarvis battery level") })
	assert.Equal(t, []string{
		"Checking your battery status",
		"Sorry, I couldn't get the battery status right now.",
	}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Sad}, h.expr.codes)
}

func TestCollaboratorPanicIsContained(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.skills.panicOn = "disk"

	var rule string
	assert.NotPanics(t, func() { rule = h.run(t, "jarvis disk usage") })
	assert.Equal(t, "disk", rule)
	assert.Equal(t, []string{"jarvis disk usage"}, h.rec.lines)
	assert.Contains(t, h.speaker.lines, "Sorry, something went wrong.")
}

func TestActionFailureApologizes(t *testing.T) {
	t.Parallel()

	h := newHarness()
	h.actions.err = errors.New("no browser")
	h.run(t, "jarvis search golang generics")

	assert.Equal(t, []string{"golang generics"}, h.actions.queries)
	assert.Equal(t, []string{"Okay boss, searching", "Sorry, I couldn't search for that right now."}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Sad}, h.expr.codes)
}

func TestInfoAndOpen(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "info", h.run(t, "jarvis get info about golang"))
	assert.Equal(t, []string{"golang"}, h.actions.topics)
	assert.Equal(t, []string{"Okay, I am right on it", "Go is a programming language."}, h.speaker.lines)

	h = newHarness()
	assert.Equal(t, "open", h.run(t, "jarvis open github.com"))
	assert.Equal(t, []string{"http://github.com"}, h.actions.opened)
	assert.Equal(t, []expression.Code{expression.Idle}, h.expr.codes)

	assert.Equal(t, "http://youtube.com", URL([]string{"youtube", ".com"}))
}

func TestGesturesOnlyMoveTheDevice(t *testing.T) {
	t.Parallel()

	cases := map[string]expression.Code{
		"jarvis angry":     expression.Uppercut,
		"jarvis uppercut":  expression.Uppercut,
		"jarvis sad":       expression.Sad,
		"jarvis smash":     expression.Sad,
		"jarvis happy":     expression.Happy,
		"jarvis punch":     expression.Happy,
		"jarvis surprise":  expression.Surprised,
		"jarvis surprised": expression.Surprised,
	}
	for in, code := range cases {
		h := newHarness()
		h.run(t, in)
		assert.Empty(t, h.speaker.lines, in)
		assert.Equal(t, []expression.Code{code}, h.expr.codes, in)
	}
}

func TestSmallTalkScan(t *testing.T) {
	t.Parallel()

	h := newHarness()
	assert.Equal(t, "small-talk", h.run(t, "jarvis are you there"))
	assert.Equal(t, []string{thereReplies[0]}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Happy}, h.expr.codes)

	h = newHarness()
	h.d.pick = func(n int) int { return n - 1 }
	h.run(t, "jarvis you there")
	assert.Equal(t, []string{thereReplies[len(thereReplies)-1]}, h.speaker.lines)

	h = newHarness()
	h.run(t, "jarvis okay until next time")
	assert.Equal(t, []string{ByeWords[0]}, h.speaker.lines)
	assert.Equal(t, []expression.Code{expression.Sad}, h.expr.codes)

	// first matching token wins
	kind, ok := scanSmallTalk([]string{"well", "bye", "and", "hello"})
	require.True(t, ok)
	assert.Equal(t, farewell, kind)

	_, ok = scanSmallTalk([]string{"yo"})
	assert.False(t, ok)
}

func TestEachRuleSendsAtMostOneExpression(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"jarvis", "jarvis what time is it", "jarvis what day is it", "jarvis where am i",
		"jarvis battery status", "jarvis network info", "jarvis system info", "jarvis free space",
		"jarvis weather today", "jarvis tell me a joke", "jarvis random fact", "jarvis help me",
		"jarvis how are you", "jarvis i'm bored", "jarvis who are you", "jarvis play jazz",
		"jarvis find pizza", "jarvis get info go", "jarvis open example.com", "jarvis punch",
		"jarvis can you dance", "jarvis hi", "jarvis qwerty",
	}
	for _, in := range inputs {
		h := newHarness()
		rule := h.run(t, in)
		assert.NotEmpty(t, rule, in)
		assert.LessOrEqual(t, len(h.expr.codes), 1, in)
		assert.Equal(t, []string{in}, h.rec.lines, in)
	}
}

func TestRuleOrder(t *testing.T) {
	t.Parallel()

	var names []string
	for _, r := range Rules() {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{
		"prompt",
		"time", "date", "location", "battery", "network", "system", "disk", "weather",
		"joke", "fact", "help", "wellbeing", "suggest", "identity",
		"play", "search", "info", "open", "uppercut", "smash", "punch", "surprise",
		"question", "small-talk", "fallback",
	}, names)
}
