// Package skills answers informational requests with text ready to speak.
package skills

import (
	"context"
	"math/rand/v2"
	"net/http"
	"os/exec"
	"strings"
	"sync"
	"time"
)

type Options struct {
	DefaultCity string
	HTTPClient  *http.Client
	WeatherURL  string
	LocationURL string
	// CheckAddr is dialed to check internet connectivity.
	CheckAddr string
	// PowerSupplyDir holds battery directories on Linux.
	PowerSupplyDir string
	DiskPath       string
}

type Skills struct {
	client         *http.Client
	weatherURL     string
	locationURL    string
	checkAddr      string
	powerSupplyDir string
	diskPath       string

	now  func() time.Time
	pick func(n int) int
	run  func(ctx context.Context, name string, args ...string) (string, error)

	mu   sync.Mutex
	city string
	zone *time.Location
}

func New(opt Options) *Skills {
	s := &Skills{
		client:         opt.HTTPClient,
		weatherURL:     strings.TrimRight(opt.WeatherURL, "/"),
		locationURL:    opt.LocationURL,
		checkAddr:      opt.CheckAddr,
		powerSupplyDir: opt.PowerSupplyDir,
		diskPath:       opt.DiskPath,
		now:            time.Now,
		pick:           rand.IntN,
		run:            runOutput,
		city:           opt.DefaultCity,
		zone:           time.Local,
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	if s.weatherURL == "" {
		s.weatherURL = "https://wttr.in"
	}
	if s.locationURL == "" {
		s.locationURL = "https://ipinfo.io/json"
	}
	if s.checkAddr == "" {
		s.checkAddr = "www.google.com:80"
	}
	if s.powerSupplyDir == "" {
		s.powerSupplyDir = "/sys/class/power_supply"
	}
	if s.diskPath == "" {
		s.diskPath = "/"
	}
	if s.city == "" {
		s.city = "San Francisco"
	}
	return s
}

// City is the current default location for weather reports.
func (s *Skills) City() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.city
}

func (s *Skills) local() time.Time {
	s.mu.Lock()
	zone := s.zone
	s.mu.Unlock()
	return s.now().In(zone)
}

func (s *Skills) Time(context.Context) (string, error) {
	now := s.local()

	greeting := "Good evening"
	switch h := now.Hour(); {
	case h >= 5 && h < 12:
		greeting = "Good morning"
	case h >= 12 && h < 18:
		greeting = "Good afternoon"
	}
	return greeting + ". It's " + now.Format("03:04 PM") + ".", nil
}

func (s *Skills) Date(context.Context) (string, error) {
	return s.local().Format("Monday, January 02, 2006"), nil
}

func (s *Skills) Joke(context.Context) (string, error) {
	return jokes[s.pick(len(jokes))], nil
}

func (s *Skills) Fact(context.Context) (string, error) {
	return facts[s.pick(len(facts))], nil
}

func (s *Skills) Help(context.Context) (string, error) {
	return strings.Join(helpLines, "\n"), nil
}

func runOutput(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

var jokes = []string{
	"Why don't scientists trust atoms? Because they make up everything!",
	"I told my wife she was drawing her eyebrows too high. She looked surprised.",
	"Parallel lines have so much in common. It's a shame they'll never meet.",
	"I'm reading a book about anti-gravity. It's impossible to put down!",
	"I used to play piano by ear, but now I use my hands.",
	"Why did the scarecrow win an award? Because he was outstanding in his field!",
	"What's the best thing about Switzerland? I don't know, but the flag is a big plus.",
	"Did you hear about the mathematician who's afraid of negative numbers? He'll stop at nothing to avoid them.",
}

var facts = []string{
	"The Eiffel Tower can be 15 cm taller during the summer due to thermal expansion.",
	"20% of Earth's oxygen is produced by the Amazon rainforest.",
	"Honey never spoils. Archaeologists found pots of honey in ancient Egyptian tombs that are over 3,000 years old and still perfectly edible.",
	"A day on Venus is longer than a year on Venus. It takes 243 Earth days to rotate once on its axis.",
	"The shortest war in history was between Britain and Zanzibar on August 27, 1896. Zanzibar surrendered after 38 minutes.",
	"The average person walks the equivalent of three times around the world in a lifetime.",
	"The Hawaiian alphabet has only 13 letters.",
	"A group of flamingos is called a 'flamboyance'.",
	"Octopuses have three hearts.",
}

var helpLines = []string{
	"Here are some things you can ask me:",
	"- What's the time?",
	"- What's the date today?",
	"- What's the weather?",
	"- Where am I? / What's my location?",
	"- What's my battery status?",
	"- What's my IP address? / Network info?",
	"- How much disk space do I have?",
	"- Tell me a joke or fact",
	"- Play [song name] on YouTube",
	"- Search for [your query]",
	"- Open [website.com]",
	"- What should I do today?",
}
