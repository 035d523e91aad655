// Package web performs the browser and lookup actions behind play, search,
// info and open commands.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/tidwall/gjson"
)

var (
	ErrNoSummary = errors.New("no summary found")

	videoIDRe = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
	// Sentence ends followed by whitespace, ignoring single-letter initials.
	sentenceRe = regexp.MustCompile(`[^.!?]*?[a-z0-9)\]"'][.!?](\s+|$)`)
)

type Options struct {
	HTTPClient *http.Client
	YouTubeURL string
	SearchURL  string
	WikiURL    string
	// Sentences limits the spoken summary length.
	Sentences int
	// Open launches a URL in the desktop browser.
	Open func(url string) error
}

type Actions struct {
	client    *http.Client
	youtube   string
	search    string
	wiki      string
	sentences int
	open      func(string) error
}

func New(opt Options) *Actions {
	a := &Actions{
		client:    opt.HTTPClient,
		youtube:   strings.TrimRight(opt.YouTubeURL, "/"),
		search:    strings.TrimRight(opt.SearchURL, "/"),
		wiki:      strings.TrimRight(opt.WikiURL, "/"),
		sentences: opt.Sentences,
		open:      opt.Open,
	}
	if a.client == nil {
		a.client = &http.Client{Timeout: 10 * time.Second}
	}
	if a.youtube == "" {
		a.youtube = "https://www.youtube.com"
	}
	if a.search == "" {
		a.search = "https://www.google.com"
	}
	if a.wiki == "" {
		a.wiki = "https://en.wikipedia.org/api/rest_v1"
	}
	if a.sentences <= 0 {
		a.sentences = 3
	}
	if a.open == nil {
		a.open = browser.OpenURL
	}
	return a
}

// Play opens the first YouTube result for query. When the results page
// cannot be scraped the results page itself is opened instead.
func (a *Actions) Play(ctx context.Context, query string) error {
	results := a.youtube + "/results?search_query=" + url.QueryEscape(query)

	target := results
	if body, err := a.get(ctx, results); err != nil {
		log.Debug("YouTube lookup failed", "query", query, "err", err)
	} else if m := videoIDRe.FindSubmatch(body); m != nil {
		target = a.youtube + "/watch?v=" + string(m[1])
	}

	log.Info("Playing", "query", query, "url", target)
	return a.Open(ctx, target)
}

func (a *Actions) Search(ctx context.Context, query string) error {
	return a.Open(ctx, a.search+"/search?q="+url.QueryEscape(query))
}

// Info returns the first sentences of the Wikipedia summary for topic.
func (a *Actions) Info(ctx context.Context, topic string) (string, error) {
	title := strings.ReplaceAll(strings.TrimSpace(topic), " ", "_")
	if title == "" {
		return "", ErrNoSummary
	}

	body, err := a.get(ctx, a.wiki+"/page/summary/"+url.PathEscape(title))
	if err != nil {
		return "", fmt.Errorf("summary of %q: %w", topic, err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("summary of %q: invalid response", topic)
	}

	extract := strings.TrimSpace(gjson.GetBytes(body, "extract").String())
	if extract == "" {
		return "", fmt.Errorf("summary of %q: %w", topic, ErrNoSummary)
	}
	return FirstSentences(extract, a.sentences), nil
}

// Open launches u in the desktop browser.
func (a *Actions) Open(ctx context.Context, u string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.open(u); err != nil {
		return fmt.Errorf("open %s: %w", u, err)
	}
	return nil
}

func (a *Actions) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (jarvis)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
	}
	return body, nil
}

// FirstSentences keeps at most n sentences of text.
func FirstSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	locs := sentenceRe.FindAllStringIndex(text, n)
	if len(locs) < n {
		return text
	}
	return strings.TrimSpace(text[:locs[n-1][1]])
}
