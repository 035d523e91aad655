// Package wake detects the trigger word in a transcript and normalizes the
// command so the trigger is always the first token.
package wake

import (
	"strings"
	"unicode"
)

// Command is a transcript that contained the trigger word.
type Command struct {
	Trigger string
	Body    []string
}

// Text renders the normalized command, trigger first.
func (c Command) Text() string {
	if len(c.Body) == 0 {
		return c.Trigger
	}
	return c.Trigger + " " + strings.Join(c.Body, " ")
}

type Gate struct {
	word string
}

func NewGate(word string) *Gate {
	return &Gate{word: normalizeToken(word)}
}

func (g *Gate) Word() string {
	return g.word
}

// Detect reports whether the trigger appears as a whole token anywhere in the
// transcript. The first occurrence is removed from its position; the remaining
// tokens keep their relative order.
func (g *Gate) Detect(transcript string) (Command, bool) {
	tokens := Tokenize(transcript)

	at := -1
	for i, tok := range tokens {
		if tok == g.word {
			at = i
			break
		}
	}
	if at < 0 || g.word == "" {
		return Command{}, false
	}

	body := make([]string, 0, len(tokens)-1)
	body = append(body, tokens[:at]...)
	body = append(body, tokens[at+1:]...)

	return Command{Trigger: g.word, Body: body}, true
}

// Tokenize lowercases the transcript, splits on whitespace and trims
// punctuation from both ends of every token. Tokens left empty are dropped.
func Tokenize(transcript string) []string {
	fields := strings.Fields(transcript)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if tok := normalizeToken(f); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func normalizeToken(s string) string {
	s = strings.ToLower(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
