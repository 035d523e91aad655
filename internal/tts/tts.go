// Package tts speaks text through an ordered chain of speech mechanisms.
package tts

import (
	"errors"
	"fmt"
	"strings"

	"jarvis/internal/config"
)

var ErrNoVoices = errors.New("no voices available")

// Engine is an in-process speech synthesizer.
type Engine interface {
	Say(text string) error
	Voices() ([]Voice, error)
	SetVoice(id string) error
	SetRate(wpm int) error
	SetVolume(v float64) error
	Close() error
}

type Voice struct {
	ID   string
	Name string
}

// Speaker is anything that can attempt to say a line. Speak never fails.
type Speaker interface {
	Speak(text string)
}

// FemaleHints are name fragments of known female voices, in preference order.
var FemaleHints = []string{"samantha", "siri", "karen", "moira", "tessa", "fiona", "female", "woman", "girl"}

// SelectVoice picks the saved voice when it is installed, else the first
// voice matching a female hint, else the second voice, else the first.
func SelectVoice(voices []Voice, preferred string) (Voice, error) {
	if len(voices) == 0 {
		return Voice{}, ErrNoVoices
	}

	if preferred != "" {
		for _, v := range voices {
			if v.ID == preferred || strings.EqualFold(v.Name, preferred) {
				return v, nil
			}
		}
	}

	for _, hint := range FemaleHints {
		for _, v := range voices {
			if strings.Contains(strings.ToLower(v.Name), hint) || strings.Contains(strings.ToLower(v.ID), hint) {
				return v, nil
			}
		}
	}

	if len(voices) > 1 {
		return voices[1], nil
	}
	return voices[0], nil
}

// Configure applies the voice selection policy and the saved rate and volume.
func Configure(e Engine, pref config.VoicePreference) (Voice, error) {
	voices, err := e.Voices()
	if err != nil {
		return Voice{}, fmt.Errorf("list voices: %w", err)
	}

	v, err := SelectVoice(voices, pref.VoiceID)
	if err != nil {
		return Voice{}, err
	}
	if err := e.SetVoice(v.ID); err != nil {
		return Voice{}, fmt.Errorf("set voice %q: %w", v.ID, err)
	}
	if err := e.SetRate(pref.Rate); err != nil {
		return v, fmt.Errorf("set rate: %w", err)
	}
	if err := e.SetVolume(pref.Volume); err != nil {
		return v, fmt.Errorf("set volume: %w", err)
	}
	return v, nil
}

// shellEscape makes text safe inside a double-quoted sh word.
func shellEscape(text string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return r.Replace(text)
}
