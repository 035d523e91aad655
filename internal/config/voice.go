package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

const (
	DefaultRate   = 170
	DefaultVolume = 1.0
)

// VoicePreference is the saved voice selection. It is read once at startup.
type VoicePreference struct {
	VoiceID string  `json:"voice_id"`
	Rate    int     `json:"rate"`
	Volume  float64 `json:"volume"`
}

func DefaultVoicePreference() VoicePreference {
	return VoicePreference{Rate: DefaultRate, Volume: DefaultVolume}
}

// LoadVoicePreference reads the preference file. A missing file is not an
// error; ok reports whether a saved voice id was found.
func LoadVoicePreference(path string) (pref VoicePreference, ok bool, err error) {
	pref = DefaultVoicePreference()
	if path == "" {
		return pref, false, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return pref, false, nil
		}
		return pref, false, fmt.Errorf("read voice preference %q: %w", path, err)
	}

	var raw struct {
		VoiceID string   `json:"voice_id"`
		Rate    *int     `json:"rate"`
		Volume  *float64 `json:"volume"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return pref, false, fmt.Errorf("parse voice preference %q: %w", path, err)
	}

	pref.VoiceID = raw.VoiceID
	if raw.Rate != nil && *raw.Rate > 0 {
		pref.Rate = *raw.Rate
	}
	if raw.Volume != nil && *raw.Volume >= 0 && *raw.Volume <= 1 {
		pref.Volume = *raw.Volume
	}

	return pref, pref.VoiceID != "", nil
}

// SaveVoicePreference writes the preference file.
func SaveVoicePreference(path string, pref VoicePreference) error {
	data, err := json.MarshalIndent(pref, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write voice preference %q: %w", path, err)
	}
	return nil
}
