package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	WakeWord string
	Serial   SerialConfig
	Voice    VoiceConfig
	Listen   ListenConfig
	STT      STTConfig
	Session  SessionConfig
	Skills   SkillsConfig
	Activity ActivityConfig
	Control  ControlConfig
}

type SerialConfig struct {
	Fallback string
	Baud     int
}

type VoiceConfig struct {
	PreferencePath string
	SayCommand     string
	SayVoice       string
	SayTimeout     time.Duration
	Earcon         string
	Duck           bool
}

type ListenConfig struct {
	Calibration     time.Duration
	WaitTimeout     time.Duration
	PhraseLimit     time.Duration
	EnergyThreshold float64
	PauseThreshold  time.Duration
}

type STTConfig struct {
	WhisperModel string
	OpenAIKey    string
	OpenAIModel  string
	Language     string
	Proxy        string
}

type SessionConfig struct {
	ResetInterval time.Duration
	CycleSleep    time.Duration
}

type SkillsConfig struct {
	DefaultCity string
}

type ActivityConfig struct {
	Path   string
	BusURL string
}

type ControlConfig struct {
	Socket string
}

// Load resolves configuration from the environment with defaults.
func Load() (Config, error) {
	cfg := Config{
		WakeWord: strings.ToLower(envOrDefault("JARVIS_WAKE_WORD", "jarvis")),
		Serial: SerialConfig{
			Fallback: envOrDefault("JARVIS_SERIAL_PORT", "/dev/tty.usbmodem14101"),
			Baud:     envOrDefaultInt("JARVIS_SERIAL_BAUD", 9600),
		},
		Voice: VoiceConfig{
			PreferencePath: envOrDefault("JARVIS_VOICE_CONFIG", "jarvis_voice_config.json"),
			SayCommand:     envOrDefault("JARVIS_SAY_COMMAND", defaultSayCommand()),
			SayVoice:       envOrDefault("JARVIS_SAY_VOICE", defaultSayVoice()),
			SayTimeout:     time.Duration(envOrDefaultInt("JARVIS_SAY_TIMEOUT_SEC", 10)) * time.Second,
			Earcon:         strings.TrimSpace(os.Getenv("JARVIS_EARCON")),
			Duck:           envOrDefaultBool("JARVIS_DUCK", false),
		},
		Listen: ListenConfig{
			Calibration:     time.Duration(envOrDefaultInt("JARVIS_CALIBRATION_MS", 300)) * time.Millisecond,
			WaitTimeout:     time.Duration(envOrDefaultInt("JARVIS_LISTEN_TIMEOUT_SEC", 10)) * time.Second,
			PhraseLimit:     time.Duration(envOrDefaultInt("JARVIS_PHRASE_LIMIT_SEC", 5)) * time.Second,
			EnergyThreshold: envOrDefaultFloat("JARVIS_ENERGY_THRESHOLD", 4000),
			PauseThreshold:  time.Duration(envOrDefaultInt("JARVIS_PAUSE_THRESHOLD_MS", 800)) * time.Millisecond,
		},
		STT: STTConfig{
			WhisperModel: strings.TrimSpace(os.Getenv("WHISPER_MODEL")),
			OpenAIKey:    strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			OpenAIModel:  envOrDefault("OPENAI_TRANSCRIBE_MODEL", "whisper-1"),
			Language:     envOrDefault("JARVIS_LANGUAGE", "en"),
			Proxy:        strings.TrimSpace(os.Getenv("JARVIS_PROXY")),
		},
		Session: SessionConfig{
			ResetInterval: time.Duration(envOrDefaultInt("JARVIS_RESET_INTERVAL_SEC", 300)) * time.Second,
			CycleSleep:    100 * time.Millisecond,
		},
		Skills: SkillsConfig{
			DefaultCity: envOrDefault("JARVIS_DEFAULT_CITY", "San Francisco"),
		},
		Activity: ActivityConfig{
			Path:   envOrDefault("JARVIS_ACTIVITY_LOG", "command_log.txt"),
			BusURL: strings.TrimSpace(os.Getenv("BUS_URL")),
		},
		Control: ControlConfig{
			Socket: envOrDefault("JARVIS_CONTROL_SOCKET", "/tmp/jarvis.sock"),
		},
	}

	if cfg.WakeWord == "" {
		cfg.WakeWord = "jarvis"
	}
	if cfg.Serial.Baud <= 0 {
		cfg.Serial.Baud = 9600
	}
	if cfg.Voice.SayTimeout <= 0 {
		cfg.Voice.SayTimeout = 10 * time.Second
	}
	if cfg.Listen.Calibration <= 0 {
		cfg.Listen.Calibration = 300 * time.Millisecond
	}
	if cfg.Listen.WaitTimeout <= 0 {
		cfg.Listen.WaitTimeout = 10 * time.Second
	}
	if cfg.Listen.PhraseLimit <= 0 {
		cfg.Listen.PhraseLimit = 5 * time.Second
	}
	if cfg.Listen.EnergyThreshold <= 0 {
		cfg.Listen.EnergyThreshold = 4000
	}
	if cfg.Listen.PauseThreshold <= 0 {
		cfg.Listen.PauseThreshold = 800 * time.Millisecond
	}
	if cfg.Session.ResetInterval <= 0 {
		cfg.Session.ResetInterval = 5 * time.Minute
	}

	return cfg, nil
}

func defaultSayCommand() string {
	if runtime.GOOS == "darwin" {
		return "say"
	}
	return "espeak-ng"
}

func defaultSayVoice() string {
	if runtime.GOOS == "darwin" {
		return "Karen"
	}
	return "en-us+f3"
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
