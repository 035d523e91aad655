package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"jarvis/internal/activity"
	"jarvis/internal/audio"
	"jarvis/internal/config"
	"jarvis/internal/duck"
	"jarvis/internal/expression"
	"jarvis/internal/intent"
	"jarvis/internal/ipc"
	"jarvis/internal/listen"
	"jarvis/internal/notify"
	"jarvis/internal/proxy"
	"jarvis/internal/session"
	"jarvis/internal/skills"
	"jarvis/internal/tts"
	"jarvis/internal/tts/espeak"
	"jarvis/internal/wake"
	"jarvis/internal/web"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/protocol"
	"jarvis/pkg/stt"
	"jarvis/pkg/stt/whisper"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.Kitchen,
	})))

	log.Info("Starting Jarvis")

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("Failed to load env file", "path", *envFile, "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	device := expression.Open(expression.Config{
		Fallback: cfg.Serial.Fallback,
		Baud:     cfg.Serial.Baud,
	})

	speech := newSpeech(cfg)

	var speaker tts.Speaker = speech
	if cfg.Voice.Duck {
		speaker = tts.WithDucking(speech, duck.New(duck.Options{
			Self:     []string{"jarvis", "espeak", "say"},
			FadeTime: 150 * time.Millisecond,
		}))
	}

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer rec.Close()

	transcriber, closeSTT := newTranscriber(cfg)
	defer closeSTT()

	gate := wake.NewGate(cfg.WakeWord)
	capture := listen.New(rec, transcriber, gate, device, listen.ConfigFrom(cfg.Listen))

	var bus activity.Publisher
	if cfg.Activity.BusURL != "" {
		pub := protocol.NewPublisher(cfg.Activity.BusURL, "JARVIS", 2*time.Second)
		defer pub.Close()
		bus = pub
	}

	dispatcher := intent.New(intent.Deps{
		Speaker:    speaker,
		Expression: device,
		Recorder:   activity.New(cfg.Activity.Path, bus),
		Skills:     skills.New(skills.Options{DefaultCity: cfg.Skills.DefaultCity}),
		Actions:    web.New(web.Options{}),
	})

	sess := session.New(capture, dispatcher, speaker, device, session.Options{
		WakeWord:      cfg.WakeWord,
		ResetInterval: cfg.Session.ResetInterval,
		CycleSleep:    cfg.Session.CycleSleep,
		Release:       speech.Close,
		Earcon:        notify.NewEarcon(cfg.Voice.Earcon),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ipc.Serve(ctx, cfg.Control.Socket, control(ctx, sess)); err != nil {
		log.Warn("Control socket unavailable", "path", cfg.Control.Socket, "err", err)
	}

	log.Info("Boot up - successful")

	sess.Startup()
	if err := sess.Run(ctx); err != nil {
		log.Error("Session ended", "err", err)
		os.Exit(1)
	}
}

func newSpeech(cfg config.Config) *tts.Cascade {
	pref, ok, err := config.LoadVoicePreference(cfg.Voice.PreferencePath)
	switch {
	case err != nil:
		log.Warn("Ignoring voice preference", "err", err)
	case ok:
		log.Info("Loaded voice preference", "voice", pref.VoiceID, "rate", pref.Rate)
	}

	var engine tts.Engine
	if e, err := espeak.New(); err != nil {
		log.Warn("Speech engine unavailable, using fallbacks", "err", err)
	} else if v, err := tts.Configure(e, pref); err != nil {
		log.Warn("Failed to configure speech engine", "err", err)
		e.Close()
	} else {
		log.Info("Speech engine ready", "voice", v.Name)
		engine = e
	}

	fresh := func() (tts.Engine, error) {
		return espeak.NewFresh()
	}

	return tts.NewStandard(tts.Options{
		Engine:     engine,
		NewEngine:  fresh,
		Voice:      pref,
		SayCommand: cfg.Voice.SayCommand,
		SayVoice:   cfg.Voice.SayVoice,
		SayTimeout: cfg.Voice.SayTimeout,
	})
}

// newTranscriber chains the local model, when configured, in front of the
// hosted service.
func newTranscriber(cfg config.Config) (stt.Transcriber, func()) {
	chain := stt.NewChain()
	closers := []func(){}

	if cfg.STT.WhisperModel != "" {
		w, err := whisper.New(cfg.STT.WhisperModel, whisper.Options{
			Language:      cfg.STT.Language,
			InitialPrompt: cfg.WakeWord,
		})
		if err != nil {
			log.Warn("Failed to load whisper model", "path", cfg.STT.WhisperModel, "err", err)
		} else {
			chain.Add("whisper", w)
			closers = append(closers, func() { w.Close() })
		}
	}

	if cfg.STT.OpenAIKey != "" {
		oc := stt.OpenAIConfig{
			APIKey:   cfg.STT.OpenAIKey,
			Model:    cfg.STT.OpenAIModel,
			Language: cfg.STT.Language,
		}
		if cfg.STT.Proxy != "" {
			hc, err := proxy.NewSocksClient(cfg.STT.Proxy, time.Minute)
			if err != nil {
				log.Warn("Failed to set up socks proxy", "proxy", cfg.STT.Proxy, "err", err)
			} else {
				oc.HTTPClient = hc
			}
		}
		o, err := stt.NewOpenAI(oc)
		if err != nil {
			log.Warn("Failed to set up transcription service", "err", err)
		} else {
			chain.Add("openai", o)
		}
	}

	if chain.Len() == 0 {
		log.Warn("No transcriber configured, set WHISPER_MODEL or OPENAI_API_KEY")
	}

	return chain, func() {
		for _, c := range closers {
			c()
		}
	}
}

func control(ctx context.Context, sess *session.Session) ipc.Handler {
	return func(msg ipc.ControlMessage) error {
		switch msg.Cmd {
		case ipc.CmdSay:
			if msg.Text == "" {
				return errors.New("empty text")
			}
			return sess.Inject(session.Input{Text: msg.Text})
		case ipc.CmdReplay:
			pcm, err := audioconv.DecodeFile(ctx, msg.Path, audioconv.Options{SampleRate: stt.SampleRate})
			if err != nil {
				return err
			}
			return sess.Inject(session.Input{PCM: pcm})
		default:
			return fmt.Errorf("unknown command %q", msg.Cmd)
		}
	}
}
