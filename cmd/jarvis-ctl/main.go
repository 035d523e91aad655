package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"jarvis/internal/config"
	"jarvis/internal/ipc"
)

const usage = `usage: jarvis-ctl [flags] <command>

commands:
  say <text...>     handle text as the next utterance
  replay <file>     transcribe an audio file as the next utterance
  voice <id>        save the preferred voice for the next start
`

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	rate := cli.IntP("rate", "r", config.DefaultRate, "Speech rate for voice, words per minute")
	volume := cli.Float64P("volume", "v", config.DefaultVolume, "Volume for voice, 0 to 1")
	cli.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		cli.PrintDefaults()
	}
	cli.Parse()

	_ = godotenv.Load(*envFile)
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}

	args := cli.Args()
	if len(args) < 2 {
		cli.Usage()
		os.Exit(2)
	}

	switch args[0] {
	case "say":
		send(cfg, ipc.ControlMessage{Cmd: ipc.CmdSay, Text: strings.Join(args[1:], " ")})
	case "replay":
		path, err := filepath.Abs(args[1])
		if err != nil {
			fail(err)
		}
		send(cfg, ipc.ControlMessage{Cmd: ipc.CmdReplay, Path: path})
	case "voice":
		if *volume < 0 || *volume > 1 {
			fail(fmt.Errorf("volume %v out of range", *volume))
		}
		pref := config.VoicePreference{VoiceID: args[1], Rate: *rate, Volume: *volume}
		if err := config.SaveVoicePreference(cfg.Voice.PreferencePath, pref); err != nil {
			fail(err)
		}
		fmt.Printf("Saved voice %q to %s, restart jarvis to apply\n", pref.VoiceID, cfg.Voice.PreferencePath)
	default:
		cli.Usage()
		os.Exit(2)
	}
}

func send(cfg config.Config, msg ipc.ControlMessage) {
	if err := ipc.Send(cfg.Control.Socket, msg); err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "jarvis-ctl:", err)
	os.Exit(1)
}
