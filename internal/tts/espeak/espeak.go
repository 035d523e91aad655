// Package espeak drives espeak-ng in synchronous playback mode.
package espeak

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
jv_init(void)
{
	return espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
}

static int
jv_say(const char *text)
{
	if (!text)
	{ return -1; }

	espeak_ERROR rc = espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0,
		espeakCHARS_AUTO, NULL, NULL);
	if (rc != EE_OK)
	{ return (int)rc; }

	return (int)espeak_Synchronize();
}

static int
jv_voice_count(void)
{
	const espeak_VOICE **voices = espeak_ListVoices(NULL);
	int n = 0;
	while (voices && voices[n])
	{ n++; }
	return n;
}

static const char *
jv_voice_name(int i)
{
	return espeak_ListVoices(NULL)[i]->name;
}

static const char *
jv_voice_id(int i)
{
	return espeak_ListVoices(NULL)[i]->identifier;
}

static int
jv_set_voice(const char *name)
{
	return (int)espeak_SetVoiceByName(name);
}

static int
jv_set_rate(int wpm)
{
	return (int)espeak_SetParameter(espeakRATE, wpm, 0);
}

static int
jv_set_volume(int volume)
{
	return (int)espeak_SetParameter(espeakVOLUME, volume, 0);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"jarvis/internal/tts"
)

var ErrClosed = errors.New("espeak engine closed")

// The library keeps global state; engines share one initialization.
var (
	libMu sync.Mutex
	refs  int
	// inits counts library initializations.
	inits int
)

type Engine struct {
	closed bool
}

var _ tts.Engine = (*Engine)(nil)

func New() (*Engine, error) {
	libMu.Lock()
	defer libMu.Unlock()

	if refs == 0 {
		if err := initLib(); err != nil {
			return nil, err
		}
	}
	refs++

	return &Engine{}, nil
}

// NewFresh is New with the library state torn down and initialized again,
// even while other engines hold it. Those engines keep working on the new
// state.
func NewFresh() (*Engine, error) {
	libMu.Lock()
	defer libMu.Unlock()

	if refs > 0 {
		C.espeak_Terminate()
	}
	if err := initLib(); err != nil {
		refs = 0
		return nil, err
	}
	refs++

	return &Engine{}, nil
}

func initLib() error {
	if rc := C.jv_init(); rc < 0 {
		return fmt.Errorf("espeak_Initialize failed: %d", int(rc))
	}
	inits++
	return nil
}

func (e *Engine) Say(text string) error {
	if text == "" {
		return nil
	}

	libMu.Lock()
	defer libMu.Unlock()
	if e.closed {
		return ErrClosed
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.jv_say(ctext); rc != 0 {
		return fmt.Errorf("espeak_Synth failed: %d", int(rc))
	}
	return nil
}

func (e *Engine) Voices() ([]tts.Voice, error) {
	libMu.Lock()
	defer libMu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	n := int(C.jv_voice_count())
	out := make([]tts.Voice, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tts.Voice{
			ID:   C.GoString(C.jv_voice_id(C.int(i))),
			Name: C.GoString(C.jv_voice_name(C.int(i))),
		})
	}
	return out, nil
}

// SetVoice accepts a voice name or a voice file identifier.
func (e *Engine) SetVoice(id string) error {
	libMu.Lock()
	defer libMu.Unlock()
	if e.closed {
		return ErrClosed
	}

	cid := C.CString(id)
	defer C.free(unsafe.Pointer(cid))

	if rc := C.jv_set_voice(cid); rc != 0 {
		return fmt.Errorf("espeak_SetVoiceByName(%q) failed: %d", id, int(rc))
	}
	return nil
}

func (e *Engine) SetRate(wpm int) error {
	libMu.Lock()
	defer libMu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if rc := C.jv_set_rate(C.int(wpm)); rc != 0 {
		return fmt.Errorf("set rate failed: %d", int(rc))
	}
	return nil
}

// SetVolume maps 0.0-1.0 onto the 0-200 espeak amplitude scale, where 100 is
// normal volume.
func (e *Engine) SetVolume(v float64) error {
	libMu.Lock()
	defer libMu.Unlock()
	if e.closed {
		return ErrClosed
	}

	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if rc := C.jv_set_volume(C.int(v * 100)); rc != 0 {
		return fmt.Errorf("set volume failed: %d", int(rc))
	}
	return nil
}

func (e *Engine) Close() error {
	libMu.Lock()
	defer libMu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if refs == 0 {
		return nil
	}
	refs--
	if refs == 0 {
		C.espeak_Terminate()
	}
	return nil
}
