// Package audio opens the default input device through portaudio.
package audio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"jarvis/internal/listen"
)

type Recorder struct {
	mu     sync.Mutex
	inited bool
}

var _ listen.Microphone = (*Recorder)(nil)

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Init() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inited {
		return nil
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	r.inited = true
	return nil
}

func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inited {
		portaudio.Terminate()
		r.inited = false
	}
}

// Open starts a mono input stream delivering frameSize samples per Read.
func (r *Recorder) Open(sampleRate, frameSize int) (listen.Stream, error) {
	r.mu.Lock()
	inited := r.inited
	r.mu.Unlock()
	if !inited {
		return nil, errors.New("recorder not initialized")
	}

	s := &stream{buf: make([]float32, frameSize)}

	st, err := portaudio.OpenDefaultStream(1, 0, float64(sampleRate), len(s.buf), s.buf)
	if err != nil {
		return nil, fmt.Errorf("open stream: %w", err)
	}
	if err := st.Start(); err != nil {
		st.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	s.st = st

	return s, nil
}

type stream struct {
	st  *portaudio.Stream
	buf []float32
}

func (s *stream) Read(frame []float32) error {
	if err := s.st.Read(); err != nil {
		// an overflow only means frames were dropped
		if errors.Is(err, portaudio.InputOverflowed) {
			copy(frame, s.buf)
			return nil
		}
		return err
	}
	copy(frame, s.buf)
	return nil
}

func (s *stream) Close() error {
	stopErr := s.st.Stop()
	closeErr := s.st.Close()
	return errors.Join(stopErr, closeErr)
}
