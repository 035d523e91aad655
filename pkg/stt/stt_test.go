package stt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	f.calls++
	return f.text, f.err
}

func TestChainFallsThroughOnBackendError(t *testing.T) {
	t.Parallel()

	local := &fakeTranscriber{err: errors.New("model crashed")}
	remote := &fakeTranscriber{text: "  Jarvis, Hello "}

	text, err := NewChain().Add("local", local).Add("remote", remote).Transcribe(context.Background(), []float32{0.1})
	require.NoError(t, err)
	assert.Equal(t, "jarvis, hello", text)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 1, remote.calls)
}

func TestChainStopsOnUnintelligible(t *testing.T) {
	t.Parallel()

	local := &fakeTranscriber{err: ErrUnintelligible}
	remote := &fakeTranscriber{text: "hello"}

	_, err := NewChain().Add("local", local).Add("remote", remote).Transcribe(context.Background(), []float32{0.1})
	assert.ErrorIs(t, err, ErrUnintelligible)
	assert.Zero(t, remote.calls)
}

func TestChainReportsLastError(t *testing.T) {
	t.Parallel()

	c := NewChain().
		Add("local", &fakeTranscriber{err: errors.New("oom")}).
		Add("remote", &fakeTranscriber{err: ErrServiceUnavailable})

	_, err := c.Transcribe(context.Background(), []float32{0.1})
	assert.ErrorIs(t, err, ErrServiceUnavailable)

	_, err = NewChain().Add("nil", nil).Transcribe(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoTranscriber)
}

func TestChainEmptyTextIsUnintelligible(t *testing.T) {
	t.Parallel()

	_, err := NewChain().Add("a", &fakeTranscriber{text: "[BLANK_AUDIO]"}).Transcribe(context.Background(), []float32{0})
	assert.ErrorIs(t, err, ErrUnintelligible)
}

func TestClean(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "jarvis play music", Clean(" Jarvis (music) play [noise]  MUSIC "))
	assert.Empty(t, Clean("[BLANK_AUDIO]"))
}

func TestEncodeWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, EncodeWAV(f, []float32{0, 0.5, -0.5, 2}))
	require.NoError(t, f.Close())

	f, err = os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)

	assert.Equal(t, SampleRate, buf.Format.SampleRate)
	assert.Equal(t, 1, buf.Format.NumChannels)
	assert.Equal(t, []int{0, 16384, -16384, 32767}, buf.Data)
}

func TestOpenAITranscribe(t *testing.T) {
	t.Parallel()

	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/transcriptions") {
			http.NotFound(w, r)
			return
		}
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		gotModel = r.FormValue("model")

		file, _, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		data, _ := io.ReadAll(file)
		assert.True(t, strings.HasPrefix(string(data), "RIFF"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"Jarvis what time is it"}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1/", Language: "en"})
	require.NoError(t, err)

	text, err := o.Transcribe(context.Background(), make([]float32, 1600))
	require.NoError(t, err)
	assert.Equal(t, "Jarvis what time is it", text)
	assert.Equal(t, "whisper-1", gotModel)
}

func TestOpenAIUnreachableIsServiceError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: url + "/v1/"})
	require.NoError(t, err)

	_, err = o.Transcribe(context.Background(), make([]float32, 160))
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestOpenAIRejectedAudioIsUnintelligible(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status int
		want   error
	}{
		{http.StatusBadRequest, ErrUnintelligible},
		{http.StatusRequestEntityTooLarge, ErrUnintelligible},
		{http.StatusUnsupportedMediaType, ErrUnintelligible},
		{http.StatusUnauthorized, ErrServiceUnavailable},
		{http.StatusTooManyRequests, ErrServiceUnavailable},
		{http.StatusBadGateway, ErrServiceUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After-Ms", "1")
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":{"message":"Audio file is too short.","type":"invalid_request_error","code":"audio_too_short"}}`))
		}))

		o, err := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1/"})
		require.NoError(t, err)

		_, err = o.Transcribe(context.Background(), make([]float32, 160))
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		if tc.want == ErrUnintelligible {
			assert.NotErrorIs(t, err, ErrServiceUnavailable, "status %d", tc.status)
		}
		srv.Close()
	}
}

func TestOpenAIEmptyTextIsUnintelligible(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"   "}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = o.Transcribe(context.Background(), make([]float32, 160))
	assert.ErrorIs(t, err, ErrUnintelligible)

	_, err = NewOpenAI(OpenAIConfig{})
	assert.Error(t, err)
}
