package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, path string, rate, channels int, samples []int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
		Data:           samples,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
}

func TestDecodeWAVAtTargetRate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "u.wav")
	writeWAV(t, path, 16000, 1, []int{0, 16384, -16384, 32767})

	pcm, err := DecodeFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, pcm, 4)
	assert.InDelta(t, 0, pcm[0], 1e-6)
	assert.InDelta(t, 0.5, pcm[1], 1e-4)
	assert.InDelta(t, -0.5, pcm[2], 1e-4)
	assert.InDelta(t, 1, pcm[3], 1e-4)
}

func TestDecodeStereoResampled(t *testing.T) {
	t.Parallel()

	// One second of stereo at 8 kHz where the channels cancel out.
	data := make([]int, 8000*2)
	for i := 0; i < len(data); i += 2 {
		data[i] = 1000
		data[i+1] = -1000
	}
	path := filepath.Join(t.TempDir(), "stereo.bin")
	writeWAV(t, path, 8000, 2, data)

	pcm, err := DecodeFile(context.Background(), path, Options{MaxSamples: 12000})
	require.NoError(t, err)
	assert.Len(t, pcm, 12000)
	for _, v := range pcm {
		require.InDelta(t, 0, v, 1e-6)
	}
}

func TestDecodeUnsupported(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello there"), 0o644))

	_, err := DecodeFile(context.Background(), path, Options{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = DecodeFile(context.Background(), filepath.Join(dir, "missing.wav"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResampleAndDownmix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float32{0, 0.5, 1, 1}, Resample([]float32{0, 1}, 8000, 16000))
	assert.Equal(t, []float32{0, 1}, Resample([]float32{0, 1}, 16000, 16000))
	assert.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))
}
