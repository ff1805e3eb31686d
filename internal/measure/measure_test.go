package measure

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, sampleRateHz, channels int, samples [][]int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.wav")

	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRateHz, 16, channels, 1)

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRateHz},
		Data:           make([]int, 0, len(samples)*channels),
		SourceBitDepth: 16,
	}

	for _, frame := range samples {
		buf.Data = append(buf.Data, frame...)
	}

	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	return path
}

func TestFileMeasuresMonoTone(t *testing.T) {
	const sampleRateHz = 48000

	n := sampleRateHz // 1 second, i.e. ten 100 ms windows
	samples := make([][]int, n)

	for i := range samples {
		x := math.Sin(2 * math.Pi * 1000 * float64(i) / sampleRateHz)
		samples[i] = []int{int(x * 20000)}
	}

	path := writeWAV(t, sampleRateHz, 1, samples)

	result, err := File(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, sampleRateHz, result.Format.SampleRateHz)
	assert.Equal(t, 1, result.Format.Channels)
	assert.Equal(t, 10, len(result.Windows)) // 1s / 100ms
}

func TestFileRejectsSurroundInput(t *testing.T) {
	const sampleRateHz = 48000

	samples := make([][]int, sampleRateHz/10)
	for i := range samples {
		samples[i] = []int{0, 0, 0, 0, 0, 0}
	}

	path := writeWAV(t, sampleRateHz, 6, samples)

	_, err := File(context.Background(), path)
	require.ErrorIs(t, err, ErrUnsupportedChannelLayout)
}
