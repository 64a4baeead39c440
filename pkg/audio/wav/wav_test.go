package wav

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
)

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	src := &Waveform{SampleRate: 16000, Samples: make([]float64, 1600)}
	for i := range src.Samples {
		src.Samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/16000)
	}
	if err := WriteFile(path, src); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.SampleRate != 16000 || got.Channels != 1 || got.BitDepth != 16 {
		t.Fatalf("format = %d Hz, %d ch, %d bit", got.SampleRate, got.Channels, got.BitDepth)
	}
	if len(got.Samples) != len(src.Samples) {
		t.Fatalf("samples = %d, want %d", len(got.Samples), len(src.Samples))
	}
	for i := range got.Samples {
		if math.Abs(got.Samples[i]-src.Samples[i]) > 1.0/16384 {
			t.Fatalf("sample %d = %f, want ~%f", i, got.Samples[i], src.Samples[i])
		}
	}
	if d := got.Duration(); d != 100*time.Millisecond {
		t.Errorf("Duration = %v, want 100ms", d)
	}
}

func TestDecodeKeepsFirstChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	enc := gowav.NewEncoder(f, 8000, 16, 2, 1)
	// Left channel is constant 16384, right channel is -16384.
	data := make([]int, 200)
	for i := range data {
		if i%2 == 0 {
			data[i] = 16384
		} else {
			data[i] = -16384
		}
	}
	buf := &audio.IntBuffer{Format: &audio.Format{NumChannels: 2, SampleRate: 8000}, Data: data, SourceBitDepth: 16}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if w.Channels != 2 || len(w.Samples) != 100 {
		t.Fatalf("channels %d samples %d", w.Channels, len(w.Samples))
	}
	for i, s := range w.Samples {
		if s != 0.5 {
			t.Fatalf("sample %d = %f, want 0.5", i, s)
		}
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := DecodeBytes([]byte("definitely not a riff file"))
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}
