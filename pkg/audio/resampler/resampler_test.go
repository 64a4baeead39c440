package resampler

import (
	"math"
	"testing"

	"github.com/HenryAi-SIBERMU/PeloHub/pkg/audio/wav"
)

func TestResampleSameRateCopies(t *testing.T) {
	in := []float64{0.1, 0.2, 0.3}
	out, err := Resample(in, 16000, 16000)
	if err != nil {
		t.Fatal(err)
	}
	out[0] = 1
	if in[0] != 0.1 {
		t.Fatal("Resample aliased its input")
	}
}

func TestResampleInvalidRates(t *testing.T) {
	if _, err := Resample([]float64{1}, 0, 16000); err == nil {
		t.Fatal("expected error for zero source rate")
	}
}

func TestResampleKeepsDuration(t *testing.T) {
	tests := []struct {
		src, seconds int
	}{
		{8000, 1},
		{22050, 3},
		{44100, 1},
		{48000, 1},
	}
	for _, tt := range tests {
		in := make([]float64, tt.src*tt.seconds)
		for i := range in {
			in[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/float64(tt.src))
		}
		out, err := Resample(in, tt.src, 16000)
		if err != nil {
			t.Fatalf("Resample %d: %v", tt.src, err)
		}
		want := 16000 * tt.seconds
		if len(out) < want-10 || len(out) > want {
			t.Errorf("Resample %d Hz x %ds: len = %d, want ~%d", tt.src, tt.seconds, len(out), want)
		}
	}
}

func TestConformChangesRate(t *testing.T) {
	w := &wav.Waveform{SampleRate: 8000, Channels: 1, BitDepth: 16, Samples: make([]float64, 8000)}
	got, err := Conform(w, 16000)
	if err != nil {
		t.Fatalf("Conform: %v", err)
	}
	if got.SampleRate != 16000 {
		t.Fatalf("rate = %d", got.SampleRate)
	}
	if n := len(got.Samples); n < 15990 || n > 16000 {
		t.Errorf("len = %d, want ~16000", n)
	}

	same, err := Conform(got, 16000)
	if err != nil || same != got {
		t.Errorf("Conform at matching rate should return input, err=%v", err)
	}
}
