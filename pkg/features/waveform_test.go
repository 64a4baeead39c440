package features

import (
	"math"
	"testing"
)

func TestPadOrTrim(t *testing.T) {
	tests := []struct {
		name string
		in   []float64
		n    int
		want []float64
	}{
		{"pad", []float64{1, 2}, 4, []float64{1, 2, 0, 0}},
		{"trim", []float64{1, 2, 3, 4, 5}, 3, []float64{1, 2, 3}},
		{"exact", []float64{1, 2, 3}, 3, []float64{1, 2, 3}},
		{"empty", nil, 2, []float64{0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadOrTrim(tt.in, tt.n)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %f, want %f", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPadOrTrimDoesNotAlias(t *testing.T) {
	in := []float64{1, 2, 3}
	out := PadOrTrim(in, 3)
	out[0] = 9
	if in[0] != 1 {
		t.Fatal("PadOrTrim modified its input")
	}
}

func TestNormalizeAmplitude(t *testing.T) {
	x := []float64{1, 3, 5}
	NormalizeAmplitude(x, 1e-6)
	// mean 3, peak 2
	want := []float64{-1, 0, 1}
	for i := range x {
		if math.Abs(x[i]-want[i]) > 1e-5 {
			t.Errorf("x[%d] = %f, want ~%f", i, x[i], want[i])
		}
	}
}

func TestNormalizeAmplitudeSilence(t *testing.T) {
	x := make([]float64, 1000)
	NormalizeAmplitude(x, 1e-6)
	for i, v := range x {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("x[%d] = %f, want 0", i, v)
		}
	}
	NormalizeAmplitude(nil, 1e-6)
}
