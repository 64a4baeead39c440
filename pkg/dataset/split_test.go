package dataset

import (
	"fmt"
	"slices"
	"testing"
)

func makeSamples(perLabel, speakersPerLabel int) []Sample {
	var out []Sample
	for _, label := range Labels {
		prefix := "F"
		if label == Control {
			prefix = "FC"
		}
		for i := 0; i < perLabel; i++ {
			spk := fmt.Sprintf("%s%02d", prefix, i%speakersPerLabel+1)
			out = append(out, Sample{
				Path:    fmt.Sprintf("%s/%s/%03d.wav", label, spk, i),
				Label:   label,
				Speaker: spk,
			})
		}
	}
	return out
}

func TestSplitStratified(t *testing.T) {
	samples := makeSamples(100, 5)
	sp := SplitStratified(samples, DefaultSplitOptions())

	if len(sp.Train) != 160 || len(sp.Val) != 20 || len(sp.Test) != 20 {
		t.Fatalf("sizes = %d/%d/%d, want 160/20/20", len(sp.Train), len(sp.Val), len(sp.Test))
	}
	for name, part := range map[string][]Sample{"train": sp.Train, "val": sp.Val, "test": sp.Test} {
		var c int
		for _, s := range part {
			if s.Label == Control {
				c++
			}
		}
		if c*2 != len(part) {
			t.Errorf("%s: %d control of %d", name, c, len(part))
		}
	}
	assertDisjoint(t, samples, sp)

	again := SplitStratified(samples, DefaultSplitOptions())
	if !slices.Equal(sp.Test, again.Test) {
		t.Error("split is not deterministic for a fixed seed")
	}
	other := SplitStratified(samples, SplitOptions{Seed: 7})
	if slices.Equal(sp.Test, other.Test) {
		t.Error("different seeds produced identical test partitions")
	}
}

func TestSplitBySpeaker(t *testing.T) {
	samples := makeSamples(100, 10)
	sp := SplitBySpeaker(samples, DefaultSplitOptions())
	assertDisjoint(t, samples, sp)

	where := make(map[string]string)
	for name, part := range map[string][]Sample{"train": sp.Train, "val": sp.Val, "test": sp.Test} {
		for _, s := range part {
			if prev, ok := where[s.Speaker]; ok && prev != name {
				t.Fatalf("speaker %s in %s and %s", s.Speaker, prev, name)
			}
			where[s.Speaker] = name
		}
	}
	if len(sp.Test) == 0 || len(sp.Val) == 0 {
		t.Errorf("held-out partitions empty: val %d test %d", len(sp.Val), len(sp.Test))
	}
}

func TestSplitBySpeakerKeepsTraining(t *testing.T) {
	samples := makeSamples(10, 1)
	sp := SplitBySpeaker(samples, DefaultSplitOptions())
	if len(sp.Train) != len(samples) {
		t.Errorf("single-speaker labels must stay in training: train %d of %d", len(sp.Train), len(samples))
	}
}

func assertDisjoint(t *testing.T, all []Sample, sp Split) {
	t.Helper()
	seen := make(map[string]bool)
	for _, part := range [][]Sample{sp.Train, sp.Val, sp.Test} {
		for _, s := range part {
			if seen[s.Path] {
				t.Fatalf("%s appears twice", s.Path)
			}
			seen[s.Path] = true
		}
	}
	if len(seen) != len(all) {
		t.Fatalf("split covers %d of %d samples", len(seen), len(all))
	}
}

func TestSummarize(t *testing.T) {
	samples := makeSamples(10, 2)
	st := Summarize("UASpeech", samples, 0.8)
	if st.Samples != 20 || st.Classes != 2 || len(st.Categories) != 2 {
		t.Fatalf("stats = %+v", st)
	}
	c := st.Categories[0]
	if c.Category != "Control" || c.Speakers != 2 || c.Total != 10 || c.Train != 8 || c.Test != 2 {
		t.Errorf("control = %+v", c)
	}
}
