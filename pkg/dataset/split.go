package dataset

import (
	"math"
	"math/rand/v2"
	"slices"
)

// SplitOptions controls train/validation/test partitioning.
type SplitOptions struct {
	HoldoutFraction float64 // share of samples held out of training (default 0.2)
	TestFraction    float64 // share of the held-out samples used for testing (default 0.5)
	Seed            uint64  // shuffle seed (default 42)
}

// DefaultSplitOptions returns an 80/10/10 split with seed 42.
func DefaultSplitOptions() SplitOptions {
	return SplitOptions{HoldoutFraction: 0.2, TestFraction: 0.5, Seed: 42}
}

func (o SplitOptions) withDefaults() SplitOptions {
	d := DefaultSplitOptions()
	if o.HoldoutFraction <= 0 || o.HoldoutFraction >= 1 {
		o.HoldoutFraction = d.HoldoutFraction
	}
	if o.TestFraction <= 0 || o.TestFraction > 1 {
		o.TestFraction = d.TestFraction
	}
	return o
}

// Split holds three disjoint partitions of a listing.
type Split struct {
	Train []Sample `json:"train" yaml:"train"`
	Val   []Sample `json:"val" yaml:"val"`
	Test  []Sample `json:"test" yaml:"test"`
}

// SplitStratified partitions samples at random while keeping the label
// proportions of every partition close to those of the input. The result
// depends only on samples and opts.
func SplitStratified(samples []Sample, opts SplitOptions) Split {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var sp Split
	for _, group := range groupByLabel(samples) {
		rng.Shuffle(len(group), func(i, j int) { group[i], group[j] = group[j], group[i] })
		held := ceilFrac(len(group), opts.HoldoutFraction)
		test := ceilFrac(held, opts.TestFraction)
		sp.Train = append(sp.Train, group[:len(group)-held]...)
		sp.Val = append(sp.Val, group[len(group)-held:len(group)-test]...)
		sp.Test = append(sp.Test, group[len(group)-test:]...)
	}
	shuffleSamples(rng, sp.Train)
	shuffleSamples(rng, sp.Val)
	shuffleSamples(rng, sp.Test)
	return sp
}

// SplitBySpeaker partitions samples so that every speaker appears in exactly
// one partition (subject-independent evaluation). Speakers are drawn per
// label until each held-out partition reaches its target size; at least one
// speaker per label stays in training.
func SplitBySpeaker(samples []Sample, opts SplitOptions) Split {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var sp Split
	for _, group := range groupByLabel(samples) {
		bySpeaker := make(map[string][]Sample)
		for _, s := range group {
			bySpeaker[s.Speaker] = append(bySpeaker[s.Speaker], s)
		}
		speakers := make([]string, 0, len(bySpeaker))
		for spk := range bySpeaker {
			speakers = append(speakers, spk)
		}
		slices.Sort(speakers)
		rng.Shuffle(len(speakers), func(i, j int) { speakers[i], speakers[j] = speakers[j], speakers[i] })

		held := ceilFrac(len(group), opts.HoldoutFraction)
		wantTest := ceilFrac(held, opts.TestFraction)
		wantVal := held - wantTest

		var nTest, nVal int
		for i, spk := range speakers {
			files := bySpeaker[spk]
			last := i == len(speakers)-1
			switch {
			case !last && nTest < wantTest:
				sp.Test = append(sp.Test, files...)
				nTest += len(files)
			case !last && nVal < wantVal:
				sp.Val = append(sp.Val, files...)
				nVal += len(files)
			default:
				sp.Train = append(sp.Train, files...)
			}
		}
	}
	shuffleSamples(rng, sp.Train)
	shuffleSamples(rng, sp.Val)
	shuffleSamples(rng, sp.Test)
	return sp
}

// groupByLabel returns copies of the samples grouped by label, in label
// index order followed by any other labels in sorted order.
func groupByLabel(samples []Sample) [][]Sample {
	byLabel := make(map[Label][]Sample)
	var extra []Label
	for _, s := range samples {
		if _, seen := byLabel[s.Label]; !seen && !slices.Contains(Labels, s.Label) {
			extra = append(extra, s.Label)
		}
		byLabel[s.Label] = append(byLabel[s.Label], s)
	}
	slices.Sort(extra)

	var groups [][]Sample
	for _, l := range append(slices.Clone(Labels), extra...) {
		if g := byLabel[l]; len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}

func shuffleSamples(rng *rand.Rand, s []Sample) {
	rng.Shuffle(len(s), func(i, j int) { s[i], s[j] = s[j], s[i] })
}

// ceilFrac returns ceil(n*frac) clamped to [0, n].
func ceilFrac(n int, frac float64) int {
	k := int(math.Ceil(float64(n)*frac - 1e-9))
	return min(max(k, 0), n)
}
