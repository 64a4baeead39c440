package dataset

// CategoryStats summarizes one label of a dataset.
type CategoryStats struct {
	Category string `json:"category" yaml:"category" msgpack:"category"`
	Speakers int    `json:"speakers" yaml:"speakers" msgpack:"speakers"`
	Total    int    `json:"totalRaw" yaml:"totalRaw" msgpack:"totalRaw"`
	Train    int    `json:"trainRaw" yaml:"trainRaw" msgpack:"trainRaw"`
	Test     int    `json:"testRaw" yaml:"testRaw" msgpack:"testRaw"`
}

// Stats summarizes a dataset for reporting.
type Stats struct {
	Dataset    string          `json:"name" yaml:"name" msgpack:"name"`
	Samples    int             `json:"samples" yaml:"samples" msgpack:"samples"`
	Classes    int             `json:"classes" yaml:"classes" msgpack:"classes"`
	Categories []CategoryStats `json:"summary" yaml:"summary" msgpack:"summary"`
}

// Summarize counts samples and distinct speakers per label. Train and Test
// are the sizes the holdout split would produce with trainFraction.
func Summarize(name string, samples []Sample, trainFraction float64) Stats {
	st := Stats{Dataset: name, Samples: len(samples), Classes: len(Labels)}
	for _, label := range Labels {
		speakers := make(map[string]struct{})
		total := 0
		for _, s := range samples {
			if s.Label != label {
				continue
			}
			total++
			speakers[s.Speaker] = struct{}{}
		}
		train := int(float64(total) * trainFraction)
		st.Categories = append(st.Categories, CategoryStats{
			Category: label.Title(),
			Speakers: len(speakers),
			Total:    total,
			Train:    train,
			Test:     total - train,
		})
	}
	return st
}
