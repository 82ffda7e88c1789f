package profile

// Sample is one point of an elevation profile, aligned with a route vertex.
type Sample struct {
	DistanceKm float64 `json:"distance_km"`
	ElevationM float64 `json:"elevation_m"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
}

// Source records which path produced a profile.
type Source string

const (
	SourceCached  Source = "cached"
	SourceTerrain Source = "terrain"
	SourceNone    Source = "none"
)

// Series is an ordered profile. DistanceKm is non-decreasing across Samples.
type Series struct {
	Samples []Sample `json:"samples"`
	Source  Source   `json:"source"`
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Samples) }

// IsEmpty reports whether the series holds no samples.
func (s Series) IsEmpty() bool { return len(s.Samples) == 0 }

// Distances returns the x axis of the chart.
func (s Series) Distances() []float64 {
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.DistanceKm
	}
	return out
}

// Elevations returns the y axis of the chart.
func (s Series) Elevations() []float64 {
	out := make([]float64, len(s.Samples))
	for i, smp := range s.Samples {
		out[i] = smp.ElevationM
	}
	return out
}

// Stats summarizes a series.
type Stats struct {
	TotalKm float64 `json:"total_km"`
	MinM    float64 `json:"min_m"`
	MaxM    float64 `json:"max_m"`
	GainM   float64 `json:"gain_m"`
	LossM   float64 `json:"loss_m"`
	Samples int     `json:"samples"`
}

// Summarize computes gain, loss and extremes over the series.
func (s Series) Summarize() Stats {
	st := Stats{Samples: len(s.Samples)}
	if len(s.Samples) == 0 {
		return st
	}
	st.MinM = s.Samples[0].ElevationM
	st.MaxM = s.Samples[0].ElevationM
	for i, smp := range s.Samples {
		if smp.ElevationM < st.MinM {
			st.MinM = smp.ElevationM
		}
		if smp.ElevationM > st.MaxM {
			st.MaxM = smp.ElevationM
		}
		if i == 0 {
			continue
		}
		diff := smp.ElevationM - s.Samples[i-1].ElevationM
		if diff > 0 {
			st.GainM += diff
		} else {
			st.LossM -= diff
		}
	}
	st.TotalKm = s.Samples[len(s.Samples)-1].DistanceKm
	return st
}
