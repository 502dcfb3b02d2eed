package domain

// MetricCeiling is the per-dimension cap for live metric scores.
// Four dimensions at this ceiling make a 0-100 overall score.
const MetricCeiling = 25

// LiveMetrics holds the running per-turn coaching scores shown during a
// session. Each dimension is recomputed from the full conversation on every
// turn and clamped to [0, MetricCeiling].
type LiveMetrics struct {
	Discovery   int      `json:"discovery"`
	Value       int      `json:"value"`
	Objection   int      `json:"objection"`
	CTA         int      `json:"cta"`
	Suggestions []string `json:"suggestions"`
}

// Total returns the sum of the four dimensions.
func (m LiveMetrics) Total() int {
	return m.Discovery + m.Value + m.Objection + m.CTA
}

// Clamp bounds every dimension to [0, MetricCeiling] and returns the result.
func (m LiveMetrics) Clamp() LiveMetrics {
	m.Discovery = clampScore(m.Discovery)
	m.Value = clampScore(m.Value)
	m.Objection = clampScore(m.Objection)
	m.CTA = clampScore(m.CTA)
	return m
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > MetricCeiling {
		return MetricCeiling
	}
	return v
}
