package index

// Accumulator carries the running index level and cumulative multiplier.
type Accumulator struct {
	Level      float64 // index level after the last processed day
	Multiplier float64 // product of (1 + daily basis) over processed days
}

// NewAccumulator starts an accumulator at the given base level.
func NewAccumulator(baseLevel float64) Accumulator {
	return Accumulator{Level: baseLevel, Multiplier: 1.0}
}

// Advance applies one day's average return.
// The daily basis is recomputed from the old and new levels rather than
// reusing avgReturn, and is 0 when the previous level is 0.
func (a Accumulator) Advance(avgReturn float64) (Accumulator, float64) {
	prev := a.Level
	next := prev * (1 + avgReturn)

	basis := 0.0
	if prev != 0 {
		basis = (next - prev) / prev
	}

	return Accumulator{
		Level:      next,
		Multiplier: a.Multiplier * (1 + basis),
	}, basis
}
