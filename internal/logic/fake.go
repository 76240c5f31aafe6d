package logic

// FakeSource is a test double that returns scripted draws.
type FakeSource struct {
	// Values contains the draws to return, in order.
	// Once exhausted, the last value repeats.
	Values []float64

	// Draws counts calls to Float64.
	Draws int
}

// NewFakeSource creates a FakeSource with the given values.
func NewFakeSource(values ...float64) *FakeSource {
	return &FakeSource{Values: values}
}

// Float64 returns the next scripted value, or 0 if none are configured.
func (f *FakeSource) Float64() float64 {
	if len(f.Values) == 0 {
		f.Draws++
		return 0
	}

	i := f.Draws
	if i >= len(f.Values) {
		i = len(f.Values) - 1
	}
	f.Draws++
	return f.Values[i]
}

// Push appends more scripted values.
func (f *FakeSource) Push(values ...float64) {
	f.Values = append(f.Values, values...)
}
