package domain

// MicrosPerUnit is the number of micros in one currency unit.
const MicrosPerUnit = 1_000_000

// ROAS returns revenue divided by cost, or 0 when cost is not positive.
func ROAS(revenue, cost float64) float64 {
	if cost <= 0 {
		return 0.0
	}
	return revenue / cost
}

// FromMicros converts a micros amount to currency units.
func FromMicros(micros float64) float64 {
	return micros / MicrosPerUnit
}

// PercentChange returns the relative change from prev to now.
// A move from zero is reported as 1 and a move to zero as -1.
func PercentChange(now, prev float64) float64 {
	switch {
	case prev == 0 && now == 0:
		return 0
	case prev == 0:
		return 1
	case now == 0:
		return -1
	default:
		return (now - prev) / prev
	}
}
