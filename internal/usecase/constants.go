package usecase

const (
	// DefaultRoundingPlaces is how many decimal places monetary deltas are
	// rounded to before being applied. Rounding on every call keeps repeated
	// fractional operations from drifting.
	DefaultRoundingPlaces = 2

	// MaxTransferAmount is the maximum amount allowed for a single transfer
	// (as a decimal string).
	MaxTransferAmount = "1000000000" // 1 billion
)
