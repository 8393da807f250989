package math

// FundingWindowSeconds is the width of a funding window (8 hours).
const FundingWindowSeconds int64 = 60 * 60 * 8

// FundingWindowStart maps a block timestamp (unix seconds) to the start of
// its funding window: floor(ts / W) * W.
func FundingWindowStart(timestamp int64) int64 {
	start := (timestamp / FundingWindowSeconds) * FundingWindowSeconds
	// Go truncates toward zero; keep floor semantics for pre-epoch input.
	if timestamp < 0 && start != timestamp {
		start -= FundingWindowSeconds
	}
	return start
}
