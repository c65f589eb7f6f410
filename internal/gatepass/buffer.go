package gatepass

import "time"

// DefaultMinBuffer is the minimum absence between a verified exit and a
// gate-in request.
const DefaultMinBuffer = 5 * time.Minute

// WaitMinutes returns how many whole minutes remain until elapsed reaches
// minBuffer, rounded up. Zero means the buffer has passed.
func WaitMinutes(minBuffer, elapsed time.Duration) int {
	remaining := minBuffer - elapsed
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}
