package estimate

import "time"

// ProjectRemaining extrapolates the time left in a batch from the average of
// the jobs completed so far. It returns zero until something has completed.
func ProjectRemaining(completed []time.Duration, remaining int) time.Duration {
	if len(completed) == 0 || remaining <= 0 {
		return 0
	}
	var total time.Duration
	for _, d := range completed {
		total += d
	}
	return total / time.Duration(len(completed)) * time.Duration(remaining)
}
