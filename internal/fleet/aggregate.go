package fleet

import "math"

// Aggregate reduces views into fleet statistics. Sums are exact integer
// arithmetic so the result does not depend on view order.
func Aggregate(views []WorkerView) Summary {
	summary := Summary{
		ActiveWorkerCount: len(views),
		StateCounts:       make(map[LifecycleState]int, len(LifecycleStates)),
	}
	for _, state := range LifecycleStates {
		summary.StateCounts[state] = 0
	}
	if len(views) == 0 {
		return summary
	}

	var progress int64
	for _, view := range views {
		summary.TotalDownloadRate += view.DownloadRate
		summary.TotalUploadRate += view.UploadRate
		progress += int64(view.ProgressPercent)
		summary.StateCounts[view.Lifecycle]++
	}
	summary.AverageProgressPercent = float64(progress) / float64(len(views))
	return summary
}

// RoundedAverage is the average progress as displayed: half away from zero,
// so 83.5 becomes 84.
func (s Summary) RoundedAverage() int {
	return int(math.Round(s.AverageProgressPercent))
}

// Count returns the number of workers in state.
func (s Summary) Count(state LifecycleState) int {
	return s.StateCounts[state]
}
