package logging

import "strings"

// ProgressSampler suppresses repetitive progress logs for one worker. It
// emits when the lifecycle state changes or the percentage enters a higher
// bucket.
type ProgressSampler struct {
	bucketSize int
	lastState  string
	lastBucket int
}

// NewProgressSampler constructs a sampler with bucketSize-percent buckets
// (default 10).
func NewProgressSampler(bucketSize int) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether an observation is worth a log line. A state
// change restarts bucket tracking, so a paused then resumed worker logs its
// progress again.
func (s *ProgressSampler) ShouldLog(percent int, state string) bool {
	if s == nil {
		return true
	}
	state = strings.TrimSpace(state)
	emit := false
	if state != s.lastState {
		s.lastState = state
		s.lastBucket = -1
		emit = true
	}
	if percent >= 0 {
		if percent > 100 {
			percent = 100
		}
		if bucket := percent / s.bucketSize; bucket > s.lastBucket {
			s.lastBucket = bucket
			emit = true
		}
	}
	return emit
}
