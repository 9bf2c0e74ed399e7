package fleet

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ETA is an estimated time to completion that may be unknown.
type ETA struct {
	Known    bool
	Duration time.Duration
}

// UnknownETA is the zero ETA.
var UnknownETA = ETA{}

// KnownETA wraps a non-negative duration.
func KnownETA(d time.Duration) ETA {
	if d < 0 {
		return UnknownETA
	}
	return ETA{Known: true, Duration: d}
}

// String renders the ETA in the backend's compact style ("1h 5m", "3m 20s",
// "45s") or "unknown".
func (e ETA) String() string {
	if !e.Known {
		return "unknown"
	}
	secs := int64(e.Duration.Round(time.Second) / time.Second)
	hours := secs / 3600
	minutes := (secs % 3600) / 60
	seconds := secs % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// MarshalJSON encodes a known ETA as whole seconds and an unknown one as null.
func (e ETA) MarshalJSON() ([]byte, error) {
	if !e.Known {
		return []byte("null"), nil
	}
	return json.Marshal(int64(e.Duration / time.Second))
}

// UnmarshalJSON accepts the encoding produced by MarshalJSON.
func (e *ETA) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*e = UnknownETA
		return nil
	}
	var secs int64
	if err := json.Unmarshal(data, &secs); err != nil {
		return fmt.Errorf("decode eta: %w", err)
	}
	*e = KnownETA(time.Duration(secs) * time.Second)
	return nil
}

// ParseETA reads the backend's eta text. Anything it cannot read, including
// the infinity sign used for stalled downloads, is unknown.
func ParseETA(raw string) ETA {
	text := strings.ToLower(strings.TrimSpace(raw))
	if text == "" || text == "∞" || text == "inf" || text == "unknown" {
		return UnknownETA
	}
	if secs, err := strconv.ParseFloat(text, 64); err == nil {
		if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			return UnknownETA
		}
		return KnownETA(time.Duration(secs * float64(time.Second)))
	}

	var days time.Duration
	if idx := strings.Index(text, "d"); idx > 0 {
		n, err := strconv.Atoi(strings.TrimSpace(text[:idx]))
		if err != nil || n < 0 {
			return UnknownETA
		}
		days = time.Duration(n) * 24 * time.Hour
		text = strings.TrimSpace(text[idx+1:])
		if text == "" {
			return KnownETA(days)
		}
	}

	d, err := time.ParseDuration(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return UnknownETA
	}
	return KnownETA(days + d)
}
