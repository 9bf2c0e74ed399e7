package fleet

import (
	"math"
	"strings"

	"fleetdeck/internal/backend"
)

const shortIDLength = 12

// Normalize builds the view for one worker from its listing row and the
// outcome of its status fetch. It never fails: a failed fetch yields a
// degraded view with zeroed metrics and the failure text in Detail.
func Normalize(c backend.Container, r backend.StatusResult) WorkerView {
	view := WorkerView{
		ID:          c.ID,
		DisplayName: displayName(c),
		RunState:    strings.TrimSpace(c.State),
		ETA:         UnknownETA,
	}

	if !r.OK() {
		view.Degraded = true
		view.Lifecycle = fallbackState(c)
		if r.Err != nil {
			view.Detail = r.Err.Error()
		}
		return view
	}

	p := r.Payload
	view.TorrentName = strings.TrimSpace(deref(p.TorrentName))
	view.ProgressPercent = clampPercent(floatValue(p.Progress))
	view.DownloadRate = wholeValue(p.DownloadSpeed)
	view.UploadRate = wholeValue(p.UploadSpeed)
	view.BytesTotal = wholeValue(p.TotalSize)
	view.BytesDownloaded = wholeValue(p.Downloaded)
	if view.BytesTotal > 0 && view.BytesDownloaded > view.BytesTotal {
		view.BytesDownloaded = view.BytesTotal
	}
	view.ConnectedPeers = int(wholeValue(p.ConnectedPeers))
	view.TotalPeers = int(wholeValue(p.TotalPeers))
	if p.ETA != nil {
		view.ETA = ParseETA(*p.ETA)
	}
	view.Detail = strings.TrimSpace(deref(p.Error))

	token := strings.ToLower(strings.TrimSpace(deref(p.State)))
	view.UserPaused = (p.Paused != nil && *p.Paused) || token == string(StatePaused)
	view.Lifecycle = lifecycleFor(c, token, view.UserPaused)
	return view
}

// NormalizeAll pairs listing rows with their results by index.
func NormalizeAll(containers []backend.Container, results []backend.StatusResult) []WorkerView {
	views := make([]WorkerView, len(containers))
	for i, c := range containers {
		var r backend.StatusResult
		if i < len(results) {
			r = results[i]
		} else {
			r = backend.Failed(nil)
		}
		views[i] = Normalize(c, r)
	}
	return views
}

func lifecycleFor(c backend.Container, token string, paused bool) LifecycleState {
	if paused {
		return StatePaused
	}
	switch token {
	case "downloading":
		return StateDownloading
	case "seeding", "completed":
		return StateSeeding
	case "starting":
		return StateStarting
	}
	return fallbackState(c)
}

// fallbackState is used whenever the backend gives no usable state token.
func fallbackState(c backend.Container) LifecycleState {
	if c.Running() {
		return StateStarting
	}
	return StateUnreachable
}

func displayName(c backend.Container) string {
	name := strings.TrimPrefix(strings.TrimSpace(c.Name), "/")
	if name != "" {
		return name
	}
	if len(c.ID) > shortIDLength {
		return c.ID[:shortIDLength]
	}
	return c.ID
}

func clampPercent(v float64) int {
	rounded := math.Round(v)
	switch {
	case rounded <= 0:
		return 0
	case rounded >= 100:
		return 100
	default:
		return int(rounded)
	}
}

func floatValue(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return *p
}

func wholeValue(p *float64) int64 {
	v := floatValue(p)
	if v <= 0 {
		return 0
	}
	if v >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(math.Round(v))
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
