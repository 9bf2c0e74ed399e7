package fleet

import (
	"time"
)

// LifecycleState is the unified state shown for a worker.
type LifecycleState string

const (
	StateStarting    LifecycleState = "starting"
	StateDownloading LifecycleState = "downloading"
	StateSeeding     LifecycleState = "seeding"
	StatePaused      LifecycleState = "paused"
	StateUnreachable LifecycleState = "unreachable"
)

// LifecycleStates lists every state in display order.
var LifecycleStates = []LifecycleState{
	StateDownloading,
	StateSeeding,
	StatePaused,
	StateStarting,
	StateUnreachable,
}

func (s LifecycleState) String() string {
	return string(s)
}

// Valid reports whether s is one of the known lifecycle states.
func (s LifecycleState) Valid() bool {
	for _, known := range LifecycleStates {
		if s == known {
			return true
		}
	}
	return false
}

// WorkerView is the normalized per-worker record for one cycle.
type WorkerView struct {
	ID              string         `json:"id"`
	DisplayName     string         `json:"display_name"`
	TorrentName     string         `json:"torrent_name,omitempty"`
	RunState        string         `json:"run_state"`
	Lifecycle       LifecycleState `json:"lifecycle"`
	ProgressPercent int            `json:"progress_percent"`
	DownloadRate    int64          `json:"download_rate"`
	UploadRate      int64          `json:"upload_rate"`
	BytesDownloaded int64          `json:"bytes_downloaded"`
	BytesTotal      int64          `json:"bytes_total"`
	ConnectedPeers  int            `json:"connected_peers"`
	TotalPeers      int            `json:"total_peers"`
	ETA             ETA            `json:"eta"`
	UserPaused      bool           `json:"user_paused"`
	Degraded        bool           `json:"degraded"`
	Detail          string         `json:"detail,omitempty"`
}

// Reachable reports whether the view was built from a successful status fetch.
func (v WorkerView) Reachable() bool {
	return !v.Degraded
}

// Summary holds fleet-wide statistics derived from a set of views.
type Summary struct {
	ActiveWorkerCount      int                    `json:"active_worker_count"`
	TotalDownloadRate      int64                  `json:"total_download_rate"`
	TotalUploadRate        int64                  `json:"total_upload_rate"`
	AverageProgressPercent float64                `json:"average_progress_percent"`
	StateCounts            map[LifecycleState]int `json:"state_counts"`
}

// Snapshot is one published reconciliation result.
type Snapshot struct {
	Sequence     uint64       `json:"sequence"`
	ObservedAt   time.Time    `json:"observed_at"`
	Workers      []WorkerView `json:"workers"`
	Summary      `json:"summary"`
	ListingError string `json:"listing_error,omitempty"`
}

// NewSnapshot builds a snapshot whose summary is derived from views.
func NewSnapshot(views []WorkerView, observedAt time.Time) Snapshot {
	if views == nil {
		views = []WorkerView{}
	}
	return Snapshot{
		ObservedAt: observedAt,
		Workers:    views,
		Summary:    Aggregate(views),
	}
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Workers = append([]WorkerView(nil), s.Workers...)
	if out.Workers == nil {
		out.Workers = []WorkerView{}
	}
	out.StateCounts = make(map[LifecycleState]int, len(s.StateCounts))
	for state, n := range s.StateCounts {
		out.StateCounts[state] = n
	}
	return out
}

// Worker looks a view up by exact id, then by unique display name, then by
// unique id prefix. An exact id always wins over another worker's name.
func (s Snapshot) Worker(id string) (WorkerView, bool) {
	if id == "" {
		return WorkerView{}, false
	}
	for _, view := range s.Workers {
		if view.ID == id {
			return view, true
		}
	}
	if view, ok := s.uniqueWorker(func(v WorkerView) bool { return v.DisplayName == id }); ok {
		return view, true
	}
	return s.uniqueWorker(func(v WorkerView) bool {
		return len(id) < len(v.ID) && v.ID[:len(id)] == id
	})
}

func (s Snapshot) uniqueWorker(match func(WorkerView) bool) (WorkerView, bool) {
	var found WorkerView
	matches := 0
	for _, view := range s.Workers {
		if match(view) {
			found = view
			matches++
		}
	}
	return found, matches == 1
}
