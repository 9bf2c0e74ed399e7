package backend

import "fmt"

// Container is one row of the backend's container listing.
type Container struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Running reports whether the container process is alive.
func (c Container) Running() bool {
	return c.State == "running"
}

// Status is the raw per-worker status payload. Every field is optional so the
// normalizer can tell an absent value from a reported zero.
type Status struct {
	Progress       *float64 `json:"progress,omitempty"`
	DownloadSpeed  *float64 `json:"download_speed,omitempty"`
	UploadSpeed    *float64 `json:"upload_speed,omitempty"`
	Downloaded     *float64 `json:"downloaded,omitempty"`
	TotalSize      *float64 `json:"total_size,omitempty"`
	ConnectedPeers *float64 `json:"connected_peers,omitempty"`
	TotalPeers     *float64 `json:"total_peers,omitempty"`
	ETA            *string  `json:"eta,omitempty"`
	State          *string  `json:"state,omitempty"`
	Paused         *bool    `json:"paused,omitempty"`
	TorrentName    *string  `json:"torrent_name,omitempty"`
	Error          *string  `json:"error,omitempty"`
}

// StatusResult is the outcome of one status fetch: exactly one of Payload or
// Err is set.
type StatusResult struct {
	Payload *Status
	Err     error
}

// Ok wraps a successfully decoded payload.
func Ok(payload *Status) StatusResult {
	if payload == nil {
		return StatusResult{Err: fmt.Errorf("%w: empty status payload", ErrMalformed)}
	}
	return StatusResult{Payload: payload}
}

// Failed wraps a fetch failure.
func Failed(err error) StatusResult {
	if err == nil {
		err = ErrUnavailable
	}
	return StatusResult{Err: err}
}

// OK reports whether the fetch produced a payload.
func (r StatusResult) OK() bool {
	return r.Err == nil && r.Payload != nil
}

// CreateRequest is the JSON descriptor accepted by POST /api/containers.
type CreateRequest struct {
	ContainerName string `json:"containerName"`
	NetworkName   string `json:"networkName"`
	FolderPath    string `json:"folderPath"`
	ImageName     string `json:"imageName"`
	TorrentFile   string `json:"torrentFile"`
	DiscoveryMode string `json:"discoveryMode"`
	Port          string `json:"port,omitempty"`
	Bootstrap     string `json:"bootstrap,omitempty"`
}

// CreateResponse is the backend acknowledgement for a created container.
type CreateResponse struct {
	Success     bool   `json:"success"`
	ContainerID string `json:"containerId"`
	Name        string `json:"name"`
	Message     string `json:"message"`
}

// UploadResponse is the backend acknowledgement for an uploaded descriptor.
type UploadResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

// Health is the backend liveness payload.
type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type logsResponse struct {
	Logs string `json:"logs"`
}

type errorResponse struct {
	Error string `json:"error"`
}
