package creation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"fleetdeck/internal/backend"
)

const (
	DefaultNetwork     = "net"
	DefaultImage       = "client_img"
	DefaultOverlayPort = "6001"

	ModeTracker = "tracker"
	ModeOverlay = "overlay"

	descriptorExt = ".torrent"
)

// ErrInvalid marks a request rejected before anything was sent.
var ErrInvalid = errors.New("invalid creation request")

// Uploader is the write side of the backend used to create workers.
// *backend.Client satisfies it.
type Uploader interface {
	UploadDescriptor(ctx context.Context, filename string, content io.Reader) (backend.UploadResponse, error)
	CreateContainer(ctx context.Context, req backend.CreateRequest) (backend.CreateResponse, error)
}

// Refresher requests an out-of-band reconciliation.
type Refresher interface {
	Refresh()
}

// Request describes a worker to create.
type Request struct {
	DescriptorPath string
	ContainerName  string
	NetworkName    string
	FolderPath     string
	ImageName      string
	DiscoveryMode  string
	OverlayPort    string
	Bootstrap      string
}

// Result reports what the backend accepted.
type Result struct {
	ContainerID   string `json:"container_id"`
	ContainerName string `json:"container_name"`
	Descriptor    string `json:"descriptor"`
	Message       string `json:"message,omitempty"`
}

// WithDefaults fills unset fields. An empty container name becomes
// worker-<8 hex characters>.
func (r Request) WithDefaults() Request {
	r.DescriptorPath = strings.TrimSpace(r.DescriptorPath)
	r.ContainerName = strings.TrimSpace(r.ContainerName)
	r.NetworkName = strings.TrimSpace(r.NetworkName)
	r.FolderPath = strings.TrimSpace(r.FolderPath)
	r.ImageName = strings.TrimSpace(r.ImageName)
	r.DiscoveryMode = strings.ToLower(strings.TrimSpace(r.DiscoveryMode))
	r.OverlayPort = strings.TrimSpace(r.OverlayPort)
	r.Bootstrap = strings.TrimSpace(r.Bootstrap)

	if r.ContainerName == "" {
		r.ContainerName = "worker-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	}
	if r.NetworkName == "" {
		r.NetworkName = DefaultNetwork
	}
	if r.ImageName == "" {
		r.ImageName = DefaultImage
	}
	if r.DiscoveryMode == "" {
		r.DiscoveryMode = ModeTracker
	}
	if r.DiscoveryMode == ModeOverlay && r.OverlayPort == "" {
		r.OverlayPort = DefaultOverlayPort
	}
	return r
}

// Validate checks a defaulted request.
func (r Request) Validate() error {
	var problems []string
	if r.DescriptorPath == "" {
		problems = append(problems, "descriptor path is required")
	} else if !strings.EqualFold(filepath.Ext(r.DescriptorPath), descriptorExt) {
		problems = append(problems, fmt.Sprintf("descriptor %q must be a %s file", r.DescriptorPath, descriptorExt))
	}
	if r.FolderPath == "" {
		problems = append(problems, "folder path is required")
	}
	if r.ContainerName == "" {
		problems = append(problems, "container name is required")
	}
	switch r.DiscoveryMode {
	case ModeTracker:
	case ModeOverlay:
		if port, err := strconv.Atoi(r.OverlayPort); err != nil || port < 1 || port > 65535 {
			problems = append(problems, fmt.Sprintf("overlay port %q must be between 1 and 65535", r.OverlayPort))
		}
		for _, peer := range splitBootstrap(r.Bootstrap) {
			if _, _, err := net.SplitHostPort(peer); err != nil {
				problems = append(problems, fmt.Sprintf("bootstrap peer %q must be host:port", peer))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("discovery mode %q must be %s or %s", r.DiscoveryMode, ModeTracker, ModeOverlay))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Submit validates the request, uploads the descriptor, registers the
// container, and requests a refresh. Nothing is sent when validation fails.
func (r Request) Submit(ctx context.Context, uploader Uploader, refresher Refresher) (Result, error) {
	r = r.WithDefaults()
	if err := r.Validate(); err != nil {
		return Result{}, err
	}
	if uploader == nil {
		return Result{}, errors.New("creation: backend is required")
	}

	file, err := os.Open(r.DescriptorPath)
	if err != nil {
		return Result{}, fmt.Errorf("open descriptor: %w", err)
	}
	defer file.Close()

	uploaded, err := uploader.UploadDescriptor(ctx, r.DescriptorPath, file)
	if err != nil {
		return Result{}, fmt.Errorf("upload descriptor: %w", err)
	}
	descriptor := strings.TrimSpace(uploaded.Filename)
	if descriptor == "" {
		descriptor = filepath.Base(r.DescriptorPath)
	}

	created, err := uploader.CreateContainer(ctx, r.createRequest(descriptor))
	if err != nil {
		return Result{Descriptor: descriptor}, fmt.Errorf("create container: %w", err)
	}
	if refresher != nil {
		refresher.Refresh()
	}

	name := created.Name
	if name == "" {
		name = r.ContainerName
	}
	return Result{
		ContainerID:   created.ContainerID,
		ContainerName: name,
		Descriptor:    descriptor,
		Message:       created.Message,
	}, nil
}

func (r Request) createRequest(descriptor string) backend.CreateRequest {
	req := backend.CreateRequest{
		ContainerName: r.ContainerName,
		NetworkName:   r.NetworkName,
		FolderPath:    r.FolderPath,
		ImageName:     r.ImageName,
		TorrentFile:   descriptor,
		DiscoveryMode: r.DiscoveryMode,
	}
	if r.DiscoveryMode == ModeOverlay {
		req.Port = r.OverlayPort
		req.Bootstrap = strings.Join(splitBootstrap(r.Bootstrap), ",")
	}
	return req
}

func splitBootstrap(raw string) []string {
	var peers []string
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part = strings.TrimSpace(part); part != "" {
			peers = append(peers, part)
		}
	}
	return peers
}
