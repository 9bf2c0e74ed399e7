package creation_test

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"fleetdeck/internal/backend"
	"fleetdeck/internal/creation"
	"fleetdeck/internal/testsupport"
)

type countingRefresher struct{ count int }

func (c *countingRefresher) Refresh() { c.count++ }

func newBackendClient(t *testing.T, fb *testsupport.FakeBackend) *backend.Client {
	t.Helper()
	client, err := backend.NewClient(fb.URL())
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	return client
}

func TestWithDefaults(t *testing.T) {
	req := creation.Request{DescriptorPath: " ubuntu.torrent ", FolderPath: "/data"}.WithDefaults()

	if req.NetworkName != "net" || req.ImageName != "client_img" || req.DiscoveryMode != "tracker" {
		t.Fatalf("unexpected defaults %+v", req)
	}
	if !regexp.MustCompile(`^worker-[0-9a-f]{8}$`).MatchString(req.ContainerName) {
		t.Fatalf("unexpected generated name %q", req.ContainerName)
	}
	if req.OverlayPort != "" {
		t.Fatalf("tracker mode should not default an overlay port, got %q", req.OverlayPort)
	}

	overlay := creation.Request{DiscoveryMode: "Overlay"}.WithDefaults()
	if overlay.DiscoveryMode != "overlay" || overlay.OverlayPort != "6001" {
		t.Fatalf("unexpected overlay defaults %+v", overlay)
	}
}

func TestValidate(t *testing.T) {
	base := creation.Request{DescriptorPath: "a.torrent", FolderPath: "/data"}
	cases := []struct {
		name   string
		mutate func(*creation.Request)
		ok     bool
	}{
		{"defaults", func(*creation.Request) {}, true},
		{"missing descriptor", func(r *creation.Request) { r.DescriptorPath = "" }, false},
		{"wrong extension", func(r *creation.Request) { r.DescriptorPath = "a.zip" }, false},
		{"upper extension", func(r *creation.Request) { r.DescriptorPath = "A.TORRENT" }, true},
		{"missing folder", func(r *creation.Request) { r.FolderPath = "" }, false},
		{"bad mode", func(r *creation.Request) { r.DiscoveryMode = "dht" }, false},
		{"overlay port", func(r *creation.Request) { r.DiscoveryMode = "overlay"; r.OverlayPort = "7000" }, true},
		{"overlay bad port", func(r *creation.Request) { r.DiscoveryMode = "overlay"; r.OverlayPort = "70000" }, false},
		{"overlay bootstrap", func(r *creation.Request) {
			r.DiscoveryMode = "overlay"
			r.Bootstrap = "peer-1:6001, peer-2:6001"
		}, true},
		{"overlay bad bootstrap", func(r *creation.Request) { r.DiscoveryMode = "overlay"; r.Bootstrap = "peer-1" }, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := base
			tc.mutate(&req)
			err := req.WithDefaults().Validate()
			if tc.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.ok && !errors.Is(err, creation.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSubmitUploadsCreatesAndRefreshes(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	descriptor := testsupport.WriteDescriptor(t, t.TempDir(), "ubuntu", "http://tracker:8080/announce")
	refresher := &countingRefresher{}

	result, err := creation.Request{
		DescriptorPath: descriptor,
		ContainerName:  "seed-box",
		FolderPath:     "/srv/downloads",
		DiscoveryMode:  "overlay",
		Bootstrap:      "peer-1:6001 peer-2:6001",
	}.Submit(context.Background(), newBackendClient(t, fb), refresher)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	if result.ContainerID == "" || result.ContainerName != "seed-box" || result.Descriptor != "ubuntu.torrent" {
		t.Fatalf("unexpected result %+v", result)
	}
	if refresher.count != 1 {
		t.Fatalf("expected one refresh, got %d", refresher.count)
	}

	uploads := fb.Uploads()
	if len(uploads) != 1 || uploads[0].Filename != "ubuntu.torrent" || !strings.HasPrefix(string(uploads[0].Content), "d8:announce") {
		t.Fatalf("unexpected uploads %+v", uploads)
	}
	creates := fb.Creates()
	if len(creates) != 1 {
		t.Fatalf("expected one create, got %d", len(creates))
	}
	got := creates[0]
	if got.TorrentFile != "ubuntu.torrent" || got.NetworkName != "net" || got.ImageName != "client_img" {
		t.Fatalf("unexpected create request %+v", got)
	}
	if got.Port != "6001" || got.Bootstrap != "peer-1:6001,peer-2:6001" {
		t.Fatalf("unexpected overlay parameters %+v", got)
	}
}

func TestSubmitTrackerModeOmitsOverlayFields(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	descriptor := testsupport.WriteDescriptor(t, t.TempDir(), "debian.torrent", "http://tracker/announce")

	_, err := creation.Request{
		DescriptorPath: descriptor,
		FolderPath:     "/data",
		OverlayPort:    "7000",
		Bootstrap:      "peer:1",
	}.Submit(context.Background(), newBackendClient(t, fb), nil)
	if err != nil {
		t.Fatalf("Submit error: %v", err)
	}
	got := fb.Creates()[0]
	if got.DiscoveryMode != "tracker" || got.Port != "" || got.Bootstrap != "" {
		t.Fatalf("tracker request leaked overlay fields: %+v", got)
	}
}

func TestSubmitInvalidSendsNothing(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	refresher := &countingRefresher{}

	_, err := creation.Request{DescriptorPath: filepath.Join(t.TempDir(), "notes.txt"), FolderPath: "/data"}.
		Submit(context.Background(), newBackendClient(t, fb), refresher)
	if !errors.Is(err, creation.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if len(fb.Uploads()) != 0 || len(fb.Creates()) != 0 || refresher.count != 0 {
		t.Fatal("invalid request must not contact the backend")
	}
}

func TestSubmitMissingDescriptorFile(t *testing.T) {
	fb := testsupport.NewFakeBackend(t)
	_, err := creation.Request{DescriptorPath: filepath.Join(t.TempDir(), "missing.torrent"), FolderPath: "/data"}.
		Submit(context.Background(), newBackendClient(t, fb), nil)
	if err == nil || !strings.Contains(err.Error(), "open descriptor") {
		t.Fatalf("expected open error, got %v", err)
	}
	if len(fb.Uploads()) != 0 {
		t.Fatal("nothing should be uploaded")
	}
}
