package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteDescriptor writes a minimal bencoded job descriptor named name under
// dir and returns its path. The payload is a single-file info dictionary
// announcing to tracker.
func WriteDescriptor(t testing.TB, dir, name, tracker string) string {
	t.Helper()

	if !strings.HasSuffix(name, ".torrent") {
		name += ".torrent"
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	fileName := strings.TrimSuffix(name, ".torrent")
	payload := fmt.Sprintf("d8:announce%d:%s4:infod6:lengthi1024e4:name%d:%s12:piece lengthi256e6:pieces0:ee",
		len(tracker), tracker, len(fileName), fileName)
	if err := os.WriteFile(path, []byte(payload), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
