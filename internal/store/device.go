package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DeviceID returns the stable per-installation device identifier.
//
// The first call generates a random UUID and persists it at path; later
// calls (and later runs) read the same value back. A write failure still
// returns a usable id so the session can proceed, it just won't be stable
// across runs.
func DeviceID(path string) string {
	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err == nil {
		os.WriteFile(path, []byte(id), 0644)
	}
	return id
}
