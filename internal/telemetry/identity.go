package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// idFileName under the project dot directory.
const idFileName = "telemetry_id"

// AnonymousID returns the stable random install ID, creating it on first
// use. It carries no information about the user or the project.
func AnonymousID(dotDir string) (string, error) {
	path := filepath.Join(dotDir, idFileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read telemetry id: %w", err)
	}

	id := uuid.New().String()
	if err := os.MkdirAll(dotDir, 0o755); err != nil {
		return "", fmt.Errorf("create dot directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write telemetry id: %w", err)
	}
	return id, nil
}
