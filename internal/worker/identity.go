package worker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// minIdentityLength is the canonical length of a UUID string; any
// shorter content in the identity file is treated as absent.
const minIdentityLength = 36

// LoadOrCreateIdentity loads the worker's persisted peer identifier
// from "<storeDir>/<hostname>.id", generating and persisting a fresh
// UUID if the file is missing or its contents are too short to be a
// valid UUID.
func LoadOrCreateIdentity(storeDir, hostname string) (string, error) {
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return "", fmt.Errorf("create store dir %s: %w", storeDir, err)
	}

	path := filepath.Join(storeDir, hostname+".id")
	data, err := os.ReadFile(path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if len(id) >= minIdentityLength {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read identity file %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("write identity file %s: %w", path, err)
	}
	return id, nil
}
