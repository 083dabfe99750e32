package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/judepayne/validlib/pkg/entity"
)

// MaxFileBytes bounds the size of an entity file, local or remote.
const MaxFileBytes = 50 << 20

// LoadEntities loads entities from a file URI. file:// reads the local
// filesystem; http:// and https:// fetch remotely with a bounded read.
// A file holding a single entity object is treated as a one-entity list.
func LoadEntities(fileURI string) ([]entity.Data, error) {
	u, err := url.Parse(fileURI)
	if err != nil {
		return nil, fmt.Errorf("batch: parse file uri %s: %w", fileURI, err)
	}

	var raw []byte
	switch u.Scheme {
	case "file":
		raw, err = readLocal(u)
	case "http", "https":
		raw, err = readRemote(fileURI)
	default:
		return nil, fmt.Errorf("batch: unsupported uri scheme %q", u.Scheme)
	}
	if err != nil {
		return nil, fmt.Errorf("batch: load entities from %s: %w", fileURI, err)
	}

	return decodeEntities(raw)
}

func readLocal(u *url.URL) ([]byte, error) {
	// Resolve to a canonical path so encoded traversal segments cannot
	// escape the intended location.
	path, err := filepath.Abs(u.Path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", path)
	}
	if info.Size() > MaxFileBytes {
		return nil, fmt.Errorf("file exceeds %d MB limit", MaxFileBytes>>20)
	}
	return os.ReadFile(path)
}

func readRemote(fileURI string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(fileURI)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > MaxFileBytes {
		return nil, fmt.Errorf("remote file exceeds %d MB limit", MaxFileBytes>>20)
	}
	return raw, nil
}

func decodeEntities(raw []byte) ([]entity.Data, error) {
	var list []entity.Data
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single entity.Data
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("batch: decode entities: %w", err)
	}
	return []entity.Data{single}, nil
}
