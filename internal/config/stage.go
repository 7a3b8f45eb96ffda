package config

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// readFile and statFile are thin indirections over os so tenant.go's
// unit tests can stub filesystem access without touching disk.
var readFile = os.ReadFile

func statFile(path string) (time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// StageConfigFile atomically materializes data at
// <dir>/client_config_<pid>_<unixnano>_<rand>.json, matching the naming
// convention and write sequence the upstream staging step uses: write the
// payload to a sibling temp file, fsync it, rename into place, then chmod
// 0600 so only the owning process can read it. An flock is held on a lock
// file named after the temp path while writing; since that name is unique
// per call, concurrent calls never contend for the same lock, and the
// rename is what keeps readers from seeing a half-written file.
func StageConfigFile(dir string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create staging dir %s: %w", dir, err)
	}

	finalName := fmt.Sprintf("client_config_%d_%d_%d.json", os.Getpid(), time.Now().UnixNano(), rand.Intn(1_000_000))
	finalPath := filepath.Join(dir, finalName)
	tmpPath := filepath.Join(dir, ".tmp_"+finalName)

	lock := flock.New(tmpPath + ".lock")
	if err := lock.Lock(); err != nil {
		return "", fmt.Errorf("lock staging file %s: %w", tmpPath, err)
	}
	defer lock.Unlock()
	defer os.Remove(tmpPath + ".lock")

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("create temp staging file %s: %w", tmpPath, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("write temp staging file %s: %w", tmpPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("sync temp staging file %s: %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("close temp staging file %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("rename staging file into place %s: %w", finalPath, err)
	}
	if err := os.Chmod(finalPath, 0o600); err != nil {
		return "", fmt.Errorf("chmod staging file %s: %w", finalPath, err)
	}

	return finalPath, nil
}
