// Package syncconfig persists the local, per-install state the sync
// engine needs outside the event store itself: this replica's device
// identity, and the app config pointing at the shared sync file
// (spec.md §9's DeviceID concept; SPEC_FULL.md's config layer).
// Adapted from the teacher's ConfigDir/LoadConfig/SaveConfig JSON-file
// pattern; the auth/server-URL/snapshot-threshold surface is dropped
// since this module talks to a shared file, not a sync server.
package syncconfig

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// AutoSyncConfig holds auto-sync settings.
type AutoSyncConfig struct {
	Enabled  *bool  `json:"enabled,omitempty"` // nil = default true
	Interval string `json:"interval,omitempty"`
}

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	FilePath   string         `json:"file_path"`
	Compressed bool           `json:"compressed"`
	Auto       AutoSyncConfig `json:"auto"`
}

// Config is the global app config stored at
// ~/.config/expensesync/config.json.
type Config struct {
	Sync SyncConfig `json:"sync"`
}

// DeviceIdentity stores this replica's device ID at
// ~/.config/expensesync/device.json.
type DeviceIdentity struct {
	DeviceID string `json:"device_id"`
}

const defaultSyncFileName = "sync.json"
const defaultAutoSyncInterval = 5 * time.Minute

// ConfigDir returns ~/.config/expensesync, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "expensesync")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// LoadConfig reads the global config from
// ~/.config/expensesync/config.json. A missing file is not an error;
// it returns the zero Config.
func LoadConfig() (*Config, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveConfig writes the global config to
// ~/.config/expensesync/config.json, atomically (see writeAtomic).
func SaveConfig(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "config.json"), data)
}

// LoadDeviceIdentity reads this replica's device ID, generating and
// persisting a new one on first run.
func LoadDeviceIdentity() (*DeviceIdentity, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "device.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		id, genErr := GenerateDeviceID()
		if genErr != nil {
			return nil, genErr
		}
		identity := &DeviceIdentity{DeviceID: id}
		if saveErr := saveDeviceIdentity(path, identity); saveErr != nil {
			return nil, saveErr
		}
		return identity, nil
	}
	var identity DeviceIdentity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func saveDeviceIdentity(path string, identity *DeviceIdentity) error {
	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, data)
}

// writeAtomic writes data to path via a temp-file-then-rename, so a
// crash or concurrent reader never observes a truncated config or
// device-identity file. Grounded directly on the teacher's
// internal/config.Save (os.CreateTemp in the target directory,
// write, close, os.Rename); internal/syncfile.writeAtomic follows the
// same pattern for the shared sync file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// GenerateDeviceID creates a new random device ID (16 bytes hex),
// carried on events purely for observability (spec.md §9).
func GenerateDeviceID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetSyncFilePath returns the shared sync file's path.
// Priority: EXPENSESYNC_FILE env > config.json > ~/.config/expensesync/sync.json.
func GetSyncFilePath() (string, error) {
	if v := os.Getenv("EXPENSESYNC_FILE"); v != "" {
		return v, nil
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.FilePath != "" {
		return cfg.Sync.FilePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, defaultSyncFileName), nil
}

// GetSyncCompressed reports whether the sync file should be gzip-framed.
// Priority: EXPENSESYNC_COMPRESSED env > config.json.
func GetSyncCompressed() bool {
	if v := parseBoolEnv("EXPENSESYNC_COMPRESSED"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil {
		return cfg.Sync.Compressed
	}
	return false
}

// GetAutoSyncEnabled returns whether auto-sync is enabled.
// Priority: EXPENSESYNC_AUTO env > config.json sync.auto.enabled > true.
func GetAutoSyncEnabled() bool {
	if v := parseBoolEnv("EXPENSESYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Auto.Enabled != nil {
		return *cfg.Sync.Auto.Enabled
	}
	return true
}

// GetAutoSyncInterval returns the periodic sync interval.
// Priority: EXPENSESYNC_AUTO_INTERVAL env > config.json sync.auto.interval > 5m.
func GetAutoSyncInterval() time.Duration {
	if v := os.Getenv("EXPENSESYNC_AUTO_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := LoadConfig()
	if err == nil && cfg.Sync.Auto.Interval != "" {
		if d, err := time.ParseDuration(cfg.Sync.Auto.Interval); err == nil {
			return d
		}
	}
	return defaultAutoSyncInterval
}

// parseBoolEnv returns nil if env not set, a pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
