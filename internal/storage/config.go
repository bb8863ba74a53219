package storage

import (
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Backend settings travel as flat string maps (store.config / net.config in
// the stamp config file). The helpers here parse those maps with typed
// defaults; anything that fails to parse surfaces as a *ConfigError naming
// the offending field.

// GetString returns config[key], or defaultValue when the key is absent or
// empty.
func GetString(config map[string]string, key, defaultValue string) string {
	if v := config[key]; v != "" {
		return v
	}
	return defaultValue
}

// GetBool parses config[key] as a boolean. "true"/"false", "1"/"0" and
// "yes"/"no" are accepted, case-insensitive.
func GetBool(config map[string]string, key string, defaultValue bool) (bool, error) {
	v := config[key]
	if v == "" {
		return defaultValue, nil
	}
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	}
	return false, &ConfigError{
		Field:   key,
		Value:   v,
		Message: "must be a boolean (true/false, 1/0, yes/no)",
	}
}

// GetInt parses config[key] as an int.
func GetInt(config map[string]string, key string, defaultValue int) (int, error) {
	v := config[key]
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, &ConfigError{Field: key, Value: v, Message: "must be an integer", Cause: err}
	}
	return i, nil
}

// GetInt64 parses config[key] as an int64, for byte-size settings like the
// badger backend's value_log_file_size.
func GetInt64(config map[string]string, key string, defaultValue int64) (int64, error) {
	v := config[key]
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, &ConfigError{Field: key, Value: v, Message: "must be an integer", Cause: err}
	}
	return i, nil
}

// GetDuration parses config[key] as a duration. Go duration strings ("5s",
// "1m30s") and bare integer seconds are both accepted; the redis backend's
// timeout settings use the latter.
func GetDuration(config map[string]string, key string, defaultValue time.Duration) (time.Duration, error) {
	v := config[key]
	if v == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, nil
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, &ConfigError{
		Field:   key,
		Value:   v,
		Message: "must be a duration (e.g., '5s', '1m30s') or integer seconds",
	}
}

// ExpandPath expands a leading ~ so config files can say "path: ~/.stamp/db".
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return filepath.Clean(path)
}

// MergeConfig overlays src onto dst in a fresh map. Backends call this with
// their registered defaults as dst and the user's config as src.
func MergeConfig(dst, src map[string]string) map[string]string {
	merged := make(map[string]string, len(dst)+len(src))
	maps.Copy(merged, dst)
	maps.Copy(merged, src)
	return merged
}
