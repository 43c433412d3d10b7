package helper

import (
	"os"
	"path/filepath"
)

// EnvConfigDir names a directory searched before the defaults
const EnvConfigDir = "ROWGATE_CONFIG_DIR"

// DefaultConfigDirs are searched in order for a relative config file name
var DefaultConfigDirs = []string{".", "configs", "/etc/rowgate"}

// ResolveConfigPath locates a config file. Absolute names are returned as
// given. A relative name resolves to the first existing file under
// $ROWGATE_CONFIG_DIR or DefaultConfigDirs; when none exists the path under
// the last default directory is returned, so a read error names it.
func ResolveConfigPath(filename string) string {
	if filename == "" || filepath.IsAbs(filename) {
		return filename
	}

	dirs := DefaultConfigDirs
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		dirs = append([]string{dir}, dirs...)
	}
	for _, dir := range dirs {
		candidate := filepath.Join(dir, filename)
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		if abs, err := filepath.Abs(candidate); err == nil {
			return abs
		}
		return candidate
	}
	return filepath.Join(DefaultConfigDirs[len(DefaultConfigDirs)-1], filename)
}
