package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// ReplaceTilde expands a leading "~" to the home directory.
func ReplaceTilde(path string) string {
	home := os.Getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if path == "~" {
		return home
	} else if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Resolve expands "~" and makes relative paths relative to base.
func Resolve(path, base string) string {
	path = ReplaceTilde(path)
	if path == "" || filepath.IsAbs(path) || base == "" {
		return path
	}
	return filepath.Join(base, path)
}
