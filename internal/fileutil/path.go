// Package fileutil provides the path expansion shared by read_files and
// write_files.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands a leading ~ to the user's home directory, expands
// environment variables, and cleans the result.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return path, nil
	}

	path = os.ExpandEnv(path)

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		if strings.HasPrefix(path, "~/") {
			return filepath.Join(home, path[2:]), nil
		}
		// ~user syntax is not supported; it is left unexpanded.
	}

	return filepath.Clean(path), nil
}

// ExpandPaths expands each entry in paths via ExpandPath.
func ExpandPaths(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		exp, err := ExpandPath(p)
		if err != nil {
			return nil, err
		}
		out[i] = exp
	}
	return out, nil
}
