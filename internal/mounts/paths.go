package mounts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath expands ~ to the user's home directory, makes the path absolute
// and resolves symlinks. A path that does not exist yet is returned cleaned.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("empty path")
	}

	if strings.HasPrefix(p, "~/") || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p[1:], "/"))
	}

	p = filepath.Clean(p)
	if !filepath.IsAbs(p) {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		p = filepath.Join(cwd, p)
	}

	resolved, err := filepath.EvalSymlinks(p)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	return resolved, nil
}

// IsPathInDirectory checks if path is equal to or inside directory
func IsPathInDirectory(path, directory string) bool {
	if path == directory {
		return true
	}

	rel, err := filepath.Rel(directory, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// PathExists checks if a path exists and matches the expected type.
// If expectDir is true, checks for directory; if false, checks for file.
func PathExists(path string, expectDir bool) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir() == expectDir
}

// DirExists checks if a path exists and is a directory.
func DirExists(path string) bool {
	return PathExists(path, true)
}
