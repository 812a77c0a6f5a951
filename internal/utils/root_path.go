package utils

import (
	"path/filepath"
	"strings"
)

// RelativeTo returns name relative to root using forward slashes. Names outside
// root are returned unchanged.
func RelativeTo(root, name string) string {
	rel, err := filepath.Rel(root, name)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(name)
	}
	return filepath.ToSlash(rel)
}

func WindowsPathToLinux(path string) string {
	return strings.ReplaceAll(path, "\\", "/")
}
