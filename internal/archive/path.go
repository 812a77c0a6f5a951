package archive

import (
	"path"
	"strings"
)

// NormalizePath converts an entry name to a forward-slash relative path.
// Trailing slashes are preserved because they mark directories.
func NormalizePath(name string) string {
	p := strings.ReplaceAll(name, "\\", "/")
	isDir := strings.HasSuffix(p, "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		return ""
	}
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	if isDir {
		p += "/"
	}
	return p
}

// IsDirPath reports whether the entry name is a directory marker.
func IsDirPath(name string) bool {
	return strings.HasSuffix(name, "/") || strings.HasSuffix(name, "\\")
}

// IsUnsafePath reports whether a normalised entry path would escape its root.
func IsUnsafePath(p string) bool {
	p = strings.TrimSuffix(p, "/")
	return p == ".." || strings.HasPrefix(p, "../") || strings.HasPrefix(p, "/") ||
		(len(p) >= 2 && p[1] == ':')
}
