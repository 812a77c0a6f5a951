//go:build !unix

package utils

import "errors"

// DiskSpace holds information about disk space usage
type DiskSpace struct {
	Total int64
	Free  int64
	Used  int64
}

// ErrDiskSpaceUnsupported is returned where free space cannot be queried.
var ErrDiskSpaceUnsupported = errors.New("disk space query not supported on this platform")

// GetDiskSpace returns disk space information for the given path
func GetDiskSpace(string) (DiskSpace, error) {
	return DiskSpace{}, ErrDiskSpaceUnsupported
}
