package utils

import (
	"context"
	"errors"
	"io"
)

// CopyWithCtx copies src to dst, checking ctx between chunks. onChunk, when
// non-nil, receives the running total after each write.
func CopyWithCtx(ctx context.Context, dst io.Writer, src io.Reader, onChunk func(total int64)) (int64, error) {
	buf := make([]byte, 256*1024)

	var totalBytes int64

	for {
		select {
		case <-ctx.Done():
			return totalBytes, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			written, err := dst.Write(buf[:n])
			totalBytes += int64(written)
			if err != nil {
				return totalBytes, err
			}
			if written != n {
				return totalBytes, io.ErrShortWrite
			}
			if onChunk != nil {
				onChunk(totalBytes)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return totalBytes, nil
			}
			return totalBytes, readErr
		}
	}
}
