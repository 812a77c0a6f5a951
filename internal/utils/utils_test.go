package utils

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyWithCtx(t *testing.T) {
	src := strings.Repeat("x", 600*1024)
	var dst bytes.Buffer
	var calls int

	n, err := CopyWithCtx(context.Background(), &dst, strings.NewReader(src), func(int64) { calls++ })
	require.NoError(t, err)
	assert.Equal(t, int64(len(src)), n)
	assert.Equal(t, src, dst.String())
	assert.Positive(t, calls)
}

func TestCopyWithCtx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var dst bytes.Buffer
	n, err := CopyWithCtx(ctx, &dst, strings.NewReader("data"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(0), n)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024 * 1024, "5.0 GiB"},
		{-2048, "-2.0 KiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatBytes(tt.in))
	}
}

func TestRelativeTo(t *testing.T) {
	assert.Equal(t, "a/b.zip", RelativeTo("/src", "/src/a/b.zip"))
	assert.Equal(t, "/other/c.zip", RelativeTo("/src", "/other/c.zip"))
	assert.Equal(t, "roms/x", WindowsPathToLinux(`roms\x`))
}
