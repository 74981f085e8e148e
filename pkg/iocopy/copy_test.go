package iocopy

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopy_ExactCount(t *testing.T) {
	h := NewHelper(4)
	var out bytes.Buffer

	err := h.Copy(&out, strings.NewReader("0123456789abcdef"), 10)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", out.String())
}

func TestCopy_ShortSource(t *testing.T) {
	h := NewHelper(4)
	var out bytes.Buffer

	err := h.Copy(&out, strings.NewReader("0123"), 10)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = h.Copy(&out, strings.NewReader(""), 2)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCopy_DefaultBuffer(t *testing.T) {
	assert.Equal(t, DefaultBufferSize, NewHelper(0).BufferSize())
}

func TestCallbackCopy_Progress(t *testing.T) {
	h := NewHelper(4)
	var out bytes.Buffer
	var reported []float64

	err := h.CallbackCopy(&out, strings.NewReader("abcdefghijkl"), 12, func() bool { return false }, func(p float64) {
		reported = append(reported, p)
	})
	require.NoError(t, err)
	assert.Equal(t, "abcdefghijkl", out.String())
	require.Len(t, reported, 3)
	assert.InDelta(t, 4.0/12.0, reported[0], 1e-9)
	assert.InDelta(t, 8.0/12.0, reported[1], 1e-9)
	assert.Equal(t, 1.0, reported[2])
}

func TestCallbackCopy_Abort(t *testing.T) {
	h := NewHelper(4)
	var out bytes.Buffer
	calls := 0

	err := h.CallbackCopy(&out, strings.NewReader("abcdefghijkl"), 12, func() bool {
		calls++
		return true
	}, nil)
	assert.ErrorIs(t, err, ErrAborted)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "abcd", out.String())
}
