// Package iocopy copies a fixed number of bytes between streams through a
// reusable buffer, optionally reporting progress and honouring an abort check.
package iocopy

import (
	"errors"
	"io"
)

// DefaultBufferSize is used when NewHelper is given a non-positive size.
const DefaultBufferSize = 0x4000

// ErrAborted is returned by CallbackCopy when isAborted reports true.
var ErrAborted = errors.New("iocopy: copy aborted")

// Helper owns the copy buffer. A Helper must not be used concurrently.
type Helper struct {
	buf []byte
}

// NewHelper creates a Helper with a buffer of bufferSize bytes.
func NewHelper(bufferSize int) *Helper {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Helper{buf: make([]byte, bufferSize)}
}

// BufferSize returns the size of the copy buffer.
func (h *Helper) BufferSize() int { return len(h.buf) }

// Copy copies exactly count bytes from src to dst. A source that ends early
// yields io.ErrUnexpectedEOF.
func (h *Helper) Copy(dst io.Writer, src io.Reader, count int64) error {
	return h.CallbackCopy(dst, src, count, nil, nil)
}

// CallbackCopy copies exactly count bytes from src to dst. After every full
// buffer isAborted is consulted and progress receives the completed fraction.
// progress receives 1.0 once the copy finishes. Both callbacks may be nil.
func (h *Helper) CallbackCopy(dst io.Writer, src io.Reader, count int64, isAborted func() bool, progress func(float64)) error {
	total := count
	size := int64(len(h.buf))
	for count > size {
		if err := h.chunk(dst, src, h.buf); err != nil {
			return err
		}
		count -= size
		if isAborted != nil && isAborted() {
			return ErrAborted
		}
		if progress != nil {
			progress(float64(total-count) / float64(total))
		}
	}
	if count > 0 {
		if err := h.chunk(dst, src, h.buf[:count]); err != nil {
			return err
		}
	}
	if progress != nil {
		progress(1.0)
	}
	return nil
}

func (h *Helper) chunk(dst io.Writer, src io.Reader, buf []byte) error {
	if _, err := io.ReadFull(src, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	_, err := dst.Write(buf)
	return err
}
