package transport

import (
	"encoding/binary"
	"errors"
	"io"
)

// ErrFrameTooLarge is returned when a peer announces a frame larger than the configured maximum.
var ErrFrameTooLarge = errors.New("frame exceeds maximum size")

const frameHeaderSize = 4

// writeFrame writes payload prefixed with its big-endian uint32 length, in a single write.
func writeFrame(w io.Writer, payload []byte) error {
	buf := make([]byte, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)))
	copy(buf[frameHeaderSize:], payload)
	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader, maxSize int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(header[:])
	if uint64(size) > uint64(maxSize) {
		return nil, ErrFrameTooLarge
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame and ReadFrame expose the framing to servers speaking to a Socket.

// WriteFrame writes a single length prefixed frame.
func WriteFrame(w io.Writer, payload []byte) error {
	return writeFrame(w, payload)
}

// ReadFrame reads a single length prefixed frame of at most maxSize bytes.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	return readFrame(r, maxSize)
}
