package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLength caps an accepted frame length so a corrupt length prefix
// cannot make a reader attempt an enormous allocation. Generous relative to
// a typical batch of a few thousand events, which runs well under a
// megabyte encoded.
const MaxFrameLength = 256 << 20 // 256 MiB

// WriteFrame writes a 4-byte little-endian length prefix followed by
// payload, matching the recorder's data-region framing. The data plane
// does not use it: each message travels as one ZMQ frame with no length
// prefix.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}

// ReadFrame reads one length-prefixed frame. It returns io.EOF only when
// the stream ends exactly on a frame boundary (zero bytes read for the
// length prefix); a partial length prefix is reported as
// io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if length == 0 {
		return nil, fmt.Errorf("wire: zero-length frame")
	}
	if length > MaxFrameLength {
		return nil, fmt.Errorf("wire: frame length %d exceeds maximum %d", length, MaxFrameLength)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return payload, nil
}
