// Package format implements the recorder's self-describing binary file
// layout, grounded on original_source/src/recorder/format.rs.
package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// FileMagic opens every recorder file header. Only files carrying this
// exact magic and the current FormatVersion are accepted; there is no
// automatic schema evolution beyond rejecting an unrecognized version
// tag.
var FileMagic = [8]byte{'D', 'E', 'L', 'I', 'L', 'A', '0', '2'}

// FormatVersion is the header payload's version field.
const FormatVersion = 2

// Header is the file's leading metadata payload: version, run number,
// experiment name, file sequence number, start time, a free-form
// comment, the sort-order flag and margin, the set of contributing
// source IDs, and arbitrary extra metadata.
type Header struct {
	Version         uint32            `msgpack:"version"`
	RunNumber       uint32            `msgpack:"run_number"`
	ExpName         string            `msgpack:"exp_name"`
	FileSequence    uint32            `msgpack:"file_sequence"`
	FileStartTimeNs uint64            `msgpack:"file_start_time_ns"`
	Comment         string            `msgpack:"comment"`
	SortMarginRatio float64           `msgpack:"sort_margin_ratio"`
	IsSorted        bool              `msgpack:"is_sorted"`
	SourceIDs       []uint32          `msgpack:"source_ids"`
	Metadata        map[string]string `msgpack:"metadata"`
}

// NewHeader builds a Header for the start of a new file, stamped with the
// current wall time.
func NewHeader(runNumber uint32, expName string, fileSequence uint32) Header {
	return Header{
		Version:         FormatVersion,
		RunNumber:       runNumber,
		ExpName:         expName,
		FileSequence:    fileSequence,
		FileStartTimeNs: uint64(time.Now().UnixNano()),
		SourceIDs:       nil,
		Metadata:        map[string]string{},
	}
}

// ToBytes encodes the header as magic + little-endian u32 payload length +
// MessagePack payload.
func (h Header) ToBytes() ([]byte, error) {
	payload, err := msgpack.Marshal(h)
	if err != nil {
		return nil, fmt.Errorf("format: encode header: %w", err)
	}
	out := make([]byte, 0, 8+4+len(payload))
	out = append(out, FileMagic[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	out = append(out, lenBuf[:]...)
	out = append(out, payload...)
	return out, nil
}

// WriteTo writes the encoded header to w.
func (h Header) WriteTo(w io.Writer) (int64, error) {
	data, err := h.ToBytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// ErrInvalidMagic is returned when a file's leading bytes don't match
// FileMagic.
var ErrInvalidMagic = fmt.Errorf("format: invalid file magic")

// ErrUnsupportedVersion is returned when the header's version field isn't
// FormatVersion.
var ErrUnsupportedVersion = fmt.Errorf("format: unsupported file version")

// ReadHeaderFrom reads a header from r and returns it along with the number
// of bytes consumed (magic + length prefix + payload), which the caller
// needs to know where the data region begins.
func ReadHeaderFrom(r io.Reader) (Header, int64, error) {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return Header{}, 0, fmt.Errorf("format: read header magic: %w", err)
	}
	if magic != FileMagic {
		return Header{}, 0, ErrInvalidMagic
	}

	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return Header{}, 0, fmt.Errorf("format: read header length: %w", err)
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Header{}, 0, fmt.Errorf("format: read header payload: %w", err)
	}

	var h Header
	if err := msgpack.Unmarshal(payload, &h); err != nil {
		return Header{}, 0, fmt.Errorf("format: decode header: %w", err)
	}
	if h.Version != FormatVersion {
		return h, 8 + 4 + int64(length), ErrUnsupportedVersion
	}
	return h, 8 + 4 + int64(length), nil
}
