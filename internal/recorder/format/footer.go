package format

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"
)

// FooterSize is the fixed trailing footer size in bytes.
const FooterSize = 64

// FooterMagic opens the 64-byte footer.
var FooterMagic = [8]byte{'D', 'L', 'E', 'N', 'D', '0', '0', '2'}

// Footer is the fixed-size trailer carrying the content checksum,
// completion flag, and summary statistics.
type Footer struct {
	DataChecksum     uint64
	TotalEvents      uint64
	DataBytes        uint64
	FirstEventTimeNs float64
	LastEventTimeNs  float64
	FileEndTimeNs    uint64
	WriteComplete    uint8
}

// NewFooter returns a zeroed footer ready to accumulate statistics as
// batches are written. FirstEventTimeNs/LastEventTimeNs start at sentinel
// extremes so UpdateTimestampRange's min/max widening works correctly on
// the very first event.
func NewFooter() Footer {
	return Footer{
		FirstEventTimeNs: math.MaxFloat64,
		LastEventTimeNs:  -math.MaxFloat64,
	}
}

// UpdateTimestampRange widens the footer's [first, last] event-time range
// to include first and last (the first and last event timestamps of a
// newly written batch). It only ever widens, never narrows — batches are
// assumed already in production order.
func (f *Footer) UpdateTimestampRange(first, last float64) {
	if first < f.FirstEventTimeNs {
		f.FirstEventTimeNs = first
	}
	if last > f.LastEventTimeNs {
		f.LastEventTimeNs = last
	}
}

// Finalize marks the footer complete and stamps the close time. Called
// once, right before the footer is written to disk.
func (f *Footer) Finalize() {
	f.WriteComplete = 1
	f.FileEndTimeNs = uint64(time.Now().UnixNano())
}

// IsComplete reports whether WriteComplete is set.
func (f Footer) IsComplete() bool { return f.WriteComplete == 1 }

// ToBytes encodes the footer into its exact 64-byte little-endian layout.
func (f Footer) ToBytes() [FooterSize]byte {
	var buf [FooterSize]byte
	copy(buf[0:8], FooterMagic[:])
	binary.LittleEndian.PutUint64(buf[8:16], f.DataChecksum)
	binary.LittleEndian.PutUint64(buf[16:24], f.TotalEvents)
	binary.LittleEndian.PutUint64(buf[24:32], f.DataBytes)
	binary.LittleEndian.PutUint64(buf[32:40], math.Float64bits(f.FirstEventTimeNs))
	binary.LittleEndian.PutUint64(buf[40:48], math.Float64bits(f.LastEventTimeNs))
	binary.LittleEndian.PutUint64(buf[48:56], f.FileEndTimeNs)
	buf[56] = f.WriteComplete
	// buf[57:64] stays zero: reserved.
	return buf
}

// ErrInvalidFooterMagic is returned when the trailing 8 bytes don't match
// FooterMagic.
var ErrInvalidFooterMagic = fmt.Errorf("format: invalid footer magic")

// ErrTooShort is returned when fewer than FooterSize bytes are available
// for a footer.
var ErrTooShort = fmt.Errorf("format: data too short for footer")

// FooterFromBytes decodes a Footer from an exact FooterSize-byte slice at
// the offsets ToBytes writes.
func FooterFromBytes(buf []byte) (Footer, error) {
	if len(buf) < FooterSize {
		return Footer{}, ErrTooShort
	}
	var magic [8]byte
	copy(magic[:], buf[0:8])
	if magic != FooterMagic {
		return Footer{}, ErrInvalidFooterMagic
	}
	return Footer{
		DataChecksum:     binary.LittleEndian.Uint64(buf[8:16]),
		TotalEvents:      binary.LittleEndian.Uint64(buf[16:24]),
		DataBytes:        binary.LittleEndian.Uint64(buf[24:32]),
		FirstEventTimeNs: math.Float64frombits(binary.LittleEndian.Uint64(buf[32:40])),
		LastEventTimeNs:  math.Float64frombits(binary.LittleEndian.Uint64(buf[40:48])),
		FileEndTimeNs:    binary.LittleEndian.Uint64(buf[48:56]),
		WriteComplete:    buf[56],
	}, nil
}

// WriteTo writes the encoded 64-byte footer to w.
func (f Footer) WriteTo(w io.Writer) (int64, error) {
	buf := f.ToBytes()
	n, err := w.Write(buf[:])
	return int64(n), err
}

// ReadFooterFrom reads exactly FooterSize bytes from r and decodes them.
func ReadFooterFrom(r io.Reader) (Footer, error) {
	var buf [FooterSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Footer{}, fmt.Errorf("format: read footer: %w", err)
	}
	return FooterFromBytes(buf[:])
}
