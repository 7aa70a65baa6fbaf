package format

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aogaki/delila-go/internal/wire"
)

// ValidationResult is the outcome of validating a recorder file.
type ValidationResult struct {
	IsValid           bool
	Header            *Header
	Footer            *Footer
	RecoverableBlocks int
	RecoverableEvents uint64
	Errors            []string
}

// NeedsRecovery reports whether the file failed validation but still has
// at least one recoverable data block.
func (v ValidationResult) NeedsRecovery() bool {
	return !v.IsValid && v.RecoverableBlocks > 0
}

// Reader validates and recovers recorder files. It operates on an
// io.ReadSeeker (e.g. an *os.File opened read-only).
type Reader struct {
	r          io.ReadSeeker
	fileSize   int64
	headerSize int64
}

// NewReader constructs a Reader over r, determining the file size by
// seeking to the end before reading the header.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("format: determine file size: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("format: seek to start: %w", err)
	}
	return &Reader{r: r, fileSize: size}, nil
}

// ReadHeader reads and returns the file header, recording the data
// region's starting offset for later calls.
func (fr *Reader) ReadHeader() (Header, error) {
	if _, err := fr.r.Seek(0, io.SeekStart); err != nil {
		return Header{}, err
	}
	h, n, err := ReadHeaderFrom(fr.r)
	fr.headerSize = n
	return h, err
}

// ReadFooter seeks to file_size-FooterSize and attempts to read a footer.
func (fr *Reader) ReadFooter() (Footer, error) {
	if fr.fileSize < FooterSize {
		return Footer{}, ErrTooShort
	}
	if _, err := fr.r.Seek(fr.fileSize-FooterSize, io.SeekStart); err != nil {
		return Footer{}, err
	}
	return ReadFooterFrom(fr.r)
}

// Validate checks the header, scans the data region against the footer's
// checksum, and confirms the footer's completion flag is set.
func (fr *Reader) Validate() ValidationResult {
	var result ValidationResult

	header, err := fr.ReadHeader()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("header: %v", err))
		return result
	}
	result.Header = &header

	footer, ferr := fr.ReadFooter()
	var footerPtr *Footer
	if ferr != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("footer: %v", ferr))
	} else {
		footerPtr = &footer
		result.Footer = &footer
	}

	if footerPtr != nil && footerPtr.IsComplete() {
		checksum, cerr := fr.verifyChecksum(footerPtr)
		if cerr != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("checksum: %v", cerr))
		} else if checksum == footerPtr.DataChecksum {
			result.IsValid = true
		} else {
			result.Errors = append(result.Errors, "checksum mismatch")
		}
	} else if footerPtr != nil {
		result.Errors = append(result.Errors, "footer present but incomplete")
	}

	blocks, events, err := fr.countRecoverableBlocks()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("scan: %v", err))
	}
	result.RecoverableBlocks = blocks
	result.RecoverableEvents = events

	return result
}

func (fr *Reader) verifyChecksum(footer *Footer) (uint64, error) {
	if _, err := fr.r.Seek(fr.headerSize, io.SeekStart); err != nil {
		return 0, err
	}
	calc := NewChecksumCalculator()
	remaining := fr.fileSize - FooterSize - fr.headerSize
	if remaining < 0 {
		return 0, ErrTooShort
	}

	lr := io.LimitReader(fr.r, remaining)
	for {
		payload, err := wire.ReadFrame(lr)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
		calc.Update(lenBuf[:])
		calc.Update(payload)
	}
	return calc.Finalize(), nil
}

// countRecoverableBlocks streams the data region, stopping at the first
// block it cannot parse. Everything before that point is recoverable.
func (fr *Reader) countRecoverableBlocks() (blocks int, events uint64, err error) {
	if _, err = fr.r.Seek(fr.headerSize, io.SeekStart); err != nil {
		return 0, 0, err
	}

	for {
		payload, rerr := wire.ReadFrame(fr.r)
		if rerr != nil {
			break
		}
		batch, berr := wire.BatchFromMsgpack(payload)
		if berr != nil {
			break
		}
		blocks++
		events += uint64(batch.Len())
	}
	return blocks, events, nil
}

// DataBlocks re-scans the data region from the start, calling visit for
// each successfully decoded batch, and stops cleanly at the first
// unparseable block or EOF — used by the recovery tool to copy the
// recoverable prefix of a damaged file.
func (fr *Reader) DataBlocks(visit func(wire.Batch) error) error {
	if _, err := fr.r.Seek(fr.headerSize, io.SeekStart); err != nil {
		return err
	}

	for {
		payload, err := wire.ReadFrame(fr.r)
		if err != nil {
			return nil
		}
		batch, err := wire.BatchFromMsgpack(payload)
		if err != nil {
			return nil
		}
		if err := visit(batch); err != nil {
			return err
		}
	}
}
