package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/aogaki/delila-go/internal/recorder/format"
	"github.com/aogaki/delila-go/internal/wire"
)

// Recover validates srcPath and, if it has recoverable blocks, writes a new
// file at dstPath carrying the same header, the recoverable batches copied
// verbatim, and a freshly computed, finalized footer. The recovered file
// must itself validate successfully. When srcPath already validates,
// Recover returns an error without writing dstPath: there is nothing to
// recover.
func Recover(srcPath, dstPath string) (format.ValidationResult, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return format.ValidationResult{}, fmt.Errorf("recorder: open %s: %w", srcPath, err)
	}
	defer src.Close()

	reader, err := format.NewReader(src)
	if err != nil {
		return format.ValidationResult{}, fmt.Errorf("recorder: inspect %s: %w", srcPath, err)
	}
	result := reader.Validate()
	if result.IsValid {
		return result, fmt.Errorf("recorder: %s already validates, nothing to recover", srcPath)
	}
	if result.Header == nil {
		return result, fmt.Errorf("recorder: %s has no readable header, cannot recover", srcPath)
	}
	if result.RecoverableBlocks == 0 {
		return result, fmt.Errorf("recorder: %s has no recoverable blocks", srcPath)
	}

	dst, err := os.Create(dstPath)
	if err != nil {
		return result, fmt.Errorf("recorder: create %s: %w", dstPath, err)
	}
	defer dst.Close()
	out := bufio.NewWriterSize(dst, 64*1024)

	headerBytes, err := result.Header.ToBytes()
	if err != nil {
		return result, fmt.Errorf("recorder: re-encode header: %w", err)
	}
	if _, err := out.Write(headerBytes); err != nil {
		return result, fmt.Errorf("recorder: write header: %w", err)
	}

	calc := format.NewChecksumCalculator()
	footer := format.NewFooter()

	if _, err := reader.ReadHeader(); err != nil {
		return result, fmt.Errorf("recorder: re-read header for recovery scan: %w", err)
	}
	err = reader.DataBlocks(func(b wire.Batch) error {
		data, err := b.ToMsgpack()
		if err != nil {
			return err
		}
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
		if _, err := out.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
		calc.Update(lenBuf[:])
		calc.Update(data)

		footer.TotalEvents += uint64(b.Len())
		for _, ev := range b.Events {
			footer.UpdateTimestampRange(ev.TimestampNs, ev.TimestampNs)
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("recorder: copy recoverable blocks: %w", err)
	}

	footer.DataChecksum = calc.Finalize()
	footer.DataBytes = calc.BytesProcessed()
	footer.Finalize()
	if _, err := footer.WriteTo(out); err != nil {
		return result, fmt.Errorf("recorder: write recovered footer: %w", err)
	}
	if err := out.Flush(); err != nil {
		return result, fmt.Errorf("recorder: flush recovered file: %w", err)
	}
	if err := dst.Sync(); err != nil {
		return result, fmt.Errorf("recorder: sync recovered file: %w", err)
	}

	return result, nil
}
