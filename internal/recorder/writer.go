// Package recorder implements the storage engine: a file writer that owns
// exactly one open `.delila` file at a time, rotating it by size or
// duration, plus the Recorder component that wires the writer to the
// shared state machine and the data-plane transport. Grounded on
// original_source/src/recorder/mod.rs's FileWriter/Recorder split.
package recorder

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/recorder/format"
	"github.com/aogaki/delila-go/internal/state"
	"github.com/aogaki/delila-go/internal/wire"
)

// Config holds the recorder's storage parameters. Defaults mirror the
// Rust original: a 1 GB rotation size and a 10-minute rotation duration.
type Config struct {
	OutputDir       string
	MaxFileSize     uint64
	MaxFileDuration time.Duration
}

// DefaultConfig returns the recorder's built-in defaults.
func DefaultConfig() Config {
	return Config{
		OutputDir:       "./data",
		MaxFileSize:     1024 * 1024 * 1024,
		MaxFileDuration: 10 * time.Minute,
	}
}

// FileWriter owns exactly one open file at a time and implements the
// writer contract: lazy file creation on the first batch of a run,
// rotation by size or duration, and a recoverable partial file if the
// process dies before the footer is written.
type FileWriter struct {
	cfg Config

	runConfig    *state.RunConfig
	runActive    bool
	fileSequence uint32

	file            *os.File
	buf             *bufio.Writer
	currentFileSize uint64
	fileOpenedAt    time.Time
	checksum        format.ChecksumCalculator
	footer          format.Footer
	headerSize      uint64
}

// NewFileWriter constructs a FileWriter with no open file and no active
// run.
func NewFileWriter(cfg Config) *FileWriter {
	return &FileWriter{cfg: cfg}
}

// NewRun records the configuration for the run about to start. File state
// itself is reset lazily in StartRun, matching the original's split
// between Configure (prepare) and Start (enable writing).
func (w *FileWriter) NewRun(cfg state.RunConfig) {
	w.runConfig = &cfg
}

// StartRun enables writing for runNumber, closing any file left open from
// a previous run first.
func (w *FileWriter) StartRun(runNumber uint32) error {
	if w.file != nil {
		if err := w.CloseFile(); err != nil {
			log.Warn().Err(err).Msg("failed to close leftover file on start")
		}
	}
	if w.runConfig == nil {
		cfg := state.RunConfig{RunNumber: int(runNumber)}
		w.runConfig = &cfg
	}
	w.runConfig.RunNumber = int(runNumber)

	w.fileSequence = 0
	w.currentFileSize = 0
	w.fileOpenedAt = time.Time{}
	w.checksum.Reset()
	w.footer = format.NewFooter()
	w.headerSize = 0
	w.runActive = true
	return nil
}

// EndRun disables writing and closes the current file, finalizing its
// footer.
func (w *FileWriter) EndRun() error {
	w.runActive = false
	return w.CloseFile()
}

// WriteBatch appends one batch to the currently open file, opening or
// rotating it first as needed. An empty batch or a batch arriving while no
// run is active is silently ignored, matching the writer contract: the
// writer never blocks or errors on out-of-band data.
func (w *FileWriter) WriteBatch(b wire.Batch) error {
	if b.IsEmpty() {
		return nil
	}
	if !w.runActive {
		return nil
	}

	if w.file == nil {
		if err := w.openNewFile(); err != nil {
			return err
		}
	}
	if w.needsRotation() {
		if err := w.openNewFile(); err != nil {
			return err
		}
	}

	first, last := b.Events[0], b.Events[len(b.Events)-1]
	w.footer.UpdateTimestampRange(first.TimestampNs, last.TimestampNs)

	data, err := b.ToMsgpack()
	if err != nil {
		return fmt.Errorf("recorder: encode batch: %w", err)
	}

	if err := wire.WriteFrame(w.buf, data); err != nil {
		return fmt.Errorf("recorder: write batch: %w", err)
	}
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(data)))
	w.checksum.Update(lenBuf[:])
	w.checksum.Update(data)

	w.footer.TotalEvents += uint64(b.Len())
	w.currentFileSize += uint64(len(lenBuf) + len(data))

	return nil
}

// needsRotation reports whether the current file should be rotated before
// the next batch is written.
func (w *FileWriter) needsRotation() bool {
	if w.file == nil {
		return false
	}
	if w.currentFileSize+format.FooterSize >= w.cfg.MaxFileSize {
		return true
	}
	if !w.fileOpenedAt.IsZero() && time.Since(w.fileOpenedAt) >= w.cfg.MaxFileDuration {
		return true
	}
	return false
}

// openNewFile closes any currently-open file, then creates and opens the
// next one in sequence, writing its header.
func (w *FileWriter) openNewFile() error {
	if w.file != nil {
		if err := w.CloseFile(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(w.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("recorder: create output dir: %w", err)
	}

	path := w.generateFilename()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("recorder: create file %s: %w", path, err)
	}

	w.checksum.Reset()
	w.footer = format.NewFooter()

	header := format.NewHeader(uint32(w.runConfig.RunNumber), w.runConfig.ExpName, w.fileSequence)
	header.Comment = w.runConfig.Comment

	headerBytes, err := header.ToBytes()
	if err != nil {
		f.Close()
		return fmt.Errorf("recorder: encode header: %w", err)
	}

	buf := bufio.NewWriterSize(f, 64*1024)
	if _, err := buf.Write(headerBytes); err != nil {
		f.Close()
		return fmt.Errorf("recorder: write header: %w", err)
	}

	w.file = f
	w.buf = buf
	w.headerSize = uint64(len(headerBytes))
	w.currentFileSize = w.headerSize
	w.fileOpenedAt = time.Now()

	log.Info().Str("path", path).Msg("opened data file")
	return nil
}

// generateFilename builds `run{RUN:04}_{SEQ:04}_{EXP}.delila`, appending
// `_{unix_secs}` if that path already exists.
func (w *FileWriter) generateFilename() string {
	expName := w.runConfig.ExpName
	if expName == "" {
		expName = "data"
	}

	base := fmt.Sprintf("run%04d_%04d_%s.delila", w.runConfig.RunNumber, w.fileSequence, expName)
	path := filepath.Join(w.cfg.OutputDir, base)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	withTimestamp := fmt.Sprintf("run%04d_%04d_%s_%d.delila", w.runConfig.RunNumber, w.fileSequence, expName, time.Now().Unix())
	return filepath.Join(w.cfg.OutputDir, withTimestamp)
}

// CloseFile finalizes and writes the footer, flushes, and syncs the file
// to disk. A no-op if no file is currently open.
func (w *FileWriter) CloseFile() error {
	if w.file == nil {
		return nil
	}

	w.footer.DataChecksum = w.checksum.Finalize()
	w.footer.DataBytes = w.checksum.BytesProcessed()
	w.footer.Finalize()

	if _, err := w.footer.WriteTo(w.buf); err != nil {
		return fmt.Errorf("recorder: write footer: %w", err)
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("recorder: flush: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("recorder: sync: %w", err)
	}

	size := w.currentFileSize + format.FooterSize
	events := w.footer.TotalEvents
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("recorder: close: %w", err)
	}

	log.Info().
		Float64("size_mb", float64(size)/1_000_000).
		Uint64("events", events).
		Uint64("checksum", w.footer.DataChecksum).
		Msg("closed data file")

	w.file = nil
	w.buf = nil
	w.fileOpenedAt = time.Time{}
	w.fileSequence++
	return nil
}

// ForceClose abandons the current file without attempting to flush or
// write a footer, for use after WriteBatch or CloseFile has already
// failed and the buffer/file state can no longer be trusted. Best-effort:
// any error closing the underlying descriptor is logged, not returned,
// since the caller is already on its way to reporting a fatal failure.
func (w *FileWriter) ForceClose() {
	if w.file == nil {
		return
	}
	if err := w.file.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close file during forced shutdown")
	}
	w.file = nil
	w.buf = nil
	w.fileOpenedAt = time.Time{}
}
