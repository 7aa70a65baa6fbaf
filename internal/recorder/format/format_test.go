package format_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aogaki/delila-go/internal/recorder/format"
	"github.com/aogaki/delila-go/internal/wire"
)

func writeBlock(t *testing.T, w *bytes.Buffer, calc *format.ChecksumCalculator, b wire.Batch) {
	t.Helper()
	payload, err := b.ToMsgpack()
	require.NoError(t, err)

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	calc.Update(lenBuf[:])
	calc.Update(payload)

	_, err = w.Write(lenBuf[:])
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
}

func TestHeaderRoundtrip(t *testing.T) {
	h := format.NewHeader(42, "test-exp", 3)
	h.Comment = "hello"
	h.SourceIDs = []uint32{1, 2}

	var buf bytes.Buffer
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)

	got, n, err := format.ReadHeaderFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, h.RunNumber, got.RunNumber)
	require.Equal(t, h.ExpName, got.ExpName)
	require.Equal(t, h.Comment, got.Comment)
	require.Equal(t, h.SourceIDs, got.SourceIDs)
	require.Greater(t, n, int64(0))
}

func TestHeaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBuffer([]byte("XXXXXXXX\x00\x00\x00\x00"))
	_, _, err := format.ReadHeaderFrom(buf)
	require.ErrorIs(t, err, format.ErrInvalidMagic)
}

func TestFooterRoundtrip(t *testing.T) {
	f := format.NewFooter()
	f.UpdateTimestampRange(100.0, 50.0)
	f.UpdateTimestampRange(10.0, 500.0)
	f.TotalEvents = 7
	f.DataBytes = 1234
	f.DataChecksum = 0xdeadbeef
	f.Finalize()

	var buf bytes.Buffer
	n, err := f.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(format.FooterSize), n)

	got, err := format.ReadFooterFrom(&buf)
	require.NoError(t, err)
	require.Equal(t, f.TotalEvents, got.TotalEvents)
	require.Equal(t, f.DataBytes, got.DataBytes)
	require.Equal(t, f.DataChecksum, got.DataChecksum)
	require.Equal(t, 10.0, got.FirstEventTimeNs)
	require.Equal(t, 500.0, got.LastEventTimeNs)
	require.True(t, got.IsComplete())
}

func TestFooterFromBytesRejectsShortBuffer(t *testing.T) {
	_, err := format.FooterFromBytes(make([]byte, 10))
	require.ErrorIs(t, err, format.ErrTooShort)
}

func TestChecksumCalculatorDependsOnBlockBoundaries(t *testing.T) {
	a := format.NewChecksumCalculator()
	a.Update([]byte("abc"))
	a.Update([]byte("def"))

	b := format.NewChecksumCalculator()
	b.Update([]byte("abcdef"))

	require.NotEqual(t, a.Finalize(), b.Finalize(), "folding per-block must differ from one combined block")
	require.Equal(t, uint64(6), a.BytesProcessed())
}

func buildFile(t *testing.T, batches []wire.Batch, complete bool) []byte {
	t.Helper()
	var buf bytes.Buffer

	h := format.NewHeader(1, "exp", 0)
	_, err := h.WriteTo(&buf)
	require.NoError(t, err)

	calc := format.NewChecksumCalculator()
	footer := format.NewFooter()
	for _, b := range batches {
		writeBlock(t, &buf, &calc, b)
		footer.TotalEvents += uint64(b.Len())
		footer.DataBytes += uint64(len(mustMsgpack(t, b)))
		for _, ev := range b.Events {
			footer.UpdateTimestampRange(ev.TimestampNs, ev.TimestampNs)
		}
	}

	if complete {
		footer.DataChecksum = calc.Finalize()
		footer.Finalize()
		_, err = footer.WriteTo(&buf)
		require.NoError(t, err)
	}

	return buf.Bytes()
}

func mustMsgpack(t *testing.T, b wire.Batch) []byte {
	t.Helper()
	data, err := b.ToMsgpack()
	require.NoError(t, err)
	return data
}

func makeBatch(sourceID uint32, seq uint64, n int) wire.Batch {
	b := wire.NewBatchWithCapacity(sourceID, seq, n)
	for i := 0; i < n; i++ {
		b.Push(wire.NewEventData(0, uint8(i), 1000, 750, float64(seq*1000+uint64(i)), 0))
	}
	return b
}

func TestValidateCompleteFileIsValid(t *testing.T) {
	batches := []wire.Batch{makeBatch(1, 0, 3), makeBatch(1, 1, 2)}
	data := buildFile(t, batches, true)

	r, err := format.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	result := r.Validate()

	require.True(t, result.IsValid)
	require.Empty(t, result.Errors)
	require.Equal(t, 2, result.RecoverableBlocks)
	require.Equal(t, uint64(5), result.RecoverableEvents)
}

func TestValidateDetectsChecksumCorruption(t *testing.T) {
	batches := []wire.Batch{makeBatch(1, 0, 3)}
	data := buildFile(t, batches, true)

	// Flip a byte just before the footer, guaranteed to land inside the
	// last data block rather than the header or footer.
	corrupted := append([]byte(nil), data...)
	victim := len(corrupted) - format.FooterSize - 5
	corrupted[victim] ^= 0xFF

	r, err := format.NewReader(bytes.NewReader(corrupted))
	require.NoError(t, err)
	result := r.Validate()

	require.False(t, result.IsValid)
	require.NotEmpty(t, result.Errors)
}

func TestValidateRecoversTruncatedFile(t *testing.T) {
	batches := []wire.Batch{makeBatch(1, 0, 2), makeBatch(1, 1, 2), makeBatch(1, 2, 2)}
	data := buildFile(t, batches, false) // never finalized: no footer, simulates a crash mid-run

	// Truncate mid-way through the third block to simulate a partial write.
	truncated := data[:len(data)-4]

	r, err := format.NewReader(bytes.NewReader(truncated))
	require.NoError(t, err)
	result := r.Validate()

	require.False(t, result.IsValid)
	require.True(t, result.NeedsRecovery())
	require.Equal(t, 2, result.RecoverableBlocks)
	require.Equal(t, uint64(4), result.RecoverableEvents)
}

func TestDataBlocksIteratesRecoverablePrefix(t *testing.T) {
	batches := []wire.Batch{makeBatch(2, 0, 1), makeBatch(2, 1, 1)}
	data := buildFile(t, batches, true)

	r, err := format.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.ReadHeader()
	require.NoError(t, err)

	var seen []uint64
	err = r.DataBlocks(func(b wire.Batch) error {
		seen = append(seen, b.SequenceNumber)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1}, seen)
}
