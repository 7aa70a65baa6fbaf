package format

import "github.com/cespare/xxhash/v2"

// ChecksumCalculator maintains the streaming 64-bit digest over every
// length-prefix and batch payload written to the data region, in the
// exact order written: a 64-bit non-cryptographic hash (xxh64) is
// computed over each block and folded into an accumulator by
// `acc = rotate_left(acc, 5) XOR block_hash`, finalized as `acc XOR
// total_bytes_processed`.
type ChecksumCalculator struct {
	state          uint64
	bytesProcessed uint64
}

// NewChecksumCalculator returns a zeroed calculator.
func NewChecksumCalculator() ChecksumCalculator {
	return ChecksumCalculator{}
}

// Update folds one block of data into the running digest.
func (c *ChecksumCalculator) Update(data []byte) {
	blockHash := xxhash.Sum64(data)
	c.state = rotateLeft64(c.state, 5) ^ blockHash
	c.bytesProcessed += uint64(len(data))
}

// Finalize returns the completed digest. It does not mutate the
// calculator, so callers may continue to inspect BytesProcessed afterward.
func (c ChecksumCalculator) Finalize() uint64 {
	return c.state ^ c.bytesProcessed
}

// BytesProcessed returns the total number of bytes folded in so far.
func (c ChecksumCalculator) BytesProcessed() uint64 { return c.bytesProcessed }

// Reset zeroes the calculator, used when a new file is opened.
func (c *ChecksumCalculator) Reset() {
	c.state = 0
	c.bytesProcessed = 0
}

func rotateLeft64(x uint64, k uint) uint64 {
	const bits = 64
	k &= bits - 1
	return (x << k) | (x >> (bits - k))
}
