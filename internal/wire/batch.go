package wire

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Batch is the unit of transport and of file writing: an ordered,
// never-split, never-reordered sequence of events from one source.
// SequenceNumber is strictly monotone per source and resets to 0 on each
// Start.
type Batch struct {
	SourceID       uint32      `msgpack:"source_id"`
	SequenceNumber uint64      `msgpack:"sequence_number"`
	Timestamp      uint64      `msgpack:"timestamp"`
	Events         []EventData `msgpack:"events"`
}

// NewBatch creates an empty batch stamped with the current wall time.
func NewBatch(sourceID uint32, sequenceNumber uint64) Batch {
	return Batch{
		SourceID:       sourceID,
		SequenceNumber: sequenceNumber,
		Timestamp:      uint64(time.Now().UnixNano()),
		Events:         nil,
	}
}

// NewBatchWithCapacity is NewBatch with a pre-sized Events slice.
func NewBatchWithCapacity(sourceID uint32, sequenceNumber uint64, capacity int) Batch {
	b := NewBatch(sourceID, sequenceNumber)
	b.Events = make([]EventData, 0, capacity)
	return b
}

// Len returns the number of events in the batch.
func (b Batch) Len() int { return len(b.Events) }

// IsEmpty reports whether the batch has no events.
func (b Batch) IsEmpty() bool { return len(b.Events) == 0 }

// Push appends an event to the batch.
func (b *Batch) Push(e EventData) { b.Events = append(b.Events, e) }

// ToMsgpack serializes the batch to MessagePack bytes.
func (b Batch) ToMsgpack() ([]byte, error) { return msgpack.Marshal(b) }

// BatchFromMsgpack deserializes a Batch from MessagePack bytes.
func BatchFromMsgpack(data []byte) (Batch, error) {
	var b Batch
	err := msgpack.Unmarshal(data, &b)
	return b, err
}
