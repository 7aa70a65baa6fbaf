package wire

import (
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Heartbeat signals source liveness once per configured interval while
// Running.
type Heartbeat struct {
	SourceID  uint32 `msgpack:"source_id"`
	Timestamp uint64 `msgpack:"timestamp"`
	Counter   uint64 `msgpack:"counter"`
}

// NewHeartbeat stamps a heartbeat with the current wall time.
func NewHeartbeat(sourceID uint32, counter uint64) Heartbeat {
	return Heartbeat{
		SourceID:  sourceID,
		Timestamp: uint64(time.Now().UnixNano()),
		Counter:   counter,
	}
}

// MessageKind discriminates the Message union. Go has no native sum type,
// so we use a discriminant field plus per-variant payload; the
// discriminant travels inside the MessagePack payload, not the wire
// frame.
type MessageKind string

const (
	MessageData        MessageKind = "data"
	MessageEndOfStream MessageKind = "eos"
	MessageHeartbeat   MessageKind = "heartbeat"
)

// Message is the tagged union carried over the data plane: event data, an
// end-of-stream marker, or a heartbeat.
type Message struct {
	Kind      MessageKind `msgpack:"kind"`
	Batch     *Batch      `msgpack:"batch,omitempty"`
	SourceID  uint32      `msgpack:"source_id,omitempty"`
	Heartbeat *Heartbeat  `msgpack:"heartbeat,omitempty"`
}

// DataMessage wraps a Batch as a Message.
func DataMessage(b Batch) Message { return Message{Kind: MessageData, Batch: &b} }

// EOSMessage builds an end-of-stream Message for sourceID.
func EOSMessage(sourceID uint32) Message {
	return Message{Kind: MessageEndOfStream, SourceID: sourceID}
}

// HeartbeatMessage builds a Message wrapping a heartbeat from sourceID.
func HeartbeatMessage(sourceID uint32, counter uint64) Message {
	hb := NewHeartbeat(sourceID, counter)
	return Message{Kind: MessageHeartbeat, Heartbeat: &hb}
}

// IsEOS reports whether the message is an EndOfStream marker.
func (m Message) IsEOS() bool { return m.Kind == MessageEndOfStream }

// IsHeartbeat reports whether the message is a heartbeat.
func (m Message) IsHeartbeat() bool { return m.Kind == MessageHeartbeat }

// Source extracts the originating source id from whichever variant is set.
func (m Message) Source() uint32 {
	switch m.Kind {
	case MessageData:
		if m.Batch != nil {
			return m.Batch.SourceID
		}
		return 0
	case MessageEndOfStream:
		return m.SourceID
	case MessageHeartbeat:
		if m.Heartbeat != nil {
			return m.Heartbeat.SourceID
		}
		return 0
	default:
		return 0
	}
}

// ToMsgpack serializes the message to MessagePack bytes.
func (m Message) ToMsgpack() ([]byte, error) { return msgpack.Marshal(m) }

// MessageFromMsgpack deserializes a Message from MessagePack bytes.
func MessageFromMsgpack(data []byte) (Message, error) {
	var m Message
	err := msgpack.Unmarshal(data, &m)
	return m, err
}
