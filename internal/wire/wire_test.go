package wire

import (
	"bytes"
	"io"
	"testing"
)

func TestEventDataRoundtrip(t *testing.T) {
	e := NewEventData(1, 2, 1000, 800, 123456789.0, FlagPileup|FlagOverRange)
	bytes, err := (Batch{Events: []EventData{e}}).ToMsgpack()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := BatchFromMsgpack(bytes)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Events) != 1 || decoded.Events[0] != e {
		t.Fatalf("roundtrip mismatch: got %+v, want %+v", decoded.Events, e)
	}
}

func TestFlagHelpers(t *testing.T) {
	e := NewEventData(0, 0, 0, 0, 0, FlagPileup|FlagOverRange)
	if !e.HasPileup() || e.HasTriggerLost() || !e.HasOverRange() {
		t.Fatalf("flag helpers disagree with flags=%x", e.Flags)
	}
}

func TestBatchRoundtrip(t *testing.T) {
	b := NewBatch(42, 1)
	b.Push(NewEventData(0, 0, 100, 80, 1000, 0))
	b.Push(NewEventData(0, 1, 200, 160, 2000, FlagPileup))

	data, err := b.ToMsgpack()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := BatchFromMsgpack(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.SourceID != b.SourceID || decoded.SequenceNumber != b.SequenceNumber {
		t.Fatalf("batch header mismatch: %+v vs %+v", decoded, b)
	}
	if len(decoded.Events) != 2 || decoded.Events[0] != b.Events[0] || decoded.Events[1] != b.Events[1] {
		t.Fatalf("batch events mismatch: %+v", decoded.Events)
	}
}

func TestMessageDataRoundtrip(t *testing.T) {
	msg := DataMessage(NewBatch(42, 1))
	if msg.IsEOS() {
		t.Fatalf("data message reported as EOS")
	}
	if msg.Source() != 42 {
		t.Fatalf("source = %d, want 42", msg.Source())
	}

	data, err := msg.ToMsgpack()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := MessageFromMsgpack(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.IsEOS() || decoded.Source() != 42 {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
}

func TestMessageEOSRoundtrip(t *testing.T) {
	msg := EOSMessage(99)
	if !msg.IsEOS() || msg.Source() != 99 {
		t.Fatalf("EOS message construction wrong: %+v", msg)
	}
	data, err := msg.ToMsgpack()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := MessageFromMsgpack(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.IsEOS() || decoded.Source() != 99 {
		t.Fatalf("roundtrip mismatch: %+v", decoded)
	}
}

func TestFrameRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	payloads := [][]byte{[]byte("hello"), []byte("a bit longer payload here")}
	for _, p := range payloads {
		if err := WriteFrame(&buf, p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}
	for _, want := range payloads {
		got, err := ReadFrame(&buf)
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("frame payload mismatch: got %q, want %q", got, want)
		}
	}
	if _, err := ReadFrame(&buf); err != io.EOF {
		t.Fatalf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestFrameRejectsOversizedLength(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadFrame(&buf); err == nil {
		t.Fatalf("expected error for oversized frame length")
	}
}
