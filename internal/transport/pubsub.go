// Package transport wraps goczmq PUB/SUB channelers with the pipeline's
// generic Message union encoding, and original_source/src/merger/mod.rs's
// multi-connect subscribe socket.
package transport

import (
	"fmt"

	"github.com/rs/zerolog/log"
	czmq "github.com/zeromq/goczmq"

	"github.com/aogaki/delila-go/internal/wire"
)

// Publisher binds one ZMQ PUB socket and publishes Messages to it.
type Publisher struct {
	channeler *czmq.Channeler
}

// NewPublisher binds a PUB socket at address (e.g. "tcp://*:5555").
func NewPublisher(address string) *Publisher {
	return &Publisher{channeler: czmq.NewPubChanneler(address)}
}

// Publish encodes msg to MessagePack and sends it as a single-frame ZMQ
// message. ZMQ itself preserves message boundaries, so unlike the
// recorder's on-disk format, no length prefix is needed on the wire here.
func (p *Publisher) Publish(msg wire.Message) error {
	data, err := msg.ToMsgpack()
	if err != nil {
		return fmt.Errorf("transport: encode message: %w", err)
	}
	p.channeler.SendChan <- [][]byte{data}
	return nil
}

// Close releases the underlying socket.
func (p *Publisher) Close() {
	p.channeler.Destroy()
}

// Subscriber connects a ZMQ SUB socket, optionally to several addresses
// (the merger fans in from N sources onto one socket per
// original_source/src/merger/mod.rs's receiver_task).
type Subscriber struct {
	channeler *czmq.Channeler
}

// NewSubscriber connects to the first address and, for any additional
// addresses, issues further Connect calls onto the same socket — mirroring
// the merger's "connect first sub_address then .connect() additional
// addresses onto the same subscribe socket" pattern.
func NewSubscriber(addresses ...string) (*Subscriber, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("transport: subscriber requires at least one address")
	}
	s := &Subscriber{channeler: czmq.NewSubChanneler(addresses[0], "")}
	for _, addr := range addresses[1:] {
		if err := s.channeler.Connect(addr); err != nil {
			s.channeler.Destroy()
			return nil, fmt.Errorf("transport: connect %s: %w", addr, err)
		}
	}
	return s, nil
}

// Messages exposes the decoded message stream. The returned channel is
// closed when the underlying socket is destroyed.
func (s *Subscriber) Messages() <-chan wire.Message {
	out := make(chan wire.Message)
	go func() {
		defer close(out)
		for frames := range s.channeler.RecvChan {
			if len(frames) == 0 {
				continue
			}
			msg, err := wire.MessageFromMsgpack(frames[0])
			if err != nil {
				log.Warn().Err(err).Msg("transport: dropping malformed message")
				continue
			}
			out <- msg
		}
	}()
	return out
}

// Close releases the underlying socket.
func (s *Subscriber) Close() {
	s.channeler.Destroy()
}
