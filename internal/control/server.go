// Package control implements the command/response control plane: a strict
// request/reply codec bound to a stage-specific TCP address, generalizing
// the original's net/rpc + net/rpc/jsonrpc server loop down to the fixed,
// small command vocabulary this pipeline needs, without Go's
// reflection-based method dispatch. Each accepted connection is served in
// its own goroutine, and within a connection, commands are decoded and
// replied to strictly in order — exactly one outstanding request at a
// time.
package control

import (
	"encoding/json"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/aogaki/delila-go/internal/state"
)

// Server accepts connections on a TCP address and dispatches each decoded
// Command to a Machine, replying with its CommandResponse.
type Server struct {
	listener net.Listener
	machine  *state.Machine
	name     string
}

// Listen binds address and returns a Server ready to Serve.
func Listen(name, address string, machine *state.Machine) (*Server, error) {
	l, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &Server{listener: l, machine: machine, name: name}, nil
}

// Addr returns the bound address (useful when address was ":0").
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Serve accepts connections until stop is closed or the listener errors.
// Each connection is handled in its own goroutine but commands within a
// connection are processed strictly one at a time.
func (s *Server) Serve(stop <-chan struct{}) {
	go func() {
		<-stop
		s.listener.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-stop:
				return
			default:
				log.Warn().Str("component", s.name).Err(err).Msg("control: accept failed")
				return
			}
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var cmd state.Command
		if err := dec.Decode(&cmd); err != nil {
			if err != io.EOF {
				log.Debug().Str("component", s.name).Err(err).Msg("control: decode failed, closing connection")
			}
			return
		}

		resp := s.machine.Handle(cmd)
		log.Info().Str("component", s.name).Str("command", string(cmd.Kind)).
			Bool("success", resp.Success).Str("state", resp.State.String()).Msg("control: command handled")

		if err := enc.Encode(resp); err != nil {
			log.Warn().Str("component", s.name).Err(err).Msg("control: encode reply failed, closing connection")
			return
		}
	}
}

// Close stops accepting new connections immediately.
func (s *Server) Close() error { return s.listener.Close() }
