package control

import (
	"testing"

	"github.com/aogaki/delila-go/internal/state"
)

func TestServerClientRoundtrip(t *testing.T) {
	m := state.New(state.NoopHandler{})
	srv, err := Listen("test", "127.0.0.1:0", m)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	stop := make(chan struct{})
	defer close(stop)
	go srv.Serve(stop)

	client, err := Dial(srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(state.Command{Kind: state.CmdGetStatus})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !resp.Success || resp.State != state.Idle {
		t.Fatalf("unexpected status reply: %+v", resp)
	}

	resp, err = client.Send(state.Command{Kind: state.CmdConfigure, RunConfig: &state.RunConfig{RunNumber: 1, ExpName: "E"}})
	if err != nil {
		t.Fatalf("Send configure: %v", err)
	}
	if !resp.Success || resp.State != state.Configured {
		t.Fatalf("unexpected configure reply: %+v", resp)
	}
}

func TestServerRefusesInvalidTransitionOverWire(t *testing.T) {
	m := state.New(state.NoopHandler{})
	srv, err := Listen("test", "127.0.0.1:0", m)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	stop := make(chan struct{})
	defer close(stop)
	go srv.Serve(stop)

	client, err := Dial(srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer client.Close()

	resp, err := client.Send(state.Command{Kind: state.CmdStart, RunNumber: 1})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if resp.Success {
		t.Fatalf("Start from Idle over the wire should fail")
	}
}
