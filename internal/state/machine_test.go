package state

import "testing"

func TestIdleRefusesStart(t *testing.T) {
	m := New(NoopHandler{})
	resp := m.Handle(Command{Kind: CmdStart, RunNumber: 7})
	if resp.Success {
		t.Fatalf("Start from Idle should fail, got success")
	}
	if resp.State != Idle {
		t.Fatalf("state changed on refused transition: got %v, want Idle", resp.State)
	}
	if m.State() != Idle {
		t.Fatalf("machine state mutated on refused transition")
	}
}

func TestFullLifecycle(t *testing.T) {
	m := New(NoopHandler{})

	steps := []struct {
		cmd   Command
		state ComponentState
	}{
		{Command{Kind: CmdConfigure, RunConfig: &RunConfig{RunNumber: 1, ExpName: "E"}}, Configured},
		{Command{Kind: CmdArm}, Armed},
		{Command{Kind: CmdStart, RunNumber: 1}, Running},
		{Command{Kind: CmdStop}, Configured},
	}

	for _, step := range steps {
		resp := m.Handle(step.cmd)
		if !resp.Success {
			t.Fatalf("command %v failed: %s", step.cmd, resp.Message)
		}
		if resp.State != step.state {
			t.Fatalf("command %v: got state %v, want %v", step.cmd, resp.State, step.state)
		}
	}

	resp := m.Handle(Command{Kind: CmdReset})
	if !resp.Success || resp.State != Idle {
		t.Fatalf("Reset from Configured should succeed into Idle, got %+v", resp)
	}
}

func TestStartCarriesRunNumberIndependentOfConfigure(t *testing.T) {
	m := New(NoopHandler{})
	m.Handle(Command{Kind: CmdConfigure, RunConfig: &RunConfig{RunNumber: 1}})
	m.Handle(Command{Kind: CmdArm})
	resp := m.Handle(Command{Kind: CmdStart, RunNumber: 99})
	if resp.RunNumber == nil || *resp.RunNumber != 99 {
		t.Fatalf("Start should overwrite run number with the one it carries, got %+v", resp.RunNumber)
	}
}

func TestResetFromEveryNonIdleState(t *testing.T) {
	for _, reach := range [][]Command{
		{{Kind: CmdConfigure, RunConfig: &RunConfig{}}},
		{{Kind: CmdConfigure, RunConfig: &RunConfig{}}, {Kind: CmdArm}},
		{{Kind: CmdConfigure, RunConfig: &RunConfig{}}, {Kind: CmdArm}, {Kind: CmdStart}},
	} {
		m := New(NoopHandler{})
		for _, c := range reach {
			if resp := m.Handle(c); !resp.Success {
				t.Fatalf("setup command %v failed: %s", c, resp.Message)
			}
		}
		resp := m.Handle(Command{Kind: CmdReset})
		if !resp.Success || resp.State != Idle {
			t.Fatalf("Reset should always reach Idle, got %+v", resp)
		}
	}
}

type rejectHandler struct {
	NoopHandler
	msg string
}

func (r rejectHandler) OnArm() string { return r.msg }

func TestHandlerRejectionLeavesStateUnchanged(t *testing.T) {
	m := New(rejectHandler{msg: "hardware not ready"})
	m.Handle(Command{Kind: CmdConfigure, RunConfig: &RunConfig{}})
	resp := m.Handle(Command{Kind: CmdArm})
	if resp.Success {
		t.Fatalf("expected Arm to be rejected by handler")
	}
	if resp.Message != "hardware not ready" {
		t.Fatalf("got message %q, want handler's rejection reason", resp.Message)
	}
	if m.State() != Configured {
		t.Fatalf("state should remain Configured after rejected Arm, got %v", m.State())
	}
}

func TestGetStatusAlwaysLegal(t *testing.T) {
	m := New(NoopHandler{})
	for i := 0; i < 5; i++ {
		resp := m.Handle(Command{Kind: CmdGetStatus})
		if !resp.Success {
			t.Fatalf("GetStatus must always succeed, got %+v", resp)
		}
	}
}

func TestFailEntersErrorAndOnlyResetEscapes(t *testing.T) {
	m := New(NoopHandler{})
	m.Handle(Command{Kind: CmdConfigure, RunConfig: &RunConfig{RunNumber: 1}})
	m.Handle(Command{Kind: CmdArm})
	m.Handle(Command{Kind: CmdStart, RunNumber: 1})

	m.Fail("disk full")
	if m.State() != Error {
		t.Fatalf("Fail should force Error, got %v", m.State())
	}

	resp := m.Handle(Command{Kind: CmdStart, RunNumber: 2})
	if resp.Success {
		t.Fatalf("Error should refuse Start")
	}
	resp = m.Handle(Command{Kind: CmdConfigure, RunConfig: &RunConfig{}})
	if resp.Success {
		t.Fatalf("Error should refuse Configure")
	}

	resp = m.Handle(Command{Kind: CmdGetStatus})
	if !resp.Success || resp.State != Error || resp.Message != "disk full" {
		t.Fatalf("GetStatus in Error should report the fail reason, got %+v", resp)
	}

	resp = m.Handle(Command{Kind: CmdReset})
	if !resp.Success || resp.State != Idle {
		t.Fatalf("Reset should clear Error into Idle, got %+v", resp)
	}

	resp = m.Handle(Command{Kind: CmdGetStatus})
	if resp.Message == "disk full" {
		t.Fatalf("Reset should clear the latched fail reason")
	}
}

func TestWatchReceivesLatestState(t *testing.T) {
	m := New(NoopHandler{})
	ch := m.Watch()
	if s := <-ch; s != Idle {
		t.Fatalf("initial watch value = %v, want Idle", s)
	}
	m.Handle(Command{Kind: CmdConfigure, RunConfig: &RunConfig{}})
	m.Handle(Command{Kind: CmdArm})
	// Watch is last-write-wins: we may have missed Configured, but must see Armed.
	if s := <-ch; s != Armed {
		t.Fatalf("watch value after two transitions = %v, want Armed", s)
	}
}
