package state

import "sync"

// Handler lets a stage (source, merger, recorder, monitor, sink) contribute
// behavior to Configure/Arm/Start/Stop/Reset without owning the state
// machine itself. All methods are invoked while Machine's internal mutex
// is held, so a hook never races a concurrent transition. Returning a
// non-empty message rejects the transition and the state is left
// unchanged.
type Handler interface {
	OnConfigure(cfg RunConfig) string
	OnArm() string
	OnStart(runNumber uint32) string
	OnStop() string
	OnReset() string
	StatusDetails() string
	Metrics() MetricsSnapshot
	OnUpdateEmulatorConfig(cfg EmulatorRuntimeConfig) string
}

// NoopHandler is the zero-effort Handler every transition accepts, useful
// for tests and for stages with nothing to validate.
type NoopHandler struct{}

func (NoopHandler) OnConfigure(RunConfig) string                        { return "" }
func (NoopHandler) OnArm() string                                       { return "" }
func (NoopHandler) OnStart(uint32) string                               { return "" }
func (NoopHandler) OnStop() string                                      { return "" }
func (NoopHandler) OnReset() string                                     { return "" }
func (NoopHandler) StatusDetails() string                               { return "" }
func (NoopHandler) Metrics() MetricsSnapshot                            { return MetricsSnapshot{} }
func (NoopHandler) OnUpdateEmulatorConfig(EmulatorRuntimeConfig) string { return "" }

// Machine owns a stage's current state and run config behind one mutex, and
// broadcasts every transition to subscribed watchers. It is the shared
// runtime every stage embeds; stage-specific logic hangs off a Handler.
type Machine struct {
	mu        sync.Mutex
	state     ComponentState
	run       *RunConfig
	runNumber uint32
	handler   Handler
	failMsg   string

	watchMu  sync.Mutex
	watchers []chan ComponentState
}

// New creates a Machine in the Idle state driving the given Handler.
func New(h Handler) *Machine {
	if h == nil {
		h = NoopHandler{}
	}
	return &Machine{state: Idle, handler: h}
}

// State returns the current state.
func (m *Machine) State() ComponentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Watch returns a channel that receives the latest state on every
// transition. It is last-write-wins: a slow reader may miss intermediate
// states but always eventually observes the current one. The channel has
// capacity 1 and is never closed by Machine; callers should simply stop
// reading when done.
func (m *Machine) Watch() <-chan ComponentState {
	ch := make(chan ComponentState, 1)
	ch <- m.State()
	m.watchMu.Lock()
	m.watchers = append(m.watchers, ch)
	m.watchMu.Unlock()
	return ch
}

func (m *Machine) broadcast(s ComponentState) {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()
	for _, ch := range m.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- s
	}
}

func (m *Machine) setState(s ComponentState) {
	m.state = s
	m.broadcast(s)
}

// Fail drives the machine into the absorbing Error state from any state,
// recording msg as the reason reported by the next GetStatus. It is called
// by a stage's own background work (a writer goroutine discovering a fatal
// I/O error, for instance) rather than from the command path, since such
// failures aren't triggered by an operator command. Once in Error, only
// GetStatus and Reset are accepted; Reset clears the recorded reason.
func (m *Machine) Fail(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Error {
		return
	}
	m.failMsg = msg
	m.setState(Error)
}

// Handle drives cmd through the state machine, invoking the stage handler's
// hooks as appropriate, and returns the reply to send back over the
// control-plane socket. Handle never panics: a hook error becomes a
// negative reply, not a crash.
func (m *Machine) Handle(cmd Command) CommandResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch cmd.Kind {
	case CmdConfigure:
		if m.state != Idle || !m.state.CanTransitionTo(Configured) {
			return m.invalidTransition(cmd)
		}
		if msg := m.handler.OnConfigure(derefRunConfig(cmd.RunConfig)); msg != "" {
			return errorResponse(m.state, msg)
		}
		cfg := derefRunConfig(cmd.RunConfig)
		m.run = &cfg
		m.runNumber = uint32(cfg.RunNumber)
		m.setState(Configured)
		return success(m.state, "configured")

	case CmdArm:
		if !m.state.CanTransitionTo(Armed) {
			return m.invalidTransition(cmd)
		}
		if msg := m.handler.OnArm(); msg != "" {
			return errorResponse(m.state, msg)
		}
		m.setState(Armed)
		return success(m.state, "armed")

	case CmdStart:
		if !m.state.CanTransitionTo(Running) {
			return m.invalidTransition(cmd)
		}
		if msg := m.handler.OnStart(cmd.RunNumber); msg != "" {
			return errorResponse(m.state, msg)
		}
		m.runNumber = cmd.RunNumber
		m.setState(Running)
		return successWithRun(m.state, "running", m.runNumber)

	case CmdStop:
		if m.state != Running || !m.state.CanTransitionTo(Configured) {
			return m.invalidTransition(cmd)
		}
		if msg := m.handler.OnStop(); msg != "" {
			return errorResponse(m.state, msg)
		}
		m.setState(Configured)
		return success(m.state, "stopped")

	case CmdReset:
		if !m.state.CanTransitionTo(Idle) {
			return m.invalidTransition(cmd)
		}
		if msg := m.handler.OnReset(); msg != "" {
			return errorResponse(m.state, msg)
		}
		m.run = nil
		m.runNumber = 0
		m.failMsg = ""
		m.setState(Idle)
		return success(m.state, "reset")

	case CmdGetStatus:
		details := m.handler.StatusDetails()
		if m.state == Error && m.failMsg != "" {
			details = m.failMsg
		}
		resp := success(m.state, details)
		if m.run != nil {
			run := m.runNumber
			resp.RunNumber = &run
		}
		metrics := m.handler.Metrics()
		return resp.WithMetrics(metrics)

	case CmdUpdateEmulatorConfig:
		cfg := EmulatorRuntimeConfig{}
		if cmd.EmulatorCfg != nil {
			cfg = *cmd.EmulatorCfg
		}
		if msg := m.handler.OnUpdateEmulatorConfig(cfg); msg != "" {
			return errorResponse(m.state, msg)
		}
		return success(m.state, "emulator config updated")

	default:
		return errorResponse(m.state, "unknown command: "+string(cmd.Kind))
	}
}

func (m *Machine) invalidTransition(cmd Command) CommandResponse {
	return errorResponse(m.state, "invalid transition: cannot "+string(cmd.Kind)+" from "+m.state.String())
}

func derefRunConfig(cfg *RunConfig) RunConfig {
	if cfg == nil {
		return RunConfig{}
	}
	return *cfg
}
