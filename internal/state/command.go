// Package state implements the component runtime shared by every pipeline
// stage: the five-state lifecycle, the command/response contract, and the
// extension-hook dispatch that lets each stage (source, merger, recorder,
// monitor, sink) plug in its own behavior without duplicating the state
// machine.
package state

import "fmt"

// ComponentState is the lifecycle state of a pipeline stage.
type ComponentState int

const (
	Idle ComponentState = iota
	Configured
	Armed
	Running
	Error
)

func (s ComponentState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Configured:
		return "Configured"
	case Armed:
		return "Armed"
	case Running:
		return "Running"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// MarshalJSON encodes the state as its string name so the command wire
// format reads naturally in logs and HTTP bodies.
func (s ComponentState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// CanTransitionTo reports whether the lifecycle has an edge from s to next.
// It checks the target state only; Machine.Handle additionally requires
// Configure to start from Idle and Stop to start from Running.
func (s ComponentState) CanTransitionTo(next ComponentState) bool {
	switch s {
	case Idle:
		return next == Configured
	case Configured:
		return next == Armed || next == Idle
	case Armed:
		return next == Running || next == Idle
	case Running:
		return next == Configured || next == Idle
	case Error:
		return next == Idle
	default:
		return false
	}
}

// RunConfig is attached to the Configure command and persisted as file
// header metadata by the recorder.
type RunConfig struct {
	RunNumber int    `json:"run_number"`
	Comment   string `json:"comment"`
	ExpName   string `json:"exp_name"`
}

// EmulatorRuntimeConfig carries the subset of a source emulator's settings
// that may be changed without a full Configure/Arm/Start cycle.
type EmulatorRuntimeConfig struct {
	EventsPerBatch  uint32 `json:"events_per_batch"`
	BatchIntervalMs uint64 `json:"batch_interval_ms"`
	EnableWaveform  bool   `json:"enable_waveform"`
	WaveformProbes  uint8  `json:"waveform_probes"`
	WaveformSamples uint32 `json:"waveform_samples"`
}

// CommandKind discriminates the Command union over the wire.
type CommandKind string

const (
	CmdConfigure            CommandKind = "Configure"
	CmdArm                  CommandKind = "Arm"
	CmdStart                CommandKind = "Start"
	CmdStop                 CommandKind = "Stop"
	CmdReset                CommandKind = "Reset"
	CmdGetStatus            CommandKind = "GetStatus"
	CmdUpdateEmulatorConfig CommandKind = "UpdateEmulatorConfig"
)

// Command is the tagged request union sent to a stage's command responder.
// Kind travels as a "kind" field beside the payload fields rather than as
// an outer key wrapping the payload. Configure carries RunConfig, Start
// carries RunNumber and UpdateEmulatorConfig carries EmulatorCfg; the other
// kinds carry no payload.
type Command struct {
	Kind        CommandKind            `json:"kind"`
	RunConfig   *RunConfig             `json:"run_config,omitempty"`
	RunNumber   uint32                 `json:"run_number,omitempty"`
	EmulatorCfg *EmulatorRuntimeConfig `json:"emulator_config,omitempty"`
}

func (c Command) String() string {
	switch c.Kind {
	case CmdConfigure:
		return fmt.Sprintf("Configure(%+v)", c.RunConfig)
	case CmdStart:
		return fmt.Sprintf("Start{run_number=%d}", c.RunNumber)
	case CmdUpdateEmulatorConfig:
		return fmt.Sprintf("UpdateEmulatorConfig(%+v)", c.EmulatorCfg)
	default:
		return string(c.Kind)
	}
}

// MetricsSnapshot is the immutable metrics view embedded in a status reply.
// Defined here (rather than imported from package metrics) to avoid an
// import cycle; internal/metrics.Snapshot converts to this shape.
type MetricsSnapshot struct {
	EventsProcessed  uint64  `json:"events_processed"`
	BytesTransferred uint64  `json:"bytes_transferred"`
	QueueSize        uint32  `json:"queue_size"`
	QueueMax         uint32  `json:"queue_max"`
	EventRate        float64 `json:"event_rate"`
	DataRate         float64 `json:"data_rate"`
}

// CommandResponse is the reply to every Command.
type CommandResponse struct {
	Success   bool             `json:"success"`
	State     ComponentState   `json:"state"`
	Message   string           `json:"message"`
	RunNumber *uint32          `json:"run_number,omitempty"`
	ErrorCode *uint32          `json:"error_code,omitempty"`
	Metrics   *MetricsSnapshot `json:"metrics,omitempty"`
}

func success(state ComponentState, msg string) CommandResponse {
	return CommandResponse{Success: true, State: state, Message: msg}
}

func successWithRun(state ComponentState, msg string, run uint32) CommandResponse {
	r := run
	return CommandResponse{Success: true, State: state, Message: msg, RunNumber: &r}
}

func errorResponse(state ComponentState, msg string) CommandResponse {
	return CommandResponse{Success: false, State: state, Message: msg}
}

// WithMetrics attaches a metrics snapshot to a response, returning a copy.
func (r CommandResponse) WithMetrics(m MetricsSnapshot) CommandResponse {
	r.Metrics = &m
	return r
}
