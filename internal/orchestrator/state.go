package orchestrator

// State is a phase in the lifecycle of one exchange. Transitions are strictly
// forward; Failed is reachable from any phase.
type State string

const (
	StateReceived         State = "RECEIVED"
	StateContextAssembled State = "CONTEXT_ASSEMBLED"
	StateDispatched       State = "DISPATCHED"
	StateStreaming        State = "STREAMING"
	StateCompleted        State = "COMPLETED"
	StateLogged           State = "LOGGED"
	StateMemoryUpdated    State = "MEMORY_UPDATED"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// StateChange is the payload published on the exchange_state topic.
type StateChange struct {
	SessionID string
	State     State
}
