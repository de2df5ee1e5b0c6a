package feed

// State is the connection lifecycle state of a Client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateStreaming
	StateBackoff
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}
