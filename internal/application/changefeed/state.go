package changefeed

type State int32

const (
	StateDisconnected State = iota
	StateSubscribing
	StateStreaming
	StateReconnecting
	StateGapDetected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateReconnecting:
		return "reconnecting"
	case StateGapDetected:
		return "gap_detected"
	default:
		return "unknown"
	}
}
