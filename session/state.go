package session

// ConnectionState is the lifecycle state of a peer or a client connection.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected

	// StateTimedOut is entered when no traffic arrives within the inactivity
	// window. It is terminal until the peer is removed and recreated.
	StateTimedOut

	// StateConnectionFailed is entered by a client whose handshake attempts
	// ran out without an acknowledgment. It is terminal until Connect is
	// called again.
	StateConnectionFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateTimedOut:
		return "TimedOut"
	case StateConnectionFailed:
		return "ConnectionFailed"
	default:
		return "Unknown"
	}
}

// RemovalReason tells why a host dropped a peer.
type RemovalReason int

// Removal reasons.
const (
	RemovedByHost RemovalReason = iota
	RemovedTimedOut
	RemovedDisconnected
	RemovedReconnected
)

func (r RemovalReason) String() string {
	switch r {
	case RemovedByHost:
		return "removed"
	case RemovedTimedOut:
		return "timed out"
	case RemovedDisconnected:
		return "disconnected"
	case RemovedReconnected:
		return "reconnected"
	default:
		return "unknown"
	}
}
