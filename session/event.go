package session

import (
	"github.com/sarchlab/netsync/codec"
	"github.com/sarchlab/netsync/hooking"
	"github.com/sarchlab/netsync/timing"
)

// Hook positions raised by Host and Client.
var (
	HookPosMessageReceived = &hooking.HookPos{Name: "Message Received"}
	HookPosPacketRejected  = &hooking.HookPos{Name: "Packet Rejected"}
	HookPosPeerConnected   = &hooking.HookPos{Name: "Peer Connected"}
	HookPosPeerTimedOut    = &hooking.HookPos{Name: "Peer Timed Out"}
	HookPosPeerRemoved     = &hooking.HookPos{Name: "Peer Removed"}
	HookPosStateChange     = &hooking.HookPos{Name: "State Change"}
	HookPosReliableResend  = &hooking.HookPos{Name: "Reliable Resend"}
	HookPosReliableAcked   = &hooking.HookPos{Name: "Reliable Acked"}
	HookPosReliableExpired = &hooking.HookPos{Name: "Reliable Expired"}
)

// Outgoing is a message queued for sending.
type Outgoing struct {
	// Class is normally codec.ClassData. Control-class messages are allowed
	// for action codes of 16 and above; lower codes belong to the session
	// protocol.
	Class  codec.Class
	Action uint8

	// Time is stamped into the envelope as the send timestamp.
	Time timing.VTimeInSec

	Payload  codec.Message
	Reliable bool

	// Target and Broadcast are used by Host only. Target names one peer;
	// Broadcast sends an independent copy to every connected peer.
	Target    *Peer
	Broadcast bool
}

// MessageReceived is raised for every data message decoded by a session
// manager.
type MessageReceived struct {
	Envelope   codec.Envelope
	From       *Peer
	ReceivedAt timing.VTimeInSec

	// Message is the payload decoded with the type registered for the action
	// code.
	Message codec.Message

	// Obsolete is set when a newer sequence number from the same peer has
	// already been received. Consumers of unreliable state usually ignore
	// obsolete messages.
	Obsolete bool

	body []byte
}

// ParseData decodes the body again into a message chosen by the caller. The
// action code is the contract about which type that is; a mismatch is not
// detected beyond length checks.
func (m *MessageReceived) ParseData(into codec.Message) error {
	return codec.Unmarshal(m.body, into)
}

// Body returns the raw message body.
func (m *MessageReceived) Body() []byte {
	return m.body
}

// StateChange describes a client state transition to hooks and listeners.
type StateChange struct {
	From, To ConnectionState
	At       timing.VTimeInSec
}
