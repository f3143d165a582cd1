package session

import "errors"

// Control action codes below firstApplicationControl are reserved for the
// session protocol. The acked sequence number of an Ack travels in the
// envelope's sequence field; none of them has a body.
const (
	actionHandshake    uint8 = 1
	actionHandshakeAck uint8 = 2
	actionAck          uint8 = 3
	actionKeepAlive    uint8 = 4
	actionDisconnect   uint8 = 5

	firstApplicationControl uint8 = 16
)

var (
	errUnknownPeer    = errors.New("session: packet from unknown peer")
	errUnknownControl = errors.New("session: unknown control action")
	errUnexpectedSrc  = errors.New("session: packet from unexpected source")
)
