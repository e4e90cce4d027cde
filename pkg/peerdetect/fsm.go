package peerdetect

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// State tracks how far a version handshake has progressed.
type State int

const (
	// NotSent is the initial state, before the local version goes out.
	NotSent State = iota
	// SentVersion waits for the peer's version message.
	SentVersion
	// ReceivedVersion waits for the peer's verack.
	ReceivedVersion
	// ReceivedVerack is success: the peer completed its half of the
	// handshake.
	ReceivedVerack
	// Unexpected records traffic that no waiting state accepts.
	Unexpected
	// Disconnected records a connection that ended before verack.
	Disconnected
)

func (s State) String() string {
	switch s {
	case NotSent:
		return "not-sent"
	case SentVersion:
		return "sent-version"
	case ReceivedVersion:
		return "received-version"
	case ReceivedVerack:
		return "received-verack"
	case Unexpected:
		return "unexpected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Transition returns the handshake state after msg arrives. SentVersion
// advances on a version message and ReceivedVersion on a verack; other
// traffic in those two states is ignored. ReceivedVerack absorbs everything.
// A message in any remaining state marks the handshake unexpected.
func Transition(state State, msg wire.Message) State {
	switch state {
	case SentVersion:
		if _, ok := msg.(*wire.MsgVersion); ok {
			return ReceivedVersion
		}
		return SentVersion
	case ReceivedVersion:
		if _, ok := msg.(*wire.MsgVerAck); ok {
			return ReceivedVerack
		}
		return ReceivedVersion
	case ReceivedVerack:
		return ReceivedVerack
	default:
		return Unexpected
	}
}
