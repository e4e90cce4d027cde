package peerdetect

import (
	"testing"

	"github.com/btcsuite/btcd/wire"
)

func TestTransition(t *testing.T) {
	version := &wire.MsgVersion{}
	verack := wire.NewMsgVerAck()
	ping := wire.NewMsgPing(7)

	tests := []struct {
		name  string
		state State
		msg   wire.Message
		want  State
	}{
		{"version answers sent version", SentVersion, version, ReceivedVersion},
		{"verack too early is ignored", SentVersion, verack, SentVersion},
		{"ping while waiting for version is ignored", SentVersion, ping, SentVersion},
		{"verack completes handshake", ReceivedVersion, verack, ReceivedVerack},
		{"duplicate version is ignored", ReceivedVersion, version, ReceivedVersion},
		{"sendaddrv2 before verack is ignored", ReceivedVersion, wire.NewMsgSendAddrV2(), ReceivedVersion},
		{"verack state absorbs version", ReceivedVerack, version, ReceivedVerack},
		{"verack state absorbs ping", ReceivedVerack, ping, ReceivedVerack},
		{"traffic before send is unexpected", NotSent, version, Unexpected},
		{"unexpected stays unexpected", Unexpected, verack, Unexpected},
		{"traffic after disconnect is unexpected", Disconnected, ping, Unexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transition(tt.state, tt.msg); got != tt.want {
				t.Errorf("Transition(%v, %s) = %v, want %v", tt.state, tt.msg.Command(), got, tt.want)
			}
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{NotSent, "not-sent"},
		{SentVersion, "sent-version"},
		{ReceivedVersion, "received-version"},
		{ReceivedVerack, "received-verack"},
		{Unexpected, "unexpected"},
		{Disconnected, "disconnected"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}
