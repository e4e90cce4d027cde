// Package peerdetect probes remote addresses for live bitcoin nodes by
// running the first half of the version handshake.
//
// The probe sends a version message and watches the reply stream: a peer
// that answers with its own version followed by a verack is, with high
// probability, a real node. Nothing past verack is exchanged.
package peerdetect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
	"go.uber.org/zap"
)

// defaultTimeout bounds dial plus handshake when Config.Timeout is zero.
const defaultTimeout = 5 * time.Second

// Config carries the optional detector settings.
type Config struct {
	// Timeout bounds the whole probe, dial included. Zero selects the
	// default of five seconds.
	Timeout time.Duration
}

// Detector probes addresses on one bitcoin network.
type Detector struct {
	params  *chaincfg.Params
	logger  *zap.Logger
	timeout time.Duration
}

// New builds a detector for the given network.
func New(params *chaincfg.Params, logger *zap.Logger, cfg Config) (*Detector, error) {
	if params == nil {
		return nil, errors.New("network params are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Detector{params: params, logger: logger, timeout: timeout}, nil
}

// Check reports whether a bitcoin node answers at addr. The peer must reply
// to our version message with its own version and a verack within the
// detector's timeout. An unreachable address returns an error; a reachable
// peer that fails, stalls, or drops the handshake returns (false, nil).
func (d *Detector) Check(ctx context.Context, addr string) (bool, error) {
	state, err := d.probe(ctx, addr)
	if err != nil {
		return false, err
	}
	d.logger.Debug("peer probe finished",
		zap.String("addr", addr),
		zap.Stringer("state", state))
	return state == ReceivedVerack, nil
}

// probe drives the handshake and reports the state it ended in. Frames
// carrying commands the codec does not know are skipped; whole-connection
// failures after dialing count as a disconnect, not an error.
func (d *Detector) probe(ctx context.Context, addr string) (State, error) {
	dialer := net.Dialer{Timeout: d.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Disconnected, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	// Context expiry closes the connection, which unblocks any pending
	// read or write; the conn deadline covers the probe timeout alone.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.SetDeadline(time.Now().Add(d.timeout)); err != nil {
		return Disconnected, fmt.Errorf("set probe deadline: %w", err)
	}

	version, err := d.versionMsg(conn)
	if err != nil {
		return Disconnected, err
	}
	if err := wire.WriteMessage(conn, version, wire.ProtocolVersion, d.params.Net); err != nil {
		if ctx.Err() != nil {
			return Disconnected, ctx.Err()
		}
		d.logger.Debug("version send failed", zap.String("addr", addr), zap.Error(err))
		return Disconnected, nil
	}
	state := SentVersion

	for {
		msg, _, err := wire.ReadMessage(conn, wire.ProtocolVersion, d.params.Net)
		if err != nil {
			if ctx.Err() != nil {
				return state, ctx.Err()
			}
			if errors.Is(err, wire.ErrUnknownMessage) {
				continue
			}
			d.logger.Debug("handshake ended early",
				zap.String("addr", addr),
				zap.Stringer("state", state),
				zap.Error(err))
			return Disconnected, nil
		}
		state = Transition(state, msg)
		switch state {
		case ReceivedVerack, Unexpected:
			return state, nil
		}
	}
}

// versionMsg builds the probe's version announcement: best height zero,
// relay disabled.
func (d *Detector) versionMsg(conn net.Conn) (*wire.MsgVersion, error) {
	nonce, err := wire.RandomUint64()
	if err != nil {
		return nil, fmt.Errorf("generate version nonce: %w", err)
	}
	theirs := &wire.NetAddress{}
	if tcp, ok := conn.RemoteAddr().(*net.TCPAddr); ok {
		theirs = wire.NewNetAddress(tcp, 0)
	}
	msg := wire.NewMsgVersion(&wire.NetAddress{}, theirs, nonce, 0)
	msg.DisableRelayTx = true
	return msg, nil
}
