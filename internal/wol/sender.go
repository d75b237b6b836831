package wol

import (
	"context"
	"fmt"
	"net"
	"syscall"
)

// Sender transmits a magic packet.
type Sender interface {
	Send(p MagicPacket) error
}

// NetworkError operations.
const (
	OpResolve = "resolve"
	OpSocket  = "socket"
	OpBind    = "bind interface"
	OpSend    = "send"
)

// NetworkError wraps the OS error behind a failed send.
type NetworkError struct {
	Op        string
	Interface string
	Err       error
}

func (e *NetworkError) Error() string {
	if e.Interface != "" {
		return fmt.Sprintf("wol: %s (%s): %v", e.Op, e.Interface, e.Err)
	}
	return fmt.Sprintf("wol: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// UDPSender broadcasts each packet as a single datagram from a fresh socket.
// Sockets are never reused.
type UDPSender struct {
	// Addr is the destination. Empty means DefaultAddr.
	Addr string
}

// NewUDPSender returns a sender for addr (DefaultAddr if empty).
func NewUDPSender(addr string) *UDPSender {
	return &UDPSender{Addr: addr}
}

// Send opens a socket on 0.0.0.0:0, enables broadcast, binds it to the
// packet's interface if one is named, and writes the payload.
func (s *UDPSender) Send(p MagicPacket) error {
	addr := s.Addr
	if addr == "" {
		addr = DefaultAddr
	}
	raddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return &NetworkError{Op: OpResolve, Err: err}
	}

	var bindErr error
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var optErr error
			err := c.Control(func(fd uintptr) {
				if optErr = setBroadcast(fd); optErr != nil {
					return
				}
				if p.iface != "" {
					bindErr = bindToDevice(fd, p.iface)
				}
			})
			if err != nil {
				return err
			}
			if optErr != nil {
				return optErr
			}
			return bindErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp4", "0.0.0.0:0")
	if err != nil {
		if bindErr != nil {
			return &NetworkError{Op: OpBind, Interface: p.iface, Err: bindErr}
		}
		return &NetworkError{Op: OpSocket, Err: err}
	}
	defer conn.Close()

	if _, err := conn.WriteTo(p.payload[:], raddr); err != nil {
		return &NetworkError{Op: OpSend, Interface: p.iface, Err: err}
	}
	return nil
}
