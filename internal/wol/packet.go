// Package wol builds and broadcasts Wake-on-LAN magic packets.
package wol

import (
	"encoding/hex"
	"fmt"
	"net"
)

const (
	// Port is the well-known magic packet port (discard).
	Port = 9

	// DefaultAddr is the limited broadcast address on the magic packet port.
	DefaultAddr = "255.255.255.255:9"

	// PacketSize is 6 sync bytes plus 16 repetitions of a 6-byte MAC.
	PacketSize = syncLen + repeats*macLen

	syncLen = 6
	macLen  = 6
	repeats = 16
)

// MagicPacket is an immutable magic packet, optionally scoped to one
// network interface.
type MagicPacket struct {
	payload [PacketSize]byte
	iface   string
}

// Build lays out the packet for mac. It cannot fail.
func Build(mac [6]byte, iface string) MagicPacket {
	p := MagicPacket{iface: iface}
	for i := 0; i < syncLen; i++ {
		p.payload[i] = 0xFF
	}
	for off := syncLen; off < PacketSize; off += macLen {
		copy(p.payload[off:off+macLen], mac[:])
	}
	return p
}

// New builds a packet from a net.HardwareAddr, which must be 48 bits.
func New(mac net.HardwareAddr, iface string) (MagicPacket, error) {
	if len(mac) != macLen {
		return MagicPacket{}, fmt.Errorf("wol: hardware address %s is %d bytes, want 6", mac, len(mac))
	}
	var a [6]byte
	copy(a[:], mac)
	return Build(a, iface), nil
}

// ParseMAC parses any form accepted by net.ParseMAC, restricted to 48-bit
// addresses.
func ParseMAC(s string) ([6]byte, error) {
	var a [6]byte
	hw, err := net.ParseMAC(s)
	if err != nil {
		return a, fmt.Errorf("parse mac %q: %w", s, err)
	}
	if len(hw) != macLen {
		return a, fmt.Errorf("parse mac %q: %d bytes, want 6", s, len(hw))
	}
	copy(a[:], hw)
	return a, nil
}

// Bytes returns a copy of the 102-byte payload.
func (p MagicPacket) Bytes() []byte {
	b := make([]byte, PacketSize)
	copy(b, p.payload[:])
	return b
}

// Interface returns the egress interface name, empty for default routing.
func (p MagicPacket) Interface() string {
	return p.iface
}

// HardwareAddr returns the target address encoded in the packet.
func (p MagicPacket) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, macLen)
	copy(hw, p.payload[syncLen:syncLen+macLen])
	return hw
}

func (p MagicPacket) String() string {
	if p.iface == "" {
		return p.HardwareAddr().String()
	}
	return p.HardwareAddr().String() + "%" + p.iface
}

// Hex returns the payload as lowercase hex.
func (p MagicPacket) Hex() string {
	return hex.EncodeToString(p.payload[:])
}

// Decode validates a received payload and extracts the target address.
// A valid payload is at least PacketSize bytes: six 0xFF bytes followed by
// sixteen identical 6-byte repetitions.
func Decode(b []byte) (net.HardwareAddr, bool) {
	if len(b) < PacketSize {
		return nil, false
	}
	for i := 0; i < syncLen; i++ {
		if b[i] != 0xFF {
			return nil, false
		}
	}
	first := b[syncLen : syncLen+macLen]
	for i := 1; i < repeats; i++ {
		off := syncLen + i*macLen
		for j := 0; j < macLen; j++ {
			if b[off+j] != first[j] {
				return nil, false
			}
		}
	}
	hw := make(net.HardwareAddr, macLen)
	copy(hw, first)
	return hw, true
}
