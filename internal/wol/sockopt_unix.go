//go:build unix && !linux

package wol

import (
	"log"
	"sync"

	"golang.org/x/sys/unix"
)

var bindOnce sync.Once

func setBroadcast(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
}

// SO_BINDTODEVICE is Linux-only; fall back to default routing.
func bindToDevice(fd uintptr, iface string) error {
	bindOnce.Do(func() {
		log.Printf("wol: interface binding not supported on this platform, ignoring %q", iface)
	})
	return nil
}
