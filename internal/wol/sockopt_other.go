//go:build !unix

package wol

import (
	"log"
	"sync"
)

var bindOnce sync.Once

// The runtime already enables broadcast on UDP sockets here.
func setBroadcast(fd uintptr) error {
	return nil
}

func bindToDevice(fd uintptr, iface string) error {
	bindOnce.Do(func() {
		log.Printf("wol: interface binding not supported on this platform, ignoring %q", iface)
	})
	return nil
}
