//go:build linux

package wol

import "golang.org/x/sys/unix"

func setBroadcast(fd uintptr) error {
	return unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
}

// bindToDevice restricts egress to iface (SO_BINDTODEVICE). Fails with
// ENODEV for unknown interfaces and EPERM without CAP_NET_RAW on older kernels.
func bindToDevice(fd uintptr, iface string) error {
	return unix.BindToDevice(int(fd), iface)
}
