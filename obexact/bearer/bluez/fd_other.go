//go:build !linux

package bluez

import (
	"os"
)

func fileFromFd(fd int) (*os.File, error) {
	return os.NewFile(uintptr(fd), "bluez"), nil
}
