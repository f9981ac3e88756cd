package bluez

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Wraps a socket received from BlueZ.  The fd is made non-blocking so that
// it joins the runtime poller and Close interrupts a pending read.
func fileFromFd(fd int) (*os.File, error) {
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, errors.Wrap(err, "set nonblock")
	}
	return os.NewFile(uintptr(fd), "bluez"), nil
}
