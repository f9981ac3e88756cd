//go:build !linux

package btsock

import (
	"io"
	"runtime"

	"mynewt.apache.org/obexmgr/obexact/goep"
	"mynewt.apache.org/obexmgr/obexact/obexutil"
)

func dial(peer string, rec goep.ServiceRecord) (io.ReadWriteCloser, error) {
	return nil, obexutil.FmtXportError(
		"bluetooth sockets not supported on %s", runtime.GOOS)
}
