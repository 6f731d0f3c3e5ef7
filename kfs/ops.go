package kfs

import (
	"time"
)

const (
	OpOpen = iota
	OpClose
	OpRead
	OpWrite
	OpSeek
	OpLink
	OpUnlink
	OpStatus
	OpCopy
	OpPipe
	OpSocket
	OpConnect
	OpBind
	OpListen
	OpAccept
	OpReceive
	OpTransmit
	OpClone
	OpRemove
	OpReadDir
	OpRecover
	nOps
)

var opNames = [nOps]string{
	OpOpen:     "open",
	OpClose:    "close",
	OpRead:     "read",
	OpWrite:    "write",
	OpSeek:     "seek",
	OpLink:     "link",
	OpUnlink:   "unlink",
	OpStatus:   "status",
	OpCopy:     "copy",
	OpPipe:     "pipe",
	OpSocket:   "socket",
	OpConnect:  "connect",
	OpBind:     "bind",
	OpListen:   "listen",
	OpAccept:   "accept",
	OpReceive:  "receive",
	OpTransmit: "transmit",
	OpClone:    "clone",
	OpRemove:   "remove",
	OpReadDir:  "readdir",
	OpRecover:  "recover",
}

func (e *Engine) record(op int, start time.Time) {
	e.ops[op].Record(start)
}
