//  wal implements write-ahead logging
//
//  The layout of the journal:
//  [ header | logged block 0 | logged block 1 | ... | logged block LOGSZ-1 ]
//    ^        ^
//    LOGHDR   LOGSTART
//
//  Operations reserve journal space when they begin and hand every block
//  they dirty to the in-memory group log, where later writes to the same
//  block absorb earlier ones. The last operation of a group to end commits
//  the whole group: logged blocks, then the header (the commit point), then
//  the home locations, then an empty header. New operations wait while a
//  commit is in progress or while the group's reservations would overflow
//  the journal.
package wal

import (
	"github.com/mit-pdos/go-kfs/common"
)

const (
	LOGSZ         = common.LOGSZ
	LOGDISKBLOCKS = LOGSZ + 1 // 1 for the header

	HDRMETA  = uint64(8) // space for the block count
	HDRADDRS = LOGSZ
	HDRSUM   = HDRMETA + HDRADDRS*8 // offset of the checksum
	SUMSZ    = uint64(32)
)

const (
	LOGHDR   = common.Bnum(0)
	LOGSTART = common.Bnum(1)
)

