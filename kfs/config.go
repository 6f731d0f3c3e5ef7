package kfs

import (
	"github.com/mit-pdos/go-kfs/device"
	"github.com/mit-pdos/go-kfs/socket"
)

// Config sizes the engine's tables and the file system layout. Mkfs and
// MkEngine must agree on MaxInodes and NDataBlocks.
type Config struct {
	InodeCacheSize uint64
	BlockCacheSize uint64
	MaxInodes      uint64
	NDataBlocks    uint64 // data blocks covered by the bitmap
	MaxFiles       uint64 // descriptors per process
	MaxProcs       uint64
	MaxPipes       uint64
	MaxSockets     uint64

	// Journal reservations: ordinary operations, and close/unlink, which
	// may free a whole file.
	MaxOpBlocks     uint64
	MaxFreeOpBlocks uint64

	// Console backs the input and output descriptors; nil means standard
	// input and output.
	Console *device.Console
	// Sockets is the socket stack; nil means an in-memory loopback.
	Sockets socket.Layer
}

func DefaultConfig() Config {
	return Config{
		InodeCacheSize:  64,
		BlockCacheSize:  128,
		MaxInodes:       256,
		NDataBlocks:     65536,
		MaxFiles:        32,
		MaxProcs:        32,
		MaxPipes:        64,
		MaxSockets:      64,
		MaxOpBlocks:     8,
		MaxFreeOpBlocks: 32,
	}
}
