// Package blockdev implements the fixed-size block array that every layer
// above it (blockmgr, inode, persister) ultimately reads and writes through:
// a byte-addressable, block-granular random-access store, either held in
// memory or backed by a file/block device. It plays the role the source's
// bare `disk` class (inode_manager.cc) plays, generalized to the storage
// abstraction the teacher's backend package uses for its own disk images.
package blockdev

import (
	"errors"
	"fmt"
)

// DefaultBlockSize is the block size used unless a device specifies otherwise.
const DefaultBlockSize = 512

var (
	// ErrOutOfRange is returned when a block id is not addressable by the device.
	ErrOutOfRange = errors.New("blockdev: block id out of range")
	// ErrShortBuffer is returned when a caller's buffer does not exactly match BlockSize.
	ErrShortBuffer = errors.New("blockdev: buffer length does not match block size")
)

// Device is a fixed-size array of equal-sized blocks, byte-addressable per
// block. Implementations need not be safe for concurrent use: blockmgr holds
// the only reference and serializes access the way spec.md §5 requires.
type Device interface {
	// ReadBlock copies exactly BlockSize() bytes from block id into buf.
	ReadBlock(id uint32, buf []byte) error
	// WriteBlock copies exactly BlockSize() bytes from buf into block id.
	WriteBlock(id uint32, buf []byte) error
	// NumBlocks returns the fixed block count the device was created with.
	NumBlocks() uint32
	// BlockSize returns the fixed per-block size in bytes.
	BlockSize() int
	// Sync flushes any buffered writes to stable storage.
	Sync() error
	// Close releases any underlying OS resources.
	Close() error
}

func checkBounds(id, numBlocks uint32, buf []byte, blockSize int) error {
	if id >= numBlocks {
		return fmt.Errorf("%w: id %d, have %d blocks", ErrOutOfRange, id, numBlocks)
	}
	if len(buf) != blockSize {
		return fmt.Errorf("%w: got %d, want %d", ErrShortBuffer, len(buf), blockSize)
	}
	return nil
}

// MemDevice is a pure in-memory block device, useful for tests and for
// ephemeral replicas that rebuild their state entirely from a replicated log.
type MemDevice struct {
	blockSize int
	blocks    [][]byte
}

var _ Device = (*MemDevice)(nil)

// NewMem allocates an in-memory device of numBlocks blocks of blockSize bytes each.
func NewMem(numBlocks uint32, blockSize int) *MemDevice {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &MemDevice{blockSize: blockSize, blocks: blocks}
}

func (d *MemDevice) NumBlocks() uint32 { return uint32(len(d.blocks)) }
func (d *MemDevice) BlockSize() int    { return d.blockSize }

func (d *MemDevice) ReadBlock(id uint32, buf []byte) error {
	if err := checkBounds(id, d.NumBlocks(), buf, d.blockSize); err != nil {
		return err
	}
	copy(buf, d.blocks[id])
	return nil
}

func (d *MemDevice) WriteBlock(id uint32, buf []byte) error {
	if err := checkBounds(id, d.NumBlocks(), buf, d.blockSize); err != nil {
		return err
	}
	copy(d.blocks[id], buf)
	return nil
}

func (d *MemDevice) Sync() error  { return nil }
func (d *MemDevice) Close() error { return nil }
