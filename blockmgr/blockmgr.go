// Package blockmgr implements the bitmap allocator over a blockdev.Device:
// it formats the device into {superblock | free-block bitmap | inode table |
// data blocks} and hands out/reclaims data blocks by scanning the bitmap.
//
// Grounded on block_manager in original_source/inode_manager.cc, generalized
// from a fixed compiled-in BLOCK_NUM/INODE_NUM to values fixed at Format
// time, and on the teacher's util/bitmap scanning style (internal/bitmap
// here).
package blockmgr

import (
	"encoding/binary"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
	"github.com/Daniel-LU-JC/CSE-DFS/internal/bitmap"
)

var log = logrus.WithField("component", "blockmgr")

// InodeOnDiskSize is the fixed size, in bytes, of one packed on-disk inode
// record. It is declared here (rather than imported from package inode) to
// avoid a layering cycle: blockmgr must know it to lay out the inode table,
// and inode must know blockmgr's layout to address it.
const InodeOnDiskSize = 80

// superblockSize is how many bytes of block 0 the superblock occupies; the
// remainder of the block is unused padding.
const superblockSize = 16

// Superblock describes the fixed, immutable-after-format layout of a device.
type Superblock struct {
	TotalBytes uint64
	NBlocks    uint32
	NInodes    uint32
}

func (s Superblock) toBytes(blockSize int) []byte {
	b := make([]byte, blockSize)
	binary.LittleEndian.PutUint64(b[0:8], s.TotalBytes)
	binary.LittleEndian.PutUint32(b[8:12], s.NBlocks)
	binary.LittleEndian.PutUint32(b[12:16], s.NInodes)
	return b
}

func superblockFromBytes(b []byte) (Superblock, error) {
	if len(b) < superblockSize {
		return Superblock{}, fmt.Errorf("blockmgr: superblock block too short: %d bytes", len(b))
	}
	return Superblock{
		TotalBytes: binary.LittleEndian.Uint64(b[0:8]),
		NBlocks:    binary.LittleEndian.Uint32(b[8:12]),
		NInodes:    binary.LittleEndian.Uint32(b[12:16]),
	}, nil
}

// ErrOutOfSpace is the sentinel condition for AllocBlock exhaustion; per
// spec.md §4.1 the caller sees it as a returned error, the zero block id
// being reserved (never allocatable, since block 0 is always the superblock).
var ErrOutOfSpace = fmt.Errorf("blockmgr: no free blocks")

// Manager is the bitmap allocator over a device formatted per this package's
// layout. It is not safe for concurrent use: callers (the inode manager, and
// above it the extent service) serialize access per spec.md §5.
type Manager struct {
	dev    blockdev.Device
	sb     Superblock
	bitmap *bitmap.Bitmap

	bitmapStartBlock uint32
	bitmapBlocks     uint32
	inodeTableStart  uint32
	inodeTableBlocks uint32
	dataStart        uint32
}

func layout(numBlocks, blockSize int, nInodes uint32) (bitmapBlocks, inodeTableBlocks uint32) {
	bitmapBytes := (numBlocks + 7) / 8
	bitmapBlocks = uint32((bitmapBytes + blockSize - 1) / blockSize)
	// package inode packs blockSize/InodeOnDiskSize whole records per table
	// block and never splits a record across two blocks.
	if ipb := uint32(blockSize / InodeOnDiskSize); ipb > 0 {
		inodeTableBlocks = (nInodes + ipb - 1) / ipb
	} else {
		inodeTableBytes := int(nInodes) * InodeOnDiskSize
		inodeTableBlocks = uint32((inodeTableBytes + blockSize - 1) / blockSize)
	}
	return
}

// Format lays out a fresh superblock, bitmap, and inode table region over
// dev and returns a Manager ready to allocate data blocks. The region
// bits for {superblock, bitmap, inode table} are marked permanently
// allocated and never offered by AllocBlock, matching spec.md's free-block
// bitmap invariant.
func Format(dev blockdev.Device, nInodes uint32) (*Manager, error) {
	blockSize := dev.BlockSize()
	numBlocks := int(dev.NumBlocks())
	bitmapBlocks, inodeTableBlocks := layout(numBlocks, blockSize, nInodes)

	reserved := 1 + bitmapBlocks + inodeTableBlocks
	if uint32(numBlocks) <= reserved {
		return nil, fmt.Errorf("blockmgr: device has %d blocks, needs more than %d for superblock+bitmap+inode table", numBlocks, reserved)
	}

	sb := Superblock{
		TotalBytes: uint64(numBlocks) * uint64(blockSize),
		NBlocks:    uint32(numBlocks),
		NInodes:    nInodes,
	}

	m := &Manager{
		dev:              dev,
		sb:               sb,
		bitmap:           bitmap.New(numBlocks),
		bitmapStartBlock: 1,
		bitmapBlocks:     bitmapBlocks,
		inodeTableStart:  1 + bitmapBlocks,
		inodeTableBlocks: inodeTableBlocks,
		dataStart:        reserved,
	}
	for i := uint32(0); i < reserved; i++ {
		if err := m.bitmap.Set(int(i)); err != nil {
			return nil, err
		}
	}

	if err := dev.WriteBlock(0, sb.toBytes(blockSize)); err != nil {
		return nil, fmt.Errorf("blockmgr: write superblock: %w", err)
	}
	if err := m.flushBitmap(); err != nil {
		return nil, err
	}
	// zero the inode table so every slot starts type==0 (free), per I1.
	zero := make([]byte, blockSize)
	for i := uint32(0); i < inodeTableBlocks; i++ {
		if err := dev.WriteBlock(m.inodeTableStart+i, zero); err != nil {
			return nil, fmt.Errorf("blockmgr: zero inode table block %d: %w", i, err)
		}
	}

	log.WithFields(logrus.Fields{
		"nblocks": numBlocks, "ninodes": nInodes,
		"bitmap_blocks": bitmapBlocks, "inode_table_blocks": inodeTableBlocks,
	}).Info("formatted device")
	return m, nil
}

// Open reconstructs a Manager from a device already formatted by Format,
// reading the superblock to recover the layout. The on-disk bitmap is NOT
// read: the returned Manager's bitmap has only the reserved region marked
// used, exactly as Format leaves it, so data blocks held by existing inodes
// are not marked used (mirroring block_manager's constructor in
// original_source/inode_manager.cc, which always starts `using_blocks` from
// a blank slate). The recovery path (extent.Open) does not call Open; it
// formats afresh and replays the WAL/checkpoint, per DESIGN.md's "Device
// trust across restarts" resolution.
func Open(dev blockdev.Device) (*Manager, error) {
	blockSize := dev.BlockSize()
	raw := make([]byte, blockSize)
	if err := dev.ReadBlock(0, raw); err != nil {
		return nil, fmt.Errorf("blockmgr: read superblock: %w", err)
	}
	sb, err := superblockFromBytes(raw)
	if err != nil {
		return nil, err
	}
	if sb.NBlocks != dev.NumBlocks() {
		return nil, fmt.Errorf("blockmgr: superblock says %d blocks, device has %d", sb.NBlocks, dev.NumBlocks())
	}

	bitmapBlocks, inodeTableBlocks := layout(int(sb.NBlocks), blockSize, sb.NInodes)
	m := &Manager{
		dev:              dev,
		sb:               sb,
		bitmap:           bitmap.New(int(sb.NBlocks)),
		bitmapStartBlock: 1,
		bitmapBlocks:     bitmapBlocks,
		inodeTableStart:  1 + bitmapBlocks,
		inodeTableBlocks: inodeTableBlocks,
		dataStart:        1 + bitmapBlocks + inodeTableBlocks,
	}
	for i := uint32(0); i < m.dataStart; i++ {
		if err := m.bitmap.Set(int(i)); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Manager) flushBitmap() error {
	blockSize := m.dev.BlockSize()
	raw := m.bitmap.Bytes()
	for i := uint32(0); i < m.bitmapBlocks; i++ {
		start := int(i) * blockSize
		end := start + blockSize
		buf := make([]byte, blockSize)
		if start < len(raw) {
			copy(buf, raw[start:min(end, len(raw))])
		}
		if err := m.dev.WriteBlock(m.bitmapStartBlock+i, buf); err != nil {
			return fmt.Errorf("blockmgr: flush bitmap block %d: %w", i, err)
		}
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Superblock returns the device's immutable superblock.
func (m *Manager) Superblock() Superblock { return m.sb }

// InodeTableBlock returns the absolute block id of the idx-th inode table block.
func (m *Manager) InodeTableBlock(idx uint32) uint32 { return m.inodeTableStart + idx }

// InodeTableBlocks returns how many blocks the inode table spans.
func (m *Manager) InodeTableBlocks() uint32 { return m.inodeTableBlocks }

// ReadBlock reads a raw block through the underlying device.
func (m *Manager) ReadBlock(id uint32, buf []byte) error { return m.dev.ReadBlock(id, buf) }

// WriteBlock writes a raw block through the underlying device.
func (m *Manager) WriteBlock(id uint32, buf []byte) error { return m.dev.WriteBlock(id, buf) }

// BlockSize returns the device's fixed block size.
func (m *Manager) BlockSize() int { return m.dev.BlockSize() }

// AllocBlock performs a linear first-fit scan for a free block starting at
// the first data block, marks it used, and returns its id. Returns
// ErrOutOfSpace on exhaustion, logging the condition the way the source
// prints "ERROR: no more blocks" — but as a structured log line, not stdout.
func (m *Manager) AllocBlock() (uint32, error) {
	loc := m.bitmap.FirstFree(int(m.dataStart))
	if loc < 0 {
		log.Warn("block allocator exhausted")
		return 0, ErrOutOfSpace
	}
	if err := m.bitmap.Set(loc); err != nil {
		return 0, err
	}
	if err := m.flushBitmap(); err != nil {
		return 0, err
	}
	return uint32(loc), nil
}

// FreeBlock clears the bit for id. Idempotent; no double-free detection,
// matching spec.md §4.1.
func (m *Manager) FreeBlock(id uint32) error {
	if err := m.bitmap.Clear(int(id)); err != nil {
		return err
	}
	return m.flushBitmap()
}
