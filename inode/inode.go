// Package inode implements the extent-id-to-bytes mapping: allocating and
// freeing fixed-size inode records, and reading/writing their variable-length
// content through a blockmgr.Manager's direct + single-indirect block
// addressing.
//
// Grounded on inode_manager in original_source/inode_manager.cc, with the
// manual on-disk field layout and decode/encode style borrowed from the
// teacher's filesystem/ext4/inode.go (inodeFromBytes/toBytes).
package inode

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Type is the extent kind stored in an inode's fixed type field.
type Type uint16

const (
	// TypeFree marks an unallocated inode slot (I1: type == 0 iff free).
	TypeFree Type = 0
	// TypeFile is a regular file extent.
	TypeFile Type = 1
	// TypeDir is a directory extent (flat text encoding, see fsclient).
	TypeDir Type = 2
	// TypeSymlink is a symlink extent (raw target string payload).
	TypeSymlink Type = 3
	// typeXattr is an internal bookkeeping extent holding one inode's
	// extended-attribute side table; never returned to extent-service callers.
	typeXattr Type = 4
)

// NDirect is the number of direct block pointers in an inode, before the
// single indirect block extends addressing further.
const NDirect = 12

// blockIDSize is sizeof(block_id) on disk, used to compute how many further
// block ids a single indirect block can hold.
const blockIDSize = 4

// on-disk field offsets within one InodeOnDiskSize-byte record.
const (
	offType        = 0
	offSize        = 4
	offATime       = 12
	offMTime       = 16
	offCTime       = 20
	offXattrExtent = 24
	offBlocks      = 28
)

// OnDisk is the fixed-size record persisted per inode slot.
type OnDisk struct {
	Type        Type
	Size        uint64
	ATime       time.Time
	MTime       time.Time
	CTime       time.Time
	XattrExtent uint32
	Blocks      [NDirect + 1]uint32
}

// MaxExtentSize is the largest payload a single extent can hold: NDirect
// direct blocks plus one indirect block's worth of further block pointers,
// per spec.md invariant I2.
func MaxExtentSize(blockSize int) uint64 {
	indirectCount := uint64(blockSize / blockIDSize)
	return (uint64(NDirect) + indirectCount) * uint64(blockSize)
}

func encodeBytes(o OnDisk, size int) []byte {
	b := make([]byte, size)
	binary.LittleEndian.PutUint16(b[offType:], uint16(o.Type))
	binary.LittleEndian.PutUint64(b[offSize:], o.Size)
	binary.LittleEndian.PutUint32(b[offATime:], uint32(o.ATime.Unix()))
	binary.LittleEndian.PutUint32(b[offMTime:], uint32(o.MTime.Unix()))
	binary.LittleEndian.PutUint32(b[offCTime:], uint32(o.CTime.Unix()))
	binary.LittleEndian.PutUint32(b[offXattrExtent:], o.XattrExtent)
	for i, id := range o.Blocks {
		binary.LittleEndian.PutUint32(b[offBlocks+i*blockIDSize:], id)
	}
	return b
}

func decodeBytes(b []byte) (OnDisk, error) {
	if len(b) < offBlocks+(NDirect+1)*blockIDSize {
		return OnDisk{}, fmt.Errorf("inode: record too short: %d bytes", len(b))
	}
	var o OnDisk
	o.Type = Type(binary.LittleEndian.Uint16(b[offType:]))
	o.Size = binary.LittleEndian.Uint64(b[offSize:])
	o.ATime = time.Unix(int64(binary.LittleEndian.Uint32(b[offATime:])), 0).UTC()
	o.MTime = time.Unix(int64(binary.LittleEndian.Uint32(b[offMTime:])), 0).UTC()
	o.CTime = time.Unix(int64(binary.LittleEndian.Uint32(b[offCTime:])), 0).UTC()
	o.XattrExtent = binary.LittleEndian.Uint32(b[offXattrExtent:])
	for i := range o.Blocks {
		o.Blocks[i] = binary.LittleEndian.Uint32(b[offBlocks+i*blockIDSize:])
	}
	return o, nil
}
