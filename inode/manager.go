package inode

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
	"github.com/Daniel-LU-JC/CSE-DFS/internal/clock"
)

var log = logrus.WithField("component", "inode")

// RootInum is the extent id reserved for the root directory. Construction
// asserts the very first allocated inode is this value, per spec.md
// invariant I6 and the source's hard assertion in inode_manager's
// constructor.
const RootInum uint32 = 1

// Attr is the metadata returned by GetAttr: type, size, and the three
// timestamps, zeroed for a free inode.
type Attr struct {
	Type  Type
	Size  uint64
	ATime int64
	MTime int64
	CTime int64
}

// Manager maps extent ids (== inode numbers) to on-disk content through a
// blockmgr.Manager. It is not safe for concurrent use: the extent service
// (or its replication wrapper) serializes every call, per spec.md §5.
type Manager struct {
	bm       *blockmgr.Manager
	ipb      uint32
	nInodes  uint32
	nextInum uint32
}

func newManager(bm *blockmgr.Manager) *Manager {
	ipb := uint32(bm.BlockSize() / blockmgr.InodeOnDiskSize)
	return &Manager{bm: bm, ipb: ipb, nInodes: bm.Superblock().NInodes}
}

// New builds an inode manager over a just-formatted blockmgr.Manager and
// allocates the root directory. It panics if the very first allocated inode
// is not RootInum — a deliberately preserved hard assertion (spec.md §9):
// downstream code bakes in root==1.
func New(bm *blockmgr.Manager) (m *Manager, rootInum uint32, err error) {
	m = newManager(bm)
	rootInum, err = m.AllocInode(TypeDir)
	if err != nil {
		return nil, 0, fmt.Errorf("inode: allocating root directory: %w", err)
	}
	if rootInum != RootInum {
		panic(fmt.Sprintf("inode: first allocated inode was %d, not %d", rootInum, RootInum))
	}
	return m, rootInum, nil
}

// Reopen builds an inode manager over an existing blockmgr.Manager without
// allocating anything. Unlike New it does not create the root directory;
// the root's own allocation in New is never written to the log, so no
// replay recreates it.
func Reopen(bm *blockmgr.Manager) *Manager {
	return newManager(bm)
}

func (m *Manager) location(inum uint32) (block uint32, offset int) {
	tableIdx := inum / m.ipb
	slot := inum % m.ipb
	return m.bm.InodeTableBlock(tableIdx), int(slot) * blockmgr.InodeOnDiskSize
}

func (m *Manager) readSlot(inum uint32) (OnDisk, []byte, uint32, error) {
	block, offset := m.location(inum)
	buf := make([]byte, m.bm.BlockSize())
	if err := m.bm.ReadBlock(block, buf); err != nil {
		return OnDisk{}, nil, 0, err
	}
	rec, err := decodeBytes(buf[offset : offset+blockmgr.InodeOnDiskSize])
	return rec, buf, block, err
}

func (m *Manager) writeSlot(inum uint32, rec OnDisk) error {
	block, offset := m.location(inum)
	buf := make([]byte, m.bm.BlockSize())
	if err := m.bm.ReadBlock(block, buf); err != nil {
		return err
	}
	copy(buf[offset:offset+blockmgr.InodeOnDiskSize], encodeBytes(rec, blockmgr.InodeOnDiskSize))
	return m.bm.WriteBlock(block, buf)
}

// AllocInode walks up to nInodes slots starting at the rotating cursor and
// initializes the first free (type==0) slot found, returning its inum.
func (m *Manager) AllocInode(t Type) (uint32, error) {
	for i := uint32(0); i < m.nInodes; i++ {
		m.nextInum = (m.nextInum + 1) % m.nInodes
		rec, _, _, err := m.readSlot(m.nextInum)
		if err != nil {
			return 0, err
		}
		if rec.Type == TypeFree {
			now := clock.Now()
			rec = OnDisk{Type: t, ATime: now, MTime: now, CTime: now}
			if err := m.writeSlot(m.nextInum, rec); err != nil {
				return 0, err
			}
			return m.nextInum, nil
		}
	}
	log.Warn("no free inodes")
	return 0, fmt.Errorf("inode: out of inodes")
}

// InstallInode forcibly (re)installs a fresh inode of type t at inum,
// bypassing the free-slot scan. Used by persister replay's CREATE handler,
// which must deterministically recreate the exact inode the log recorded
// rather than allocate a new one (spec.md §4.4 step 2/4).
func (m *Manager) InstallInode(inum uint32, t Type) error {
	now := clock.Now()
	return m.writeSlot(inum, OnDisk{Type: t, ATime: now, MTime: now, CTime: now})
}

// FreeInode marks inum's slot free. Does not free its data blocks; callers
// needing that must use RemoveFile.
func (m *Manager) FreeInode(inum uint32) error {
	rec, _, _, err := m.readSlot(inum)
	if err != nil {
		return err
	}
	rec.Type = TypeFree
	return m.writeSlot(inum, rec)
}

// GetInode returns a copy of inum's on-disk record, or ErrNotFound if its
// type is TypeFree.
func (m *Manager) GetInode(inum uint32) (OnDisk, error) {
	rec, _, _, err := m.readSlot(inum)
	if err != nil {
		return OnDisk{}, err
	}
	if rec.Type == TypeFree {
		return OnDisk{}, ErrNotFound
	}
	return rec, nil
}

// PutInode writes rec back into inum's packed slot verbatim.
func (m *Manager) PutInode(inum uint32, rec OnDisk) error {
	return m.writeSlot(inum, rec)
}

// ErrNotFound is returned by GetInode (and bubbled up by ReadFile/WriteFile/
// RemoveFile) for an inum whose slot is free. GetAttr does not return it.
var ErrNotFound = fmt.Errorf("inode: not found")

func (m *Manager) getNthBlockID(rec OnDisk, n uint32) (uint32, error) {
	if n < NDirect {
		return rec.Blocks[n], nil
	}
	indirect := make([]byte, m.bm.BlockSize())
	if err := m.bm.ReadBlock(rec.Blocks[NDirect], indirect); err != nil {
		return 0, err
	}
	idx := (n - NDirect) * blockIDSize
	return uint32(indirect[idx]) | uint32(indirect[idx+1])<<8 | uint32(indirect[idx+2])<<16 | uint32(indirect[idx+3])<<24, nil
}

func (m *Manager) allocNthBlock(rec *OnDisk, n uint32) error {
	if n < NDirect {
		id, err := m.bm.AllocBlock()
		if err != nil {
			return err
		}
		rec.Blocks[n] = id
		return nil
	}
	if rec.Blocks[NDirect] == 0 {
		id, err := m.bm.AllocBlock()
		if err != nil {
			return err
		}
		rec.Blocks[NDirect] = id
	}
	indirect := make([]byte, m.bm.BlockSize())
	if err := m.bm.ReadBlock(rec.Blocks[NDirect], indirect); err != nil {
		return err
	}
	id, err := m.bm.AllocBlock()
	if err != nil {
		return err
	}
	idx := (n - NDirect) * blockIDSize
	indirect[idx] = byte(id)
	indirect[idx+1] = byte(id >> 8)
	indirect[idx+2] = byte(id >> 16)
	indirect[idx+3] = byte(id >> 24)
	return m.bm.WriteBlock(rec.Blocks[NDirect], indirect)
}

func blockCount(size uint64, blockSize int) uint32 {
	if size == 0 {
		return 0
	}
	return uint32((size - 1) / uint64(blockSize) + 1)
}

// ReadFile returns exactly rec.Size bytes assembled from the inode's blocks.
func (m *Manager) ReadFile(inum uint32) ([]byte, error) {
	rec, err := m.GetInode(inum)
	if err != nil {
		return nil, err
	}
	out := make([]byte, rec.Size)
	blockSize := m.bm.BlockSize()
	nblocks := blockCount(rec.Size, blockSize)
	buf := make([]byte, blockSize)
	var i uint32
	for ; i < nblocks; i++ {
		id, err := m.getNthBlockID(rec, i)
		if err != nil {
			return nil, err
		}
		if err := m.bm.ReadBlock(id, buf); err != nil {
			return nil, err
		}
		start := uint64(i) * uint64(blockSize)
		n := copy(out[start:], buf)
		_ = n
	}
	return out, nil
}

// WriteFile replaces inum's content with data, growing or shrinking its
// block allocation as needed, and refreshes all three timestamps.
func (m *Manager) WriteFile(inum uint32, data []byte) error {
	rec, err := m.GetInode(inum)
	if err != nil {
		return err
	}
	blockSize := m.bm.BlockSize()
	oldCount := blockCount(rec.Size, blockSize)
	newCount := blockCount(uint64(len(data)), blockSize)

	if oldCount < newCount {
		for j := oldCount; j < newCount; j++ {
			if err := m.allocNthBlock(&rec, j); err != nil {
				return err
			}
		}
	} else if oldCount > newCount {
		for j := newCount; j < oldCount; j++ {
			id, err := m.getNthBlockID(rec, j)
			if err != nil {
				return err
			}
			if err := m.bm.FreeBlock(id); err != nil {
				return err
			}
		}
	}

	buf := make([]byte, blockSize)
	var i uint32
	for ; i < newCount; i++ {
		id, err := m.getNthBlockID(rec, i)
		if err != nil {
			return err
		}
		start := uint64(i) * uint64(blockSize)
		end := start + uint64(blockSize)
		for k := range buf {
			buf[k] = 0
		}
		if end > uint64(len(data)) {
			end = uint64(len(data))
		}
		copy(buf, data[start:end])
		if err := m.bm.WriteBlock(id, buf); err != nil {
			return err
		}
	}

	now := clock.Now()
	rec.Size = uint64(len(data))
	rec.ATime, rec.MTime, rec.CTime = now, now, now
	return m.PutInode(inum, rec)
}

// GetAttr returns inum's type, size, and timestamps, or the zero Attr
// (Type==TypeFree) if inum is free — spec.md's "attr (zeroed if free)".
func (m *Manager) GetAttr(inum uint32) (Attr, error) {
	rec, _, _, err := m.readSlot(inum)
	if err != nil {
		return Attr{}, err
	}
	if rec.Type == TypeFree {
		return Attr{}, nil
	}
	return Attr{
		Type:  rec.Type,
		Size:  rec.Size,
		ATime: rec.ATime.Unix(),
		MTime: rec.MTime.Unix(),
		CTime: rec.CTime.Unix(),
	}, nil
}

// RemoveFile frees all of inum's data blocks (and its indirect block, if
// used), then its inode slot.
func (m *Manager) RemoveFile(inum uint32) error {
	rec, err := m.GetInode(inum)
	if err != nil {
		return err
	}
	blockSize := m.bm.BlockSize()
	nblocks := blockCount(rec.Size, blockSize)
	var i uint32
	for ; i < nblocks; i++ {
		id, err := m.getNthBlockID(rec, i)
		if err != nil {
			return err
		}
		if err := m.bm.FreeBlock(id); err != nil {
			return err
		}
	}
	if nblocks > NDirect {
		if err := m.bm.FreeBlock(rec.Blocks[NDirect]); err != nil {
			return err
		}
	}
	if rec.XattrExtent != 0 {
		if err := m.RemoveFile(rec.XattrExtent); err != nil {
			return err
		}
	}
	return m.FreeInode(inum)
}

// xattr side table: a lazily-allocated typeXattr extent referenced by
// rec.XattrExtent, holding a packed sequence of
// [nameLen:uint16][name][valueLen:uint32][value] records. It rides on the
// same ReadFile/WriteFile block addressing as ordinary file content, since
// neither cares about the inode's Type — only its Size and Blocks.

func encodeXattrName(name string) []byte {
	b := make([]byte, 2+len(name))
	b[0] = byte(len(name))
	b[1] = byte(len(name) >> 8)
	copy(b[2:], name)
	return b
}

func (m *Manager) xattrExtent(inum uint32, rec OnDisk, create bool) (uint32, OnDisk, error) {
	if rec.XattrExtent != 0 {
		return rec.XattrExtent, rec, nil
	}
	if !create {
		return 0, rec, nil
	}
	xinum, err := m.AllocInode(typeXattr)
	if err != nil {
		return 0, rec, err
	}
	rec.XattrExtent = xinum
	if err := m.PutInode(inum, rec); err != nil {
		return 0, rec, err
	}
	return xinum, rec, nil
}

// SetXattr stores (or overwrites) one extended attribute on inum.
func (m *Manager) SetXattr(inum uint32, name string, value []byte) error {
	rec, err := m.GetInode(inum)
	if err != nil {
		return err
	}
	xinum, rec, err := m.xattrExtent(inum, rec, true)
	if err != nil {
		return err
	}

	entries, err := m.readXattrEntries(xinum)
	if err != nil {
		return err
	}
	replaced := false
	for i, e := range entries {
		if e.name == name {
			entries[i].value = value
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, xattrEntry{name: name, value: value})
	}
	return m.writeXattrEntries(xinum, entries)
}

// GetXattr returns the value previously set for name on inum, or
// ErrNotFound if inum carries no such attribute.
func (m *Manager) GetXattr(inum uint32, name string) ([]byte, error) {
	rec, err := m.GetInode(inum)
	if err != nil {
		return nil, err
	}
	xinum, _, err := m.xattrExtent(inum, rec, false)
	if err != nil {
		return nil, err
	}
	if xinum == 0 {
		return nil, ErrNotFound
	}
	entries, err := m.readXattrEntries(xinum)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.name == name {
			return e.value, nil
		}
	}
	return nil, ErrNotFound
}

// ListXattr returns the names of every extended attribute set on inum.
func (m *Manager) ListXattr(inum uint32) ([]string, error) {
	rec, err := m.GetInode(inum)
	if err != nil {
		return nil, err
	}
	xinum, _, err := m.xattrExtent(inum, rec, false)
	if err != nil {
		return nil, err
	}
	if xinum == 0 {
		return nil, nil
	}
	entries, err := m.readXattrEntries(xinum)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	return names, nil
}

type xattrEntry struct {
	name  string
	value []byte
}

func (m *Manager) readXattrEntries(xinum uint32) ([]xattrEntry, error) {
	raw, err := m.ReadFile(xinum)
	if err != nil {
		return nil, err
	}
	var entries []xattrEntry
	for len(raw) > 0 {
		if len(raw) < 2 {
			break
		}
		nameLen := int(raw[0]) | int(raw[1])<<8
		raw = raw[2:]
		if len(raw) < nameLen+4 {
			break
		}
		name := string(raw[:nameLen])
		raw = raw[nameLen:]
		valueLen := int(raw[0]) | int(raw[1])<<8 | int(raw[2])<<16 | int(raw[3])<<24
		raw = raw[4:]
		if len(raw) < valueLen {
			break
		}
		entries = append(entries, xattrEntry{name: name, value: append([]byte(nil), raw[:valueLen]...)})
		raw = raw[valueLen:]
	}
	return entries, nil
}

func (m *Manager) writeXattrEntries(xinum uint32, entries []xattrEntry) error {
	var buf []byte
	for _, e := range entries {
		buf = append(buf, encodeXattrName(e.name)...)
		valueLen := len(e.value)
		buf = append(buf, byte(valueLen), byte(valueLen>>8), byte(valueLen>>16), byte(valueLen>>24))
		buf = append(buf, e.value...)
	}
	return m.WriteFile(xinum, buf)
}
