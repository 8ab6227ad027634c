package blockmgr_test

import (
	"testing"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
)

func newTestManager(t *testing.T) *blockmgr.Manager {
	t.Helper()
	dev := blockdev.NewMem(64, 128)
	m, err := blockmgr.Format(dev, 16)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	return m
}

func TestFormatReservesLayoutRegion(t *testing.T) {
	m := newTestManager(t)
	// The very first data-block allocation must land after the reserved
	// superblock+bitmap+inode-table region.
	id, err := m.AllocBlock()
	if err != nil {
		t.Fatalf("AllocBlock: %v", err)
	}
	if id < 1+m.InodeTableBlocks() {
		t.Fatalf("allocated block %d overlaps reserved layout region", id)
	}
}

func TestAllocFreeBlockRoundTrip(t *testing.T) {
	m := newTestManager(t)
	ids := make(map[uint32]bool)
	for i := 0; i < 10; i++ {
		id, err := m.AllocBlock()
		if err != nil {
			t.Fatalf("AllocBlock: %v", err)
		}
		if ids[id] {
			t.Fatalf("block %d allocated twice", id)
		}
		ids[id] = true
	}
	for id := range ids {
		if err := m.FreeBlock(id); err != nil {
			t.Fatalf("FreeBlock(%d): %v", id, err)
		}
	}
	// After freeing everything, allocation should reuse the same pool and not fail.
	if _, err := m.AllocBlock(); err != nil {
		t.Fatalf("AllocBlock after free: %v", err)
	}
}

func TestAllocBlockOutOfSpace(t *testing.T) {
	dev := blockdev.NewMem(8, 64)
	m, err := blockmgr.Format(dev, 4)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	var last error
	for i := 0; i < 100; i++ {
		if _, err := m.AllocBlock(); err != nil {
			last = err
			break
		}
	}
	if last != blockmgr.ErrOutOfSpace {
		t.Fatalf("expected ErrOutOfSpace, got %v", last)
	}
}

func TestFreeBlockIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	id, err := m.AllocBlock()
	if err != nil {
		t.Fatal(err)
	}
	if err := m.FreeBlock(id); err != nil {
		t.Fatalf("first free: %v", err)
	}
	if err := m.FreeBlock(id); err != nil {
		t.Fatalf("second free should be a no-op, got error: %v", err)
	}
}
