package blockdev_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
)

func TestMemDeviceReadWrite(t *testing.T) {
	d := blockdev.NewMem(4, 64)
	buf := bytes.Repeat([]byte{0xAB}, 64)
	if err := d.WriteBlock(2, buf); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	out := make([]byte, 64)
	if err := d.ReadBlock(2, out); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(buf, out) {
		t.Fatalf("read back %x, want %x", out, buf)
	}
	// Untouched blocks start zeroed.
	zero := make([]byte, 64)
	if err := d.ReadBlock(0, out); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, zero) {
		t.Fatalf("block 0 should be zero-filled, got %x", out)
	}
}

func TestMemDeviceOutOfRange(t *testing.T) {
	d := blockdev.NewMem(2, 64)
	buf := make([]byte, 64)
	if err := d.ReadBlock(5, buf); err == nil {
		t.Fatal("expected error reading out-of-range block")
	}
}

func TestMemDeviceWrongBufferSize(t *testing.T) {
	d := blockdev.NewMem(2, 64)
	if err := d.WriteBlock(0, make([]byte, 10)); err == nil {
		t.Fatal("expected error writing undersized buffer")
	}
}

func TestFileDeviceCreateOpenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")

	d, err := blockdev.CreateFile(path, 8, 128)
	if err != nil {
		t.Fatalf("CreateFile: %v", err)
	}
	buf := bytes.Repeat([]byte{0x5A}, 128)
	if err := d.WriteBlock(3, buf); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	if err := d.Sync(); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := blockdev.OpenFile(path, 8, 128)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer reopened.Close()

	out := make([]byte, 128)
	if err := reopened.ReadBlock(3, out); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if !bytes.Equal(buf, out) {
		t.Fatalf("read back %x, want %x", out, buf)
	}
}

func TestOpenFileRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "device.img")
	d, err := blockdev.CreateFile(path, 4, 64)
	if err != nil {
		t.Fatal(err)
	}
	d.Close()

	if _, err := blockdev.OpenFile(path, 5, 64); err == nil {
		t.Fatal("expected size mismatch error")
	}
}
