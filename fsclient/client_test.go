package fsclient_test

import (
	"testing"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
	"github.com/Daniel-LU-JC/CSE-DFS/extent"
	"github.com/Daniel-LU-JC/CSE-DFS/fsclient"
	"github.com/Daniel-LU-JC/CSE-DFS/inode"
	"github.com/Daniel-LU-JC/CSE-DFS/lockservice"
	"github.com/Daniel-LU-JC/CSE-DFS/persister"
)

func newTestClient(t *testing.T) *fsclient.Client {
	t.Helper()
	dev := blockdev.NewMem(512, 128)
	bm, err := blockmgr.Format(dev, 64)
	if err != nil {
		t.Fatal(err)
	}
	pst, err := persister.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	es, err := extent.Open(bm, pst)
	if err != nil {
		t.Fatal(err)
	}
	lc := lockservice.NewClient(lockservice.NewServer())
	return fsclient.New(es, lc)
}

func TestCreateLookupRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "hello.txt")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	found, ok, err := c.Lookup(fsclient.RootInum, "hello.txt")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || found != ino {
		t.Fatalf("Lookup = (%d, %v), want (%d, true)", found, ok, ino)
	}
}

func TestCreateDuplicateNameFails(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Create(fsclient.RootInum, "dup"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Create(fsclient.RootInum, "dup"); err != fsclient.ErrExist {
		t.Fatalf("second Create = %v, want ErrExist", err)
	}
}

func TestCreateRejectsInvalidName(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Create(fsclient.RootInum, "bad:name"); err != fsclient.ErrInvalidName {
		t.Fatalf("Create with ':' in name = %v, want ErrInvalidName", err)
	}
	if _, err := c.Create(fsclient.RootInum, "bad/name"); err != fsclient.ErrInvalidName {
		t.Fatalf("Create with '/' in name = %v, want ErrInvalidName", err)
	}
}

func TestWriteReadOverlapping(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "f")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Write(ino, 0, []byte("hello world")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read(ino, 6, 5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "world" {
		t.Fatalf("Read = %q, want %q", got, "world")
	}
}

func TestWriteGrowsFileWithZeroGap(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "f")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Write(ino, 5, []byte("X")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read(ino, 0, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 0, 0, 0, 0, 'X'}
	if string(got) != string(want) {
		t.Fatalf("Read = %v, want %v", got, want)
	}
}

func TestReadPastEOFReturnsEmpty(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "f")
	if err != nil {
		t.Fatal(err)
	}
	got, err := c.Read(ino, 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("Read past EOF = %v, want empty", got)
	}
}

func TestSetAttrTruncates(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "f")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Write(ino, 0, []byte("0123456789")); err != nil {
		t.Fatal(err)
	}
	if err := c.SetAttr(ino, 4); err != nil {
		t.Fatalf("SetAttr: %v", err)
	}
	got, err := c.Read(ino, 0, 100)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "0123" {
		t.Fatalf("Read after SetAttr = %q, want %q", got, "0123")
	}
}

func TestMkdirIsDirAndCreateIsFile(t *testing.T) {
	c := newTestClient(t)
	dirIno, err := c.Mkdir(fsclient.RootInum, "sub")
	if err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	if !c.IsDir(dirIno) {
		t.Fatal("Mkdir result should be IsDir")
	}
	fileIno, err := c.Create(dirIno, "nested.txt")
	if err != nil {
		t.Fatalf("Create in subdir: %v", err)
	}
	if !c.IsFile(fileIno) {
		t.Fatal("Create result should be IsFile")
	}
	if c.IsDir(fileIno) {
		t.Fatal("a file should not report IsDir")
	}
}

func TestSymlinkReadlink(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Symlink(fsclient.RootInum, "link", "/target/path")
	if err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	target, err := c.Readlink(ino)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != "/target/path" {
		t.Fatalf("Readlink = %q, want %q", target, "/target/path")
	}
}

func TestUnlinkRemovesEntryAndExtent(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "gone")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Unlink(fsclient.RootInum, "gone"); err != nil {
		t.Fatalf("Unlink: %v", err)
	}
	if _, found, err := c.Lookup(fsclient.RootInum, "gone"); err != nil || found {
		t.Fatalf("Lookup after Unlink: found=%v err=%v, want not found", found, err)
	}
	if a, err := c.GetAttr(ino); err != nil || a.Type != inode.TypeFree {
		t.Fatalf("GetAttr on unlinked inum = (%+v, %v), want free (zeroed) attr", a, err)
	}
}

func TestUnlinkMissingNameFails(t *testing.T) {
	c := newTestClient(t)
	if err := c.Unlink(fsclient.RootInum, "nope"); err != fsclient.ErrNotExist {
		t.Fatalf("Unlink missing name = %v, want ErrNotExist", err)
	}
}

func TestSetGetXattrThroughClient(t *testing.T) {
	c := newTestClient(t)
	ino, err := c.Create(fsclient.RootInum, "f")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetXattr(ino, "user.tag", []byte("v")); err != nil {
		t.Fatalf("SetXattr: %v", err)
	}
	got, err := c.GetXattr(ino, "user.tag")
	if err != nil {
		t.Fatalf("GetXattr: %v", err)
	}
	if string(got) != "v" {
		t.Fatalf("GetXattr = %q, want %q", got, "v")
	}
}

func TestReaddirListsMultipleEntries(t *testing.T) {
	c := newTestClient(t)
	if _, err := c.Create(fsclient.RootInum, "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Create(fsclient.RootInum, "b"); err != nil {
		t.Fatal(err)
	}
	entries, err := c.Readdir(fsclient.RootInum)
	if err != nil {
		t.Fatalf("Readdir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Readdir returned %d entries, want 2", len(entries))
	}
}
