package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
	"github.com/Daniel-LU-JC/CSE-DFS/extent"
	"github.com/Daniel-LU-JC/CSE-DFS/fsclient"
	"github.com/Daniel-LU-JC/CSE-DFS/lockservice"
	"github.com/Daniel-LU-JC/CSE-DFS/persister"
)

func metaPath(devicePath string) string { return devicePath + ".meta" }

// writeMeta records the {numBlocks, numInodes} a device was formatted
// with, so later chfsd invocations need only --device, not the original
// --blocks/--inodes.
func writeMeta(devicePath string, numBlocks, numInodes uint32) error {
	return os.WriteFile(metaPath(devicePath), []byte(fmt.Sprintf("%d %d\n", numBlocks, numInodes)), 0o644)
}

func readMeta(devicePath string) (numBlocks, numInodes uint32, err error) {
	raw, err := os.ReadFile(metaPath(devicePath))
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s (run 'chfsd format' first?): %w", metaPath(devicePath), err)
	}
	if _, err := fmt.Sscanf(string(raw), "%d %d", &numBlocks, &numInodes); err != nil {
		return 0, 0, fmt.Errorf("parsing %s: %w", metaPath(devicePath), err)
	}
	return numBlocks, numInodes, nil
}

// defaultBlockSize matches blockdev.DefaultBlockSize; spelled out here so
// a device opened by a later chfsd invocation always agrees with the size
// it was formatted at, without importing internal format-time bookkeeping.
const defaultBlockSize = blockdev.DefaultBlockSize

// store bundles the open handles a subcommand needs: the POSIX-like façade
// for ordinary operations, the extent service underneath it for the
// operations (Compact) that fsclient deliberately doesn't expose, and a
// close func releasing the backing device.
type store struct {
	client *fsclient.Client
	es     *extent.Service
	pst    *persister.Persister
	close  func() error
}

// openStore opens an already-formatted device and replays its WAL. Every
// invocation re-formats the device's superblock, bitmap and inode table
// from scratch and rebuilds live state purely from the persister's
// checkpoint+log, matching
// extent.Open's documented recovery contract — the device file itself is
// not trusted as a second source of truth for live content, only for its
// byte capacity.
func openStore(f storeFlags) (*store, error) {
	numBlocks, numInodes, err := readMeta(f.device)
	if err != nil {
		return nil, err
	}
	dev, err := blockdev.OpenFile(f.device, numBlocks, defaultBlockSize)
	if err != nil {
		return nil, fmt.Errorf("opening device: %w", err)
	}
	bm, err := blockmgr.Format(dev, numInodes)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("formatting in-memory state: %w", err)
	}
	pst, err := persister.Open(f.logDir)
	if err != nil {
		dev.Close()
		return nil, err
	}
	es, err := extent.Open(bm, pst)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("recovering: %w", err)
	}
	lc := lockservice.NewClient(lockservice.NewServer())
	client := fsclient.New(es, lc)
	return &store{client: client, es: es, pst: pst, close: dev.Close}, nil
}

// resolve walks a slash-separated path from the root down to its parent
// directory, returning the parent's inum and the final path component.
// "/" and "" both resolve to (RootInum, "").
func resolve(c *fsclient.Client, path string) (parent uint32, name string, err error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) == 1 && parts[0] == "" {
		return fsclient.RootInum, "", nil
	}

	inum := fsclient.RootInum
	for _, p := range parts[:len(parts)-1] {
		next, found, err := c.Lookup(inum, p)
		if err != nil {
			return 0, "", err
		}
		if !found {
			return 0, "", fmt.Errorf("%s: %w", path, fsclient.ErrNotExist)
		}
		inum = next
	}
	return inum, parts[len(parts)-1], nil
}

// resolveInum resolves a full path down to the inode it names, rather than
// its parent, for subcommands (get, export, ls, put --overwrite) that
// operate on the target itself.
func resolveInum(c *fsclient.Client, path string) (uint32, error) {
	parent, name, err := resolve(c, path)
	if err != nil {
		return 0, err
	}
	if name == "" {
		return fsclient.RootInum, nil
	}
	inum, found, err := c.Lookup(parent, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, fmt.Errorf("%s: %w", path, fsclient.ErrNotExist)
	}
	return inum, nil
}
