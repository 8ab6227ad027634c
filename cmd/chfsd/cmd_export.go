package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"github.com/pkg/xattr"
)

// runExport writes a stored file's content, and every extended attribute
// set on it, onto a real host-filesystem file — a debugging bridge for
// inspecting a store's content with ordinary tools (cat, getfattr) without
// a FUSE mount.
func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("export: expected <store-path> <host-path>")
	}
	storePath, hostPath := fs.Arg(0), fs.Arg(1)

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	ino, err := resolveInum(st.client, storePath)
	if err != nil {
		return err
	}
	attr, err := st.client.GetAttr(ino)
	if err != nil {
		return fmt.Errorf("getattr %s: %w", storePath, err)
	}
	content, err := st.client.Read(ino, 0, int(attr.Size))
	if err != nil {
		return fmt.Errorf("reading %s: %w", storePath, err)
	}
	if err := os.WriteFile(hostPath, content, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", hostPath, err)
	}

	names, err := st.client.ListXattr(ino)
	if err != nil {
		return fmt.Errorf("listing xattrs on %s: %w", storePath, err)
	}
	for _, name := range names {
		value, err := st.client.GetXattr(ino, name)
		if err != nil {
			return fmt.Errorf("reading xattr %s on %s: %w", name, storePath, err)
		}
		if err := xattr.Set(hostPath, name, value); err != nil {
			return fmt.Errorf("setting host xattr %s on %s: %w", name, hostPath, err)
		}
	}

	fmt.Printf("exported %s -> %s (%d bytes, %d xattrs)\n", storePath, hostPath, len(content), len(names))
	return nil
}
