package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/Daniel-LU-JC/CSE-DFS/blockdev"
	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
)

// runFormat lays out a fresh device: creates the backing file, validates it
// by formatting it once (catching a too-small --blocks/--inodes
// pairing immediately rather than on the first real operation), and records
// the sizing in device.meta so later subcommands don't need to repeat it.
func runFormat(args []string) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	blocks := fs.Uint32("blocks", 4096, "number of blocks on the device")
	inodes := fs.Uint32("inodes", 256, "number of inodes to reserve")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dev, err := blockdev.CreateFile(f.device, *blocks, defaultBlockSize)
	if err != nil {
		return fmt.Errorf("creating device: %w", err)
	}
	defer dev.Close()

	if _, err := blockmgr.Format(dev, *inodes); err != nil {
		return fmt.Errorf("validating layout: %w", err)
	}

	if err := writeMeta(f.device, *blocks, *inodes); err != nil {
		return err
	}

	fmt.Printf("formatted %s: %d blocks, %d inodes, WAL at %s\n", f.device, *blocks, *inodes, f.logDir)
	return nil
}
