package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runGet prints a stored file's full content to stdout.
func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("get: expected exactly one store path")
	}

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	ino, err := resolveInum(st.client, fs.Arg(0))
	if err != nil {
		return err
	}
	attr, err := st.client.GetAttr(ino)
	if err != nil {
		return fmt.Errorf("getattr %s: %w", fs.Arg(0), err)
	}
	content, err := st.client.Read(ino, 0, int(attr.Size))
	if err != nil {
		return fmt.Errorf("reading %s: %w", fs.Arg(0), err)
	}
	_, err = os.Stdout.Write(content)
	return err
}
