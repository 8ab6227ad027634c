package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// runMkdir creates a directory at the given path. The parent must already
// exist; this does not implement mkdir -p's intermediate-directory creation.
func runMkdir(args []string) error {
	fs := flag.NewFlagSet("mkdir", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("mkdir: expected exactly one path argument")
	}

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	parent, name, err := resolve(st.client, fs.Arg(0))
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("mkdir: %q is the root", fs.Arg(0))
	}
	ino, err := st.client.Mkdir(parent, name)
	if err != nil {
		return fmt.Errorf("mkdir %s: %w", fs.Arg(0), err)
	}
	fmt.Printf("created directory %s (inum %d)\n", fs.Arg(0), ino)
	return nil
}
