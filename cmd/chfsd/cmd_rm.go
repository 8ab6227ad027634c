package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// runRm removes a directory entry (and the extent it points to) by path.
func runRm(args []string) error {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("rm: expected exactly one store path")
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
		return fmt.Errorf("rm: refusing to remove the root")
	}
	if err := st.client.Unlink(parent, name); err != nil {
		return fmt.Errorf("rm %s: %w", fs.Arg(0), err)
	}
	fmt.Printf("removed %s\n", fs.Arg(0))
	return nil
}
