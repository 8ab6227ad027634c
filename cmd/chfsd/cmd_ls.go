package main

import (
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/Daniel-LU-JC/CSE-DFS/inode"
)

// runLs lists a directory's entries, one per line, with a trailing slash
// on subdirectory names.
func runLs(args []string) error {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := "/"
	if fs.NArg() == 1 {
		path = fs.Arg(0)
	} else if fs.NArg() > 1 {
		return fmt.Errorf("ls: expected at most one path argument")
	}

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	dirIno, err := resolveInum(st.client, path)
	if err != nil {
		return err
	}
	entries, err := st.client.Readdir(dirIno)
	if err != nil {
		return fmt.Errorf("ls %s: %w", path, err)
	}
	for _, e := range entries {
		attr, err := st.client.GetAttr(e.Inum)
		if err != nil {
			fmt.Printf("%s\t(getattr failed: %v)\n", e.Name, err)
			continue
		}
		suffix := ""
		if attr.Type == inode.TypeDir {
			suffix = "/"
		}
		fmt.Printf("%s%s\t%d\n", e.Name, suffix, attr.Size)
	}
	return nil
}
