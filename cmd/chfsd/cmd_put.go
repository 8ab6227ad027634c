package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
)

// runPut creates (or, with --overwrite, replaces the content of) a file at
// the given store path from a local file's content.
func runPut(args []string) error {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	overwrite := fs.Bool("overwrite", false, "overwrite an existing file's content instead of creating")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("put: expected <local-file> <store-path>")
	}
	localPath, storePath := fs.Arg(0), fs.Arg(1)

	content, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", localPath, err)
	}

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	parent, name, err := resolve(st.client, storePath)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("put: %q is the root", storePath)
	}

	var ino uint32
	if *overwrite {
		ino, err = resolveInum(st.client, storePath)
		if err != nil {
			return err
		}
		if err := st.client.SetAttr(ino, len(content)); err != nil {
			return fmt.Errorf("truncating %s: %w", storePath, err)
		}
	} else {
		ino, err = st.client.Create(parent, name)
		if err != nil {
			return fmt.Errorf("put %s: %w", storePath, err)
		}
	}

	if _, err := st.client.Write(ino, 0, content); err != nil {
		return fmt.Errorf("writing %s: %w", storePath, err)
	}
	fmt.Printf("wrote %d bytes to %s (inum %d)\n", len(content), storePath, ino)
	return nil
}
