package main

import (
	"fmt"

	flag "github.com/spf13/pflag"
)

// runCompact forces an immediate WAL checkpoint compaction, rather than
// waiting for persister.MaxLogSize to be crossed by ordinary traffic.
func runCompact(args []string) error {
	fs := flag.NewFlagSet("compact", flag.ContinueOnError)
	var f storeFlags
	f.register(fs)
	archive := fs.Bool("archive", false, "also write an xz-compressed copy of the new checkpoint")
	if err := fs.Parse(args); err != nil {
		return err
	}

	st, err := openStore(f)
	if err != nil {
		return err
	}
	defer st.close()

	if err := st.es.Compact(); err != nil {
		return fmt.Errorf("compact: %w", err)
	}
	fmt.Println("checkpoint compaction complete")

	if *archive {
		if err := st.pst.ArchiveCheckpoint(); err != nil {
			return fmt.Errorf("archiving checkpoint: %w", err)
		}
		fmt.Println("checkpoint archived as checkpoint.bin.xz")
	}
	return nil
}
