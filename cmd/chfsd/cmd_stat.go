package main

import (
	"fmt"

	times "gopkg.in/djherbis/times.v1"
)

// runStat prints a host file's access/modify/change timestamps, and its
// birth time where the platform's filesystem reports one — useful after
// export, to confirm the host copy actually landed rather than inspecting
// the store's own (coarser, second-resolution) attribute timestamps.
func runStat(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("stat: expected exactly one host path")
	}
	t, err := times.Stat(args[0])
	if err != nil {
		return fmt.Errorf("stat %s: %w", args[0], err)
	}

	fmt.Printf("accessed: %s\n", t.AccessTime())
	fmt.Printf("modified: %s\n", t.ModTime())
	fmt.Printf("changed:  %s\n", t.ChangeTime())
	if t.HasBirthTime() {
		fmt.Printf("born:     %s\n", t.BirthTime())
	} else {
		fmt.Println("born:     (not reported by this filesystem)")
	}
	return nil
}
