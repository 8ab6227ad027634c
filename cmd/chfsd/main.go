// Command chfsd is a small CLI front end over the store: format a device,
// run single-shot filesystem operations against it, and a couple of
// debugging helpers (export to the host filesystem, stat birth time).
//
// In the spirit of the teacher's own examples/ directory of small runnable
// mains (create-iso-from-folder, serve-image), this wires the whole stack
// — blockdev, blockmgr, persister, extent, lockservice, fsclient — behind
// flags rather than a long-running network service, since spec.md scopes
// out the RPC transport itself.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	args := os.Args[2:]

	var err error
	switch sub {
	case "format":
		err = runFormat(args)
	case "mkdir":
		err = runMkdir(args)
	case "put":
		err = runPut(args)
	case "get":
		err = runGet(args)
	case "ls":
		err = runLs(args)
	case "rm":
		err = runRm(args)
	case "compact":
		err = runCompact(args)
	case "export":
		err = runExport(args)
	case "stat":
		err = runStat(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `chfsd <command> [flags]

Commands:
  format   lay out a fresh device
  mkdir    create a directory
  put      create (or overwrite) a file from local content
  get      print a file's content
  ls       list a directory
  rm       remove a directory entry
  compact  force a checkpoint compaction of the WAL
  export   bridge a stored file (and its xattrs) onto the host filesystem
  stat     print a host file's timestamps, including birth time if available`)
}

// storeFlags are the flags common to every subcommand that opens an
// existing store.
type storeFlags struct {
	device string
	logDir string
}

func (f *storeFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.device, "device", "chfs.img", "path to the backing device file")
	fs.StringVar(&f.logDir, "log-dir", "chfs.log", "path to the WAL/checkpoint directory")
}
