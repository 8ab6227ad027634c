package persister

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/ulikunitz/xz"

	"github.com/Daniel-LU-JC/CSE-DFS/internal/hexdump"
)

var log = logrus.WithField("component", "persister")

// MaxLogSize is the logdata.bin size threshold past which the extent
// service triggers a checkpoint, matching the source's MAX_LOG_SZ.
const MaxLogSize = 131072

const (
	logFileName        = "logdata.bin"
	checkpointFileName = "checkpoint.bin"
	checkpointTmpName  = "checkpoint.bin.tmp"
)

// Persister owns the on-disk log and checkpoint files under one directory.
// It is not safe for concurrent use; the extent service serializes access.
type Persister struct {
	dir string
}

// Open returns a Persister rooted at dir, creating dir if it does not
// exist. It performs no I/O against the log/checkpoint files themselves —
// call RestoreLogdata/RestoreCheckpoint to load them.
func Open(dir string) (*Persister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persister: creating %s: %w", dir, err)
	}
	return &Persister{dir: dir}, nil
}

func (p *Persister) logPath() string           { return filepath.Join(p.dir, logFileName) }
func (p *Persister) checkpointPath() string    { return filepath.Join(p.dir, checkpointFileName) }
func (p *Persister) checkpointTmpPath() string { return filepath.Join(p.dir, checkpointTmpName) }

// AppendLog appends one record to logdata.bin, fsyncing before returning so
// a crash immediately afterward leaves at most this record un-durable, per
// spec.md's "fsync every append" requirement (SPEC_FULL.md §9 item 1).
func (p *Persister) AppendLog(r Record) error {
	f, err := os.OpenFile(p.logPath(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("persister: opening log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(encodeRecord(r)); err != nil {
		return fmt.Errorf("persister: appending %v record: %w", r.Kind, err)
	}
	return f.Sync()
}

// LogSize returns the current size in bytes of logdata.bin (0 if absent),
// the signal the caller uses to decide whether to checkpoint.
func (p *Persister) LogSize() (int64, error) {
	fi, err := os.Stat(p.logPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// RestoreLogdata reads and decodes every complete record currently in
// logdata.bin, in file order. A truncated trailing record (the log was cut
// off mid-append by a crash) is dropped without an error, after being
// logged as a hex dump by dumpMalformed.
func (p *Persister) RestoreLogdata() ([]Record, error) {
	return p.readRecords(p.logPath())
}

// RestoreCheckpoint reads and decodes every record in checkpoint.bin.
func (p *Persister) RestoreCheckpoint() ([]Record, error) {
	return p.readRecords(p.checkpointPath())
}

func (p *Persister) readRecords(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persister: reading %s: %w", path, err)
	}
	recs, unparsed := decodeAll(raw)
	if len(unparsed) > 0 {
		dumpMalformed(path, unparsed)
	}
	return recs, nil
}

// Executable filters log (or checkpoint) entries down to the CREATE/PUT/
// REMOVE records belonging to a committed transaction: first pass
// collects every COMMITted tx id, second pass keeps only CREATE/PUT/REMOVE
// records whose TxID is in that set, matching original_source/lab2b's
// extent_server constructor two-pass recovery algorithm.
func Executable(entries []Record) []Record {
	committed := make(map[uint64]bool)
	for _, r := range entries {
		if r.Kind == KindCommit {
			committed[r.TxID] = true
		}
	}
	var out []Record
	for _, r := range entries {
		switch r.Kind {
		case KindCreate, KindPut, KindRemove:
			if committed[r.TxID] {
				out = append(out, r)
			}
		}
	}
	return out
}

// MaxTxID returns the highest BEGIN tx id found in entries, or 0 if none.
// extent's recovery does not call it; it advances its tx-id counter itself
// while checking each BEGIN in the log tail.
func MaxTxID(entries []Record) uint64 {
	var max uint64
	for _, r := range entries {
		if r.Kind == KindBegin && r.TxID > max {
			max = r.TxID
		}
	}
	return max
}

// DoCheckpoint compacts the currently-durable log into the checkpoint file
// and truncates the log, given the executable entries of the current log
// (Executable applied to RestoreLogdata's result). The records already in
// checkpoint.bin are read back and written ahead of them, so callers pass
// only the log's entries.
//
// Unlike the source persister, which truncates logdata.bin *before*
// writing checkpoint.bin — losing both copies of the data if the process
// crashes between those two steps — this always writes the new checkpoint
// to a temp file, fsyncs it, atomically renames it over checkpoint.bin,
// fsyncs the directory, and only then truncates the log. A crash at any
// point during this sequence leaves either the old checkpoint+full log, or
// the new checkpoint+full log, intact: never neither. See SPEC_FULL.md §9
// item 1.
func (p *Persister) DoCheckpoint(executable []Record) error {
	existing, err := p.RestoreCheckpoint()
	if err != nil {
		return err
	}

	var buf []byte
	for _, r := range existing {
		buf = append(buf, encodeRecord(r)...)
	}
	for _, r := range executable {
		buf = append(buf, encodeRecord(r)...)
	}

	tmp := p.checkpointTmpPath()
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return fmt.Errorf("persister: writing checkpoint tmp: %w", err)
	}
	tf, err := os.Open(tmp)
	if err != nil {
		return err
	}
	syncErr := tf.Sync()
	tf.Close()
	if syncErr != nil {
		return fmt.Errorf("persister: fsync checkpoint tmp: %w", syncErr)
	}

	if err := os.Rename(tmp, p.checkpointPath()); err != nil {
		return fmt.Errorf("persister: renaming checkpoint into place: %w", err)
	}
	if err := fsyncDir(p.dir); err != nil {
		return fmt.Errorf("persister: fsync checkpoint dir: %w", err)
	}

	if err := os.Truncate(p.logPath(), 0); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("persister: truncating log after checkpoint: %w", err)
	}

	log.WithFields(logrus.Fields{"records": len(existing) + len(executable)}).Info("checkpoint complete")
	return nil
}

// checkpointArchiveName is the xz-compressed copy ArchiveCheckpoint writes
// alongside checkpoint.bin. It is never read back by this package —
// checkpoint.bin remains the sole source recovery replays from — so a
// missing or stale .xz file can never corrupt recovery.
const checkpointArchiveName = checkpointFileName + ".xz"

// ArchiveCheckpoint writes an xz-compressed copy of the current
// checkpoint.bin next to it, for operators who want to ship old checkpoints
// off-box without paying full size. Call after DoCheckpoint; it is purely
// additive bookkeeping, not part of the recovery path.
func (p *Persister) ArchiveCheckpoint() error {
	raw, err := os.ReadFile(p.checkpointPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("persister: reading checkpoint for archive: %w", err)
	}

	out, err := os.Create(filepath.Join(p.dir, checkpointArchiveName))
	if err != nil {
		return fmt.Errorf("persister: creating checkpoint archive: %w", err)
	}
	defer out.Close()

	w, err := xz.NewWriter(out)
	if err != nil {
		return fmt.Errorf("persister: xz writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return fmt.Errorf("persister: compressing checkpoint: %w", err)
	}
	return w.Close()
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// dumpMalformed is called by callers that choose to log a diagnostic before
// discarding bytes that failed to parse as any known record shape.
func dumpMalformed(context string, b []byte) {
	log.WithField("context", context).Warnf("dropping malformed bytes:\n%s", hexdump.Dump(b, 16))
}
