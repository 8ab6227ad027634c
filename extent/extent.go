// Package extent implements the create/put/get/getattr/remove façade over
// an inode.Manager, wrapping every mutating call in a BEGIN/COMMIT-bracketed
// WAL transaction and triggering checkpoint compaction once the log grows
// past persister.MaxLogSize.
//
// Grounded on extent_server in original_source/lab2b/extent_server.cc: the
// top-bit id masking, the per-call persister.append_log calls, and the
// constructor's two-phase (checkpoint, then committed log tail) recovery
// algorithm are carried over directly. Unlike that source, every mutation
// here is bracketed by explicit BEGIN/COMMIT records — the source issues a
// single bare record per call with no transaction boundary, which leaves
// its own checkpoint/executable-id bookkeeping unreachable in practice;
// SPEC_FULL.md's corresponding redesign note calls for real transaction
// ids, which this package supplies.
package extent

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Daniel-LU-JC/CSE-DFS/blockmgr"
	"github.com/Daniel-LU-JC/CSE-DFS/inode"
	"github.com/Daniel-LU-JC/CSE-DFS/persister"
)

var log = logrus.WithField("component", "extent")

// idMask strips the top bit from a caller-supplied extent id, matching
// extent_protocol::extentid_t's use of that bit as an out-of-band flag in
// the original RPC protocol.
const idMask = 0x7fffffff

// Attr is the metadata returned by GetAttr.
type Attr = inode.Attr

// ErrNotFound is returned by Get/Remove/Put for an unknown extent id.
// GetAttr does not return it: a free id yields a zeroed Attr.
var ErrNotFound = inode.ErrNotFound

// Service is the extent store: inode.Manager plus WAL-backed durability.
// Every public method holds s.mu for its whole duration, so concurrent
// calls are serialized here; the inode.Manager underneath is reached only
// through those methods.
type Service struct {
	mu     sync.Mutex
	im     *inode.Manager
	pst    *persister.Persister
	txIDMx uint64
}

// Open builds a Service over a freshly-formatted blockmgr.Manager
// (allocating a fresh root directory inode on it via inode.New), then replays pst's
// checkpoint and committed log tail on top of it. This mirrors the
// source's extent_server constructor: block/inode state is always rebuilt
// from scratch and reconstituted purely from the WAL, never trusted from
// whatever the backing device happened to contain before this call.
func Open(bm *blockmgr.Manager, pst *persister.Persister) (*Service, error) {
	im, root, err := inode.New(bm)
	if err != nil {
		return nil, err
	}
	if root != inode.RootInum {
		return nil, fmt.Errorf("extent: unexpected root inum %d", root)
	}

	s := &Service{im: im, pst: pst}
	if err := s.recover(); err != nil {
		return nil, fmt.Errorf("extent: recovery: %w", err)
	}
	return s, nil
}

func (s *Service) recover() error {
	checkpoint, err := s.pst.RestoreCheckpoint()
	if err != nil {
		return err
	}
	for _, r := range checkpoint {
		if err := s.applyRecord(r); err != nil {
			return fmt.Errorf("replaying checkpoint record %v: %w", r.Kind, err)
		}
		if r.TxID > s.txIDMx {
			s.txIDMx = r.TxID
		}
	}

	logTail, err := s.pst.RestoreLogdata()
	if err != nil {
		return err
	}
	for _, r := range logTail {
		if r.Kind == persister.KindBegin {
			s.txIDMx++
			if s.txIDMx != r.TxID {
				return fmt.Errorf("txid_max mismatch during recovery: computed %d, log says %d", s.txIDMx, r.TxID)
			}
		}
	}

	for _, r := range persister.Executable(logTail) {
		if err := s.applyRecord(r); err != nil {
			return fmt.Errorf("replaying log record %v: %w", r.Kind, err)
		}
		log.WithField("txid", r.TxID).Debug("recovered transaction")
	}
	return nil
}

func (s *Service) applyRecord(r persister.Record) error {
	switch r.Kind {
	case persister.KindCreate:
		return s.im.InstallInode(uint32(r.Inum), inode.Type(r.FileType))
	case persister.KindPut:
		return s.im.WriteFile(uint32(r.Inum), r.Content)
	case persister.KindRemove:
		err := s.im.RemoveFile(uint32(r.Inum))
		if err == inode.ErrNotFound {
			return nil
		}
		return err
	default:
		return nil
	}
}

// txn appends a BEGIN record, runs body (which should mutate im and append
// exactly one CREATE/PUT/REMOVE record via s.appendOp), appends a COMMIT
// record, and checkpoints if the log has grown past the threshold.
func (s *Service) txn(body func(txID uint64) error) error {
	s.txIDMx++
	txID := s.txIDMx
	if err := s.pst.AppendLog(persister.Record{TxID: txID, Kind: persister.KindBegin}); err != nil {
		return err
	}
	if err := body(txID); err != nil {
		return err
	}
	if err := s.pst.AppendLog(persister.Record{TxID: txID, Kind: persister.KindCommit}); err != nil {
		return err
	}
	return s.maybeCheckpoint()
}

func (s *Service) maybeCheckpoint() error {
	size, err := s.pst.LogSize()
	if err != nil {
		return err
	}
	if size < persister.MaxLogSize {
		return nil
	}
	log.WithField("log_size", size).Info("log size threshold exceeded, checkpointing")
	return s.checkpointNow()
}

func (s *Service) checkpointNow() error {
	logTail, err := s.pst.RestoreLogdata()
	if err != nil {
		return err
	}
	return s.pst.DoCheckpoint(persister.Executable(logTail))
}

// Compact forces an immediate checkpoint compaction regardless of the
// log's current size, for operators who want to bound recovery replay
// time ahead of a maintenance window rather than waiting for
// persister.MaxLogSize to be reached.
func (s *Service) Compact() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkpointNow()
}

// Create allocates a new extent of the given type and returns its id.
func (s *Service) Create(t inode.Type) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id uint32
	err := s.txn(func(txID uint64) error {
		var err error
		id, err = s.im.AllocInode(t)
		if err != nil {
			return err
		}
		return s.pst.AppendLog(persister.Record{
			TxID: txID, Kind: persister.KindCreate,
			FileType: uint32(t), Inum: uint64(id),
		})
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Put overwrites id's content with buf.
func (s *Service) Put(id uint32, buf []byte) error {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.txn(func(txID uint64) error {
		if err := s.im.WriteFile(id, buf); err != nil {
			return err
		}
		return s.pst.AppendLog(persister.Record{
			TxID: txID, Kind: persister.KindPut,
			Inum: uint64(id), Content: buf,
		})
	})
}

// Get returns id's content.
func (s *Service) Get(id uint32) ([]byte, error) {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.im.ReadFile(id)
}

// GetAttr returns id's metadata.
func (s *Service) GetAttr(id uint32) (Attr, error) {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.im.GetAttr(id)
}

// SetXattr stores an extended attribute on id. Not part of spec.md's
// original RPC surface; carried over from the extended inode side table
// (inode.Manager.SetXattr) so cmd/chfsd's export bridge has something to
// read from.
func (s *Service) SetXattr(id uint32, name string, value []byte) error {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.im.SetXattr(id, name, value)
}

// GetXattr returns id's value for name.
func (s *Service) GetXattr(id uint32, name string) ([]byte, error) {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.im.GetXattr(id, name)
}

// ListXattr returns the names of every extended attribute set on id.
func (s *Service) ListXattr(id uint32) ([]string, error) {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.im.ListXattr(id)
}

// Remove deletes id and its data blocks.
func (s *Service) Remove(id uint32) error {
	id &= idMask
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.txn(func(txID uint64) error {
		if err := s.im.RemoveFile(id); err != nil {
			return err
		}
		return s.pst.AppendLog(persister.Record{TxID: txID, Kind: persister.KindRemove, Inum: uint64(id)})
	})
}
