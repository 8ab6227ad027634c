// Package persister implements the write-ahead log and checkpoint used to
// recover the extent service's committed state after a crash: every
// mutating operation is bracketed by BEGIN/COMMIT records, and the log is
// periodically compacted into a checkpoint once it grows past a threshold.
//
// Grounded on persister<command> in original_source/lab2b/persister.h, with
// the on-disk record codec following that file's field order, and the
// temp-file-plus-rename durability pattern borrowed from the teacher's
// package style of separating in-memory state from the on-disk byte layout
// (filesystem/ext4/journal.go's header/tag encode-decode split).
package persister

import (
	"encoding/binary"
	"fmt"
)

// Kind mirrors chfs_command::cmd_type from the source persister.
type Kind uint32

const (
	KindBegin Kind = iota
	KindCommit
	KindCreate
	KindPut
	KindRemove
)

func (k Kind) String() string {
	switch k {
	case KindBegin:
		return "BEGIN"
	case KindCommit:
		return "COMMIT"
	case KindCreate:
		return "CREATE"
	case KindPut:
		return "PUT"
	case KindRemove:
		return "REMOVE"
	default:
		return fmt.Sprintf("Kind(%d)", uint32(k))
	}
}

// Record is one WAL or checkpoint entry. Only the fields relevant to Kind
// are meaningful, matching the source's single do-everything struct.
type Record struct {
	TxID     uint64
	Kind     Kind
	FileType uint32 // CREATE
	Inum     uint64 // CREATE, PUT, REMOVE
	Content  []byte // PUT
}

const headerSize = 8 + 4 // TxID + Kind

func encodeRecord(r Record) []byte {
	switch r.Kind {
	case KindBegin, KindCommit:
		b := make([]byte, headerSize)
		putHeader(b, r)
		return b
	case KindCreate:
		b := make([]byte, headerSize+4+8)
		putHeader(b, r)
		binary.LittleEndian.PutUint32(b[headerSize:], r.FileType)
		binary.LittleEndian.PutUint64(b[headerSize+4:], r.Inum)
		return b
	case KindPut:
		b := make([]byte, headerSize+8+8+len(r.Content))
		putHeader(b, r)
		binary.LittleEndian.PutUint64(b[headerSize:], r.Inum)
		binary.LittleEndian.PutUint64(b[headerSize+8:], uint64(len(r.Content)))
		copy(b[headerSize+16:], r.Content)
		return b
	case KindRemove:
		b := make([]byte, headerSize+8)
		putHeader(b, r)
		binary.LittleEndian.PutUint64(b[headerSize:], r.Inum)
		return b
	default:
		panic(fmt.Sprintf("persister: encode: unknown kind %v", r.Kind))
	}
}

func putHeader(b []byte, r Record) {
	binary.LittleEndian.PutUint64(b[0:8], r.TxID)
	binary.LittleEndian.PutUint32(b[8:12], uint32(r.Kind))
}

// decodeRecord reads exactly one record from the front of b, returning the
// record and how many bytes it consumed. It returns (Record{}, 0, errShort)
// if b holds a truncated trailing record — the signal callers use to stop
// replaying a log tail that was cut short by a crash mid-append.
func decodeRecord(b []byte) (Record, int, error) {
	if len(b) < headerSize {
		return Record{}, 0, errShort
	}
	r := Record{
		TxID: binary.LittleEndian.Uint64(b[0:8]),
		Kind: Kind(binary.LittleEndian.Uint32(b[8:12])),
	}
	switch r.Kind {
	case KindBegin, KindCommit:
		return r, headerSize, nil
	case KindCreate:
		if len(b) < headerSize+12 {
			return Record{}, 0, errShort
		}
		r.FileType = binary.LittleEndian.Uint32(b[headerSize:])
		r.Inum = binary.LittleEndian.Uint64(b[headerSize+4:])
		return r, headerSize + 12, nil
	case KindPut:
		if len(b) < headerSize+16 {
			return Record{}, 0, errShort
		}
		r.Inum = binary.LittleEndian.Uint64(b[headerSize:])
		size := binary.LittleEndian.Uint64(b[headerSize+8:])
		total := headerSize + 16 + int(size)
		if len(b) < total {
			return Record{}, 0, errShort
		}
		r.Content = append([]byte(nil), b[headerSize+16:total]...)
		return r, total, nil
	case KindRemove:
		if len(b) < headerSize+8 {
			return Record{}, 0, errShort
		}
		r.Inum = binary.LittleEndian.Uint64(b[headerSize:])
		return r, headerSize + 8, nil
	default:
		return Record{}, 0, fmt.Errorf("persister: unknown record kind %d", r.Kind)
	}
}

var errShort = fmt.Errorf("persister: truncated record")

// decodeAll parses every complete record in b, in order. It stops at the
// first record it cannot parse — either a truncated trailing record (the
// log was cut off mid-append by a crash) or a genuinely malformed one — and
// returns the unparsed remainder alongside the records found so far, so the
// caller can log it before discarding it.
func decodeAll(b []byte) (recs []Record, unparsed []byte) {
	for len(b) > 0 {
		r, n, err := decodeRecord(b)
		if err != nil {
			return recs, b
		}
		recs = append(recs, r)
		b = b[n:]
	}
	return recs, nil
}
