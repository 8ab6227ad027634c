package persister_test

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Daniel-LU-JC/CSE-DFS/persister"
)

// encodeTruncatedPut builds the header+inum+declared-size prefix of a PUT
// record without the content bytes it claims to carry, simulating a log
// append cut short by a crash.
func encodeTruncatedPut(txID uint64, declaredSize uint64) []byte {
	b := make([]byte, 8+4+8+8)
	binary.LittleEndian.PutUint64(b[0:8], txID)
	binary.LittleEndian.PutUint32(b[8:12], uint32(persister.KindPut))
	binary.LittleEndian.PutUint64(b[12:20], 7) // inum
	binary.LittleEndian.PutUint64(b[20:28], declaredSize)
	return b
}

func TestAppendAndRestoreLogdata(t *testing.T) {
	p, err := persister.Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, p.AppendLog(persister.Record{TxID: 1, Kind: persister.KindBegin}))
	require.NoError(t, p.AppendLog(persister.Record{TxID: 1, Kind: persister.KindCreate, FileType: 1, Inum: 2}))
	require.NoError(t, p.AppendLog(persister.Record{TxID: 1, Kind: persister.KindCommit}))

	recs, err := p.RestoreLogdata()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, persister.KindCreate, recs[1].Kind)
	require.EqualValues(t, 2, recs[1].Inum)
}

func TestAppendPutRoundTripsContent(t *testing.T) {
	p, err := persister.Open(t.TempDir())
	require.NoError(t, err)

	payload := []byte("extent payload bytes")
	require.NoError(t, p.AppendLog(persister.Record{TxID: 5, Kind: persister.KindPut, Inum: 9, Content: payload}))

	recs, err := p.RestoreLogdata()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, payload, recs[0].Content)
}

func TestExecutableFiltersUncommittedTransactions(t *testing.T) {
	entries := []persister.Record{
		{TxID: 1, Kind: persister.KindBegin},
		{TxID: 1, Kind: persister.KindCreate, Inum: 10},
		{TxID: 1, Kind: persister.KindCommit},
		{TxID: 2, Kind: persister.KindBegin},
		{TxID: 2, Kind: persister.KindPut, Inum: 11}, // never committed
	}
	exe := persister.Executable(entries)
	require.Len(t, exe, 1)
	require.EqualValues(t, 10, exe[0].Inum)
}

func TestRestoreLogdataDropsTruncatedTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	p, err := persister.Open(dir)
	require.NoError(t, err)

	require.NoError(t, p.AppendLog(persister.Record{TxID: 1, Kind: persister.KindBegin}))
	require.NoError(t, p.AppendLog(persister.Record{TxID: 1, Kind: persister.KindCommit}))

	// Simulate a crash mid-append: append a PUT header announcing more
	// content bytes than actually follow.
	f, err := os.OpenFile(filepath.Join(dir, "logdata.bin"), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.Write(encodeTruncatedPut(7, 999))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	recs, err := p.RestoreLogdata()
	require.NoError(t, err)
	require.Len(t, recs, 2, "the truncated trailing PUT record must be dropped, not error out")
}

func TestDoCheckpointCompactsAndTruncatesLog(t *testing.T) {
	dir := t.TempDir()
	p, err := persister.Open(dir)
	require.NoError(t, err)

	entries := []persister.Record{
		{TxID: 1, Kind: persister.KindBegin},
		{TxID: 1, Kind: persister.KindCreate, Inum: 3, FileType: 1},
		{TxID: 1, Kind: persister.KindCommit},
	}
	for _, r := range entries {
		require.NoError(t, p.AppendLog(r))
	}

	exe := persister.Executable(entries)
	require.NoError(t, p.DoCheckpoint(exe))

	size, err := p.LogSize()
	require.NoError(t, err)
	require.Zero(t, size, "log must be truncated after checkpoint")

	cp, err := p.RestoreCheckpoint()
	require.NoError(t, err)
	require.Len(t, cp, 1)
	require.Equal(t, persister.KindCreate, cp[0].Kind)
}

func TestDoCheckpointAppendsToExistingCheckpoint(t *testing.T) {
	dir := t.TempDir()
	p, err := persister.Open(dir)
	require.NoError(t, err)

	first := []persister.Record{{TxID: 1, Kind: persister.KindCreate, Inum: 1, FileType: 2}}
	require.NoError(t, p.DoCheckpoint(first))

	second := []persister.Record{{TxID: 2, Kind: persister.KindPut, Inum: 1, Content: []byte("x")}}
	require.NoError(t, p.DoCheckpoint(second))

	cp, err := p.RestoreCheckpoint()
	require.NoError(t, err)
	require.Len(t, cp, 2)
}

func TestArchiveCheckpointWritesCompressedCopy(t *testing.T) {
	dir := t.TempDir()
	p, err := persister.Open(dir)
	require.NoError(t, err)

	require.NoError(t, p.DoCheckpoint([]persister.Record{
		{TxID: 1, Kind: persister.KindCreate, Inum: 1, FileType: 1},
	}))
	require.NoError(t, p.ArchiveCheckpoint())

	archived, err := os.Stat(filepath.Join(dir, "checkpoint.bin.xz"))
	require.NoError(t, err)
	require.Greater(t, archived.Size(), int64(0))
}

func TestArchiveCheckpointWithNoCheckpointIsNoop(t *testing.T) {
	p, err := persister.Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, p.ArchiveCheckpoint())
}
