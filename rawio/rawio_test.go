package rawio_test

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lanrat/recsort/rawio"
	"github.com/lanrat/recsort/record"
)

func fill(n int, seed byte) record.Records {
	r := record.MakeRecords(n)
	for i := range r {
		r[i] = seed + byte(i%251)
	}
	return r
}

func TestFileReadWriteAt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records")
	f, err := rawio.Create(path)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Preallocate(10*record.Size))
	size, err := f.Size()
	require.NoError(t, err)
	require.EqualValues(t, 10*record.Size, size)

	src := fill(4, 7)
	require.NoError(t, f.WriteRecordsAt(src, 3))
	require.NoError(t, f.Advise(0, size, rawio.AdviceSequential))

	dst := record.MakeRecords(4)
	require.NoError(t, f.ReadRecordsAt(dst, 3))
	require.Equal(t, src, dst)
}

func TestFileReadPastEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short")
	f, err := rawio.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.WriteRecordsAt(fill(2, 1), 0))

	err = f.ReadRecordsAt(record.MakeRecords(3), 0)
	require.Error(t, err)
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF), "got %v", err)
}

func TestMapReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapped")
	f, err := rawio.Create(path)
	require.NoError(t, err)
	src := fill(5, 3)
	require.NoError(t, f.WriteRecordsAt(src, 0))
	require.NoError(t, f.Close())

	f, err = rawio.Open(path)
	require.NoError(t, err)
	defer f.Close()
	m, err := rawio.Map(f, int64(len(src)), false)
	require.NoError(t, err)
	require.NoError(t, m.Advise(rawio.AdviceRandom))
	require.Equal(t, src, m.Records())
	require.NoError(t, m.Close())
}

func TestMapWritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out")
	f, err := rawio.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Preallocate(3*record.Size))
	m, err := rawio.Map(f, 3*record.Size, true)
	require.NoError(t, err)
	src := fill(3, 9)
	copy(m.Records(), src)
	require.NoError(t, m.Close())

	got := record.MakeRecords(3)
	require.NoError(t, f.ReadRecordsAt(got, 0))
	require.Equal(t, src, got)
	require.NoError(t, f.Close())
}

func TestAlloc(t *testing.T) {
	m, err := rawio.Alloc(1000)
	require.NoError(t, err)
	require.Equal(t, 1000, m.Records().Len())
	m.Records().Set(999, fill(1, 42))
	require.Equal(t, byte(42), m.Records().At(999)[0])
	require.NoError(t, m.Close())

	empty, err := rawio.Alloc(0)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Records().Len())
	require.NoError(t, empty.Close())
}

func TestMem(t *testing.T) {
	m := rawio.NewMem(nil)
	require.NoError(t, m.WriteRecordsAt(fill(2, 5), 1))
	require.Equal(t, 3, m.Len())

	got := record.MakeRecords(2)
	require.NoError(t, m.ReadRecordsAt(got, 1))
	require.Equal(t, fill(2, 5), got)
	require.Error(t, m.ReadRecordsAt(got, 2))
}
