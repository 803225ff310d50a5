package archive

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-kh930/controller"
	"github.com/moffa90/go-kh930/knitdata"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "archive.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func checkerboard(stitches, rows int) [][]byte {
	out := make([][]byte, rows)
	for r := range out {
		out[r] = make([]byte, stitches)
		for s := range out[r] {
			out[r][s] = byte((r + s) % 2)
		}
	}
	return out
}

func sourcePattern(t *testing.T, number, stitches, rows int) *knitdata.Pattern {
	t.Helper()
	ds := knitdata.Blank()
	require.NoError(t, ds.Add(number, checkerboard(stitches, rows), []byte{0x12, 0x34}))
	p, ok := ds.Pattern(number)
	require.True(t, ok)
	return p
}

func TestSaveAndGetPattern(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := sourcePattern(t, 901, 13, 5)

	rec, err := s.SavePattern(ctx, p, "track 1")
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)

	got, err := s.GetPattern(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 901, got.Number)
	assert.Equal(t, 13, got.Stitches)
	assert.Equal(t, 5, got.Rows)
	assert.Equal(t, "track 1", got.Source)
	assert.Equal(t, p.RowData, got.RowData)
	assert.Equal(t, p.MemoData, got.MemoData)
	assert.WithinDuration(t, time.Now(), got.Created, time.Minute)
}

func TestGetMissingPattern(t *testing.T) {
	s := openStore(t)
	_, err := s.GetPattern(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeletePattern(context.Background(), "nope"), ErrNotFound)
}

func TestListAndDeletePatterns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	a, err := s.SavePattern(ctx, sourcePattern(t, 901, 8, 2), "track 1")
	require.NoError(t, err)
	_, err = s.SavePattern(ctx, sourcePattern(t, 902, 24, 10), "track 2")
	require.NoError(t, err)

	list, err := s.ListPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Nil(t, list[0].RowData, "listing omits bitmaps")

	require.NoError(t, s.DeletePattern(ctx, a.ID))
	list, err = s.ListPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 902, list[0].Number)
}

func TestRestore(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	p := sourcePattern(t, 905, 17, 3)

	rec, err := s.SavePattern(ctx, p, "track 4")
	require.NoError(t, err)

	ds := knitdata.Blank()
	require.NoError(t, s.Restore(ctx, rec.ID, ds, 0))
	require.NoError(t, s.Restore(ctx, rec.ID, ds, 950))

	for _, n := range []int{905, 950} {
		got, ok := ds.Pattern(n)
		require.True(t, ok, "pattern %d", n)
		assert.Equal(t, p.RowData, got.RowData)
	}

	data, err := ds.Bytes()
	require.NoError(t, err)
	parsed, err := knitdata.Parse(data)
	require.NoError(t, err)
	assert.Len(t, parsed, 2)
}

func TestRecordAndListRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var _ controller.RunRecorder = s

	require.NoError(t, s.RecordRun(ctx, controller.RunRecord{
		ID: "run-1", Rows: 10, RowsSent: 10,
		Started: start, Finished: start.Add(time.Minute),
		Outcome: controller.OutcomeCompleted,
	}))
	require.NoError(t, s.RecordRun(ctx, controller.RunRecord{
		ID: "run-2", Rows: 10, RowsSent: 4,
		Started: start.Add(time.Hour), Finished: start.Add(time.Hour + time.Second),
		Outcome: controller.OutcomeFailed, Err: errors.New("timeout waiting for ACK"),
	}))

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, controller.OutcomeFailed, runs[0].Outcome)
	assert.EqualError(t, runs[0].Err, "timeout waiting for ACK")
	assert.Equal(t, 4, runs[0].RowsSent)
	assert.True(t, runs[0].Started.Equal(start.Add(time.Hour)))

	assert.Equal(t, "run-1", runs[1].ID)
	assert.NoError(t, runs[1].Err)

	runs, err = s.ListRuns(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	err = s.RecordRun(ctx, controller.RunRecord{ID: "run-1"})
	assert.Error(t, err, "run IDs are unique")
}

func TestBitmapPacking(t *testing.T) {
	rows := checkerboard(9, 3)
	packed := packBitmap(rows)
	assert.Len(t, packed, 6)

	got, err := unpackBitmap(packed, 9, 3)
	require.NoError(t, err)
	assert.Equal(t, rows, got)

	_, err = unpackBitmap(packed[:5], 9, 3)
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.db")
	ctx := context.Background()

	s, err := Open(path, nil)
	require.NoError(t, err)
	rec, err := s.SavePattern(ctx, sourcePattern(t, 901, 4, 4), "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.GetPattern(ctx, rec.ID)
	assert.NoError(t, err)
}
