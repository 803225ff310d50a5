package knitdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeRows builds a deterministic stitch grid from a seed.
func makeRows(stitches, rows int, seed uint32) [][]byte {
	out := make([][]byte, rows)
	x := seed | 1
	for r := range out {
		out[r] = make([]byte, stitches)
		for s := range out[r] {
			x ^= x << 13
			x ^= x >> 17
			x ^= x << 5
			out[r][s] = byte(x & 1)
		}
	}
	return out
}

// buildDataSet lays out the given patterns the way the machine does, without
// going through Dataset.
func buildDataSet(t *testing.T, patterns ...*Pattern) []byte {
	t.Helper()
	data := make([]byte, DataSize)
	pptr := InitialPatternOffset
	for i, p := range patterns {
		p.Region = regionAt(pptr, p.Stitches, p.Rows)
		pptr = p.EndOffset
		require.NoError(t, WriteEntry(data, i, p.Entry))
		require.NoError(t, EncodePattern(data, p))
	}
	return data
}

func newTestPattern(number, stitches, rows int, seed uint32) *Pattern {
	return &Pattern{
		Entry:   Entry{Flag: DefaultEntryFlag, Number: number, Stitches: stitches, Rows: rows},
		RowData: makeRows(stitches, rows, seed),
	}
}

func TestReadEntry(t *testing.T) {
	data := make([]byte, DataSize)
	copy(data, []byte{0x01, 0x5A, 0x12, 0x34, 0x56, 0x79, 0x05})

	e, err := ReadEntry(data, 0)
	require.NoError(t, err)

	assert.Equal(t, byte(0x01), e.Flag)
	assert.Equal(t, byte(0x5A), e.Unknown)
	assert.Equal(t, 123, e.Rows)
	assert.Equal(t, 456, e.Stitches)
	assert.Equal(t, 905, e.Number)
	assert.Equal(t, byte(0x7), e.UnkNibble)

	out := make([]byte, DataSize)
	require.NoError(t, WriteEntry(out, 0, e))
	assert.Equal(t, data[:DirectoryEntrySize], out[:DirectoryEntrySize])
}

func TestParseHandBuiltPattern(t *testing.T) {
	data := make([]byte, DataSize)
	// Pattern 901, 5 stitches, 1 row.
	copy(data, []byte{0x01, 0x00, 0x00, 0x10, 0x05, 0x09, 0x01})
	// One memo byte at 0x06DF, bitmap byte at 0x06DE: LSN 1011, MSN 0001.
	data[0x06DF] = 0xAB
	data[0x06DE] = 0x1B

	patterns, err := Parse(data)
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	p := patterns[901]
	require.NotNil(t, p)
	assert.Equal(t, 5, p.Stitches)
	assert.Equal(t, 1, p.Rows)
	assert.Equal(t, 0x06DF, p.MemoOffset)
	assert.Equal(t, 0x06DE, p.PatternOffset)
	assert.Equal(t, 0x06DD, p.EndOffset)
	assert.Equal(t, [][]byte{{1, 1, 0, 1, 1}}, p.RowData)
	assert.Equal(t, []byte{0xAB}, p.MemoData)
}

func TestParseRoundTripNonMultipleOfFour(t *testing.T) {
	src := newTestPattern(901, 17, 3, 0xC0FFEE)
	data := buildDataSet(t, src)

	patterns, err := Parse(data)
	require.NoError(t, err)
	p := patterns[901]
	require.NotNil(t, p)

	require.Len(t, p.RowData, 3)
	for r := range p.RowData {
		require.Len(t, p.RowData[r], 17)
		assert.Equal(t, src.RowData[r][0], p.RowData[r][0], "first stitch of row %d", r)
		assert.Equal(t, src.RowData[r][16], p.RowData[r][16], "last stitch of row %d", r)
	}
	assert.Equal(t, src.RowData, p.RowData)
}

func TestParseMultiplePatternsAllocateDownward(t *testing.T) {
	a := newTestPattern(901, 8, 4, 1)
	b := newTestPattern(902, 13, 7, 2)
	c := newTestPattern(950, 1, 1, 3)
	data := buildDataSet(t, a, b, c)

	list, err := ParseOrdered(data)
	require.NoError(t, err)
	require.Len(t, list, 3)

	pptr := InitialPatternOffset
	for i, want := range []*Pattern{a, b, c} {
		got := list[i]
		assert.Equal(t, want.Number, got.Number)
		assert.Equal(t, pptr, got.MemoOffset)
		assert.Equal(t, pptr-BytesForMemo(want.Rows), got.PatternOffset)
		assert.Equal(t, pptr-BytesPerPatternAndMemo(want.Stitches, want.Rows), got.EndOffset)
		assert.Equal(t, want.RowData, got.RowData)
		pptr = got.EndOffset
	}
}

func TestParseStopsAtTerminator(t *testing.T) {
	for _, n := range []int{1, 2, 10, 50, 99} {
		patterns := make([]*Pattern, 0, DirectorySlots)
		for i := 0; i < DirectorySlots; i++ {
			patterns = append(patterns, newTestPattern(FirstPatternNumber+i, 3, 2, uint32(i)))
		}
		data := buildDataSet(t, patterns...)
		data[(n-1)*DirectoryEntrySize] = 0x00

		got, err := Parse(data)
		require.NoError(t, err)
		assert.Len(t, got, n-1, "terminator at slot %d", n)
	}
}

func TestParseFullDirectory(t *testing.T) {
	patterns := make([]*Pattern, 0, DirectorySlots)
	for i := 0; i < DirectorySlots; i++ {
		patterns = append(patterns, newTestPattern(FirstPatternNumber+i, 3, 2, uint32(i)))
	}
	data := buildDataSet(t, patterns...)

	got, err := Parse(data)
	require.NoError(t, err)
	assert.Len(t, got, DirectorySlots)
}

func TestParseEmptyDirectory(t *testing.T) {
	got, err := Parse(make([]byte, DataSize))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseBoundsFault(t *testing.T) {
	t.Run("truncated directory", func(t *testing.T) {
		data := []byte{0x01, 0x00, 0x00}
		_, err := Parse(data)
		require.Error(t, err)
		assert.True(t, IsBoundsError(err))
	})

	t.Run("pattern runs below address zero", func(t *testing.T) {
		data := make([]byte, DataSize)
		// 999 rows x 999 stitches cannot fit below InitialPatternOffset.
		copy(data, []byte{0x01, 0x00, 0x99, 0x99, 0x99, 0x09, 0x01})
		_, err := Parse(data)
		require.Error(t, err)
		assert.True(t, IsBoundsError(err))
		assert.Contains(t, err.Error(), "pattern 901")
	})
}
