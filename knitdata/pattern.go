package knitdata

// Entry is one decoded directory record.
type Entry struct {
	// Flag is non-zero for a used slot; zero terminates the directory
	Flag byte

	// Unknown is the second record byte, carried through unchanged
	Unknown byte

	// Number is the pattern number (901-999 by convention)
	Number int

	// Stitches is the pattern width
	Stitches int

	// Rows is the pattern height
	Rows int

	// UnkNibble is the MSN of the fifth record byte, carried through unchanged
	UnkNibble byte
}

// Region locates a pattern in the data set. Storage grows downward, so
// EndOffset < PatternOffset <= MemoOffset.
type Region struct {
	// MemoOffset is the highest byte of the pattern (the memo pointer)
	MemoOffset int

	// PatternOffset is the byte holding bitmap nibble 0
	PatternOffset int

	// EndOffset is the first byte below the pattern, where the next one starts
	EndOffset int
}

// regionAt computes the region of a pattern whose memo pointer is memo.
func regionAt(memo, stitches, rows int) Region {
	return Region{
		MemoOffset:    memo,
		PatternOffset: memo - BytesForMemo(rows),
		EndOffset:     memo - BytesPerPatternAndMemo(stitches, rows),
	}
}

// Size returns the number of bytes the region occupies.
func (r Region) Size() int {
	return r.MemoOffset - r.EndOffset
}

// Pattern is a decoded custom pattern.
type Pattern struct {
	Entry
	Region

	// RowData holds one slice per row, one 0/1 value per stitch
	RowData [][]byte

	// MemoData holds one raw memo byte per row
	MemoData []byte
}

// Stitch reports whether the stitch at (row, stitch) is set.
func (p *Pattern) Stitch(row, stitch int) bool {
	return p.RowData[row][stitch] != 0
}

// clone returns a deep copy of p.
func (p *Pattern) clone() *Pattern {
	c := *p
	c.RowData = make([][]byte, len(p.RowData))
	for i, r := range p.RowData {
		c.RowData[i] = append([]byte(nil), r...)
	}
	c.MemoData = append([]byte(nil), p.MemoData...)
	return &c
}
