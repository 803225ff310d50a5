package knitdata

// ExtractRow decodes one row of a pattern bitmap.
//
// Row r occupies nibbles [NibblesPerRow*r, NibblesPerRow*(r+1)) counted down from
// patternOffset. Within a nibble, bit 0 is the first stitch of the remaining run.
// Pad bits past the last stitch of the row are never returned.
func ExtractRow(data []byte, patternOffset, stitches, row int) ([]byte, error) {
	perRow := NibblesPerRow(stitches)
	start := perRow * row

	out := make([]byte, 0, stitches)
	remaining := stitches
	for i := start; i < start+perRow; i++ {
		nib, err := NibbleAt(data, patternOffset, i)
		if err != nil {
			return nil, err
		}
		for bit := 0; bit < StitchesPerNibble && remaining > 0; bit++ {
			out = append(out, (nib>>bit)&0x01)
			remaining--
		}
	}
	return out, nil
}

// ExtractRows decodes all rows of a pattern bitmap.
func ExtractRows(data []byte, patternOffset, stitches, rows int) ([][]byte, error) {
	out := make([][]byte, 0, rows)
	for r := 0; r < rows; r++ {
		row, err := ExtractRow(data, patternOffset, stitches, r)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// extractMemo collects the memo bytes, index i at memoOffset-i.
func extractMemo(data []byte, memoOffset, rows int) ([]byte, error) {
	out := make([]byte, rows)
	for i := range out {
		addr := memoOffset - i
		if addr < 0 || addr >= len(data) {
			return nil, &BoundsError{Offset: addr, Size: len(data)}
		}
		out[i] = data[addr]
	}
	return out, nil
}
