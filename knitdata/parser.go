package knitdata

import "fmt"

// ReadEntry decodes directory record i (0-based).
//
// Record format (7 bytes):
//
//	byte 0: flag
//	byte 1: unknown
//	byte 2: rows hundreds | rows tens
//	byte 3: rows ones | stitches hundreds
//	byte 4: stitches tens | stitches ones
//	byte 5: unknown nibble | pattern hundreds
//	byte 6: pattern tens | pattern ones
func ReadEntry(data []byte, i int) (Entry, error) {
	off := i * DirectoryEntrySize
	if off < 0 || off+DirectoryEntrySize > len(data) {
		return Entry{}, &BoundsError{Offset: off + DirectoryEntrySize - 1, Size: len(data)}
	}
	rec := data[off : off+DirectoryEntrySize]

	rh, rt := Nibbles(rec[2])
	ro, sh := Nibbles(rec[3])
	st, so := Nibbles(rec[4])
	unk, ph := Nibbles(rec[5])
	pt, po := Nibbles(rec[6])

	return Entry{
		Flag:      rec[0],
		Unknown:   rec[1],
		Rows:      BCD(rh, rt, ro),
		Stitches:  BCD(sh, st, so),
		Number:    BCD(ph, pt, po),
		UnkNibble: unk,
	}, nil
}

// ReadDirectory returns the used directory records in order. The scan stops at the
// first record whose flag is zero, or after DirectorySlots records.
func ReadDirectory(data []byte) ([]Entry, error) {
	var entries []Entry
	for i := 0; i < DirectorySlots; i++ {
		e, err := ReadEntry(data, i)
		if err != nil {
			return nil, fmt.Errorf("directory slot %d: %w", i+1, err)
		}
		if e.Flag == 0 {
			break
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// ParseOrdered decodes every pattern in the data set, in directory order.
// An empty directory yields an empty slice and a nil error.
func ParseOrdered(data []byte) ([]*Pattern, error) {
	entries, err := ReadDirectory(data)
	if err != nil {
		return nil, err
	}

	patterns := make([]*Pattern, 0, len(entries))
	pptr := InitialPatternOffset
	for i, e := range entries {
		region := regionAt(pptr, e.Stitches, e.Rows)
		pptr = region.EndOffset

		rows, err := ExtractRows(data, region.PatternOffset, e.Stitches, e.Rows)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (slot %d): %w", e.Number, i+1, err)
		}
		memo, err := extractMemo(data, region.MemoOffset, e.Rows)
		if err != nil {
			return nil, fmt.Errorf("pattern %d (slot %d) memo: %w", e.Number, i+1, err)
		}

		patterns = append(patterns, &Pattern{
			Entry:    e,
			Region:   region,
			RowData:  rows,
			MemoData: memo,
		})
	}
	return patterns, nil
}

// Parse decodes every pattern in the data set, keyed by pattern number.
// A later record with a duplicate number replaces the earlier one.
func Parse(data []byte) (map[int]*Pattern, error) {
	list, err := ParseOrdered(data)
	if err != nil {
		return nil, err
	}
	out := make(map[int]*Pattern, len(list))
	for _, p := range list {
		out[p.Number] = p
	}
	return out, nil
}
